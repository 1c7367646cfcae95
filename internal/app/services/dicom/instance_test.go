package dicom

import (
	"imaging-demo-service/internal/pkg/constvars"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom/pkg/tag"
)

type mapInstance struct {
	strings map[tag.Tag]string
	ints    map[tag.Tag]int
}

func (m mapInstance) String(t tag.Tag) (string, bool) {
	value, ok := m.strings[t]
	return value, ok
}

func (m mapInstance) Int(t tag.Tag) (int, bool) {
	value, ok := m.ints[t]
	return value, ok
}

func TestExtractFields(t *testing.T) {
	t.Run("single frame instance uses instance number", func(t *testing.T) {
		instance := mapInstance{
			strings: map[tag.Tag]string{
				tag.SeriesInstanceUID: "1.2.3",
				tag.SeriesDescription: "AX T1",
				tag.Modality:          "MR",
				tag.StudyDescription:  "BRAIN",
				tag.PatientName:       "Smith^John^Q^Dr^Jr",
			},
			ints: map[tag.Tag]int{tag.InstanceNumber: 7},
		}

		fields, err := ExtractFields(instance)

		require.NoError(t, err)
		assert.Equal(t, "1.2.3", fields.SeriesID)
		assert.Equal(t, 7, fields.InstanceNumber)
		assert.False(t, fields.IsMultiFrame())
		assert.Equal(t, "AX T1", fields.Description)
		assert.Equal(t, "MR", fields.Modality)
		assert.Equal(t, "BRAIN", fields.StudyDescription)
		assert.Equal(t, "Dr John Q Smith Jr", fields.PatientName)
	})

	t.Run("multi frame instance uses frame count", func(t *testing.T) {
		instance := mapInstance{
			strings: map[tag.Tag]string{tag.SeriesInstanceUID: "1.2.3"},
			ints:    map[tag.Tag]int{tag.NumberOfFrames: 5, tag.InstanceNumber: 2},
		}

		fields, err := ExtractFields(instance)

		require.NoError(t, err)
		assert.True(t, fields.IsMultiFrame())
		assert.Equal(t, 5, fields.NumberOfFrames)
		assert.Equal(t, 0, fields.InstanceNumber)
	})

	t.Run("zero frames falls back to instance number", func(t *testing.T) {
		instance := mapInstance{
			strings: map[tag.Tag]string{tag.SeriesInstanceUID: "1.2.3"},
			ints:    map[tag.Tag]int{tag.NumberOfFrames: 0, tag.InstanceNumber: 4},
		}

		fields, err := ExtractFields(instance)

		require.NoError(t, err)
		assert.False(t, fields.IsMultiFrame())
		assert.Equal(t, 4, fields.InstanceNumber)
	})

	t.Run("absent patient name yields no name", func(t *testing.T) {
		instance := mapInstance{strings: map[tag.Tag]string{tag.SeriesInstanceUID: "1.2.3"}}

		fields, err := ExtractFields(instance)

		require.NoError(t, err)
		assert.Empty(t, fields.PatientName)
		assert.Equal(t, 0, fields.InstanceNumber)
	})

	t.Run("missing series uid goes to the unknown series", func(t *testing.T) {
		instance := mapInstance{strings: map[tag.Tag]string{tag.Modality: "CT"}}

		fields, err := ExtractFields(instance)

		require.NoError(t, err)
		assert.Equal(t, constvars.DicomUnknownSeriesID, fields.SeriesID)
		assert.Equal(t, "CT", fields.Modality)
	})
}
