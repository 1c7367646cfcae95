package dicom

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

func mustElement(t *testing.T, elementTag tag.Tag, data interface{}) *dicom.Element {
	t.Helper()
	element, err := dicom.NewElement(elementTag, data)
	require.NoError(t, err)
	return element
}

func TestDatasetInstance_Accessors(t *testing.T) {
	dataset := dicom.Dataset{Elements: []*dicom.Element{
		mustElement(t, tag.SeriesInstanceUID, []string{"1.2.840.1"}),
		mustElement(t, tag.Modality, []string{"CT "}),
		mustElement(t, tag.InstanceNumber, []string{" 12"}),
		mustElement(t, tag.NumberOfFrames, []string{"3"}),
		mustElement(t, tag.Rows, []int{512}),
		mustElement(t, tag.PatientName, []string{"Doe^Jane"}),
	}}
	instance := NewDatasetInstance(dataset)

	seriesID, ok := instance.String(tag.SeriesInstanceUID)
	assert.True(t, ok)
	assert.Equal(t, "1.2.840.1", seriesID)

	modality, ok := instance.String(tag.Modality)
	assert.True(t, ok)
	assert.Equal(t, "CT", modality)

	number, ok := instance.Int(tag.InstanceNumber)
	assert.True(t, ok)
	assert.Equal(t, 12, number)

	rows, ok := instance.Int(tag.Rows)
	assert.True(t, ok)
	assert.Equal(t, 512, rows)

	_, ok = instance.String(tag.StudyDescription)
	assert.False(t, ok)
	_, ok = instance.Int(tag.Modality)
	assert.False(t, ok)

	fields, err := ExtractFields(instance)
	require.NoError(t, err)
	assert.Equal(t, 3, fields.NumberOfFrames)
	assert.Equal(t, "Jane Doe", fields.PatientName)
}

func TestDatasetDecoder_Decode(t *testing.T) {
	decoder := NewDatasetDecoder(DecoderConfig{})

	t.Run("part 10 file decodes into grouping fields", func(t *testing.T) {
		dataset := dicom.Dataset{Elements: []*dicom.Element{
			mustElement(t, tag.SeriesInstanceUID, []string{"1.2.840.99"}),
			mustElement(t, tag.SeriesDescription, []string{"CINE"}),
			mustElement(t, tag.Modality, []string{"US"}),
			mustElement(t, tag.NumberOfFrames, []string{"4"}),
			mustElement(t, tag.PatientName, []string{"Smith^John^Q^Dr^Jr"}),
		}}
		var file bytes.Buffer
		require.NoError(t, dicom.Write(&file, dataset, dicom.DefaultMissingTransferSyntax()))

		instance, err := decoder.Decode(context.Background(), file.Bytes())
		require.NoError(t, err)

		fields, err := ExtractFields(instance)
		require.NoError(t, err)
		assert.Equal(t, "1.2.840.99", fields.SeriesID)
		assert.Equal(t, "CINE", fields.Description)
		assert.Equal(t, "US", fields.Modality)
		assert.Equal(t, 4, fields.NumberOfFrames)
		assert.Equal(t, "Dr John Q Smith Jr", fields.PatientName)
	})

	t.Run("garbage bytes fail with decode error", func(t *testing.T) {
		_, err := decoder.Decode(context.Background(), []byte("definitely not a DICOM file"))
		assert.ErrorIs(t, err, ErrDecodeInstance)
	})

	t.Run("empty blob fails with decode error", func(t *testing.T) {
		_, err := decoder.Decode(context.Background(), nil)
		assert.ErrorIs(t, err, ErrDecodeInstance)
	})

	t.Run("cancelled context is reported as is", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := decoder.Decode(ctx, []byte("DICM"))

		assert.ErrorIs(t, err, context.Canceled)
	})
}
