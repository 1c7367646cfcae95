package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeries_AddInstance(t *testing.T) {
	t.Run("multi-frame instance expands into one entry per frame", func(t *testing.T) {
		series := NewSeries("1.2.840.1")

		series.AddInstance("dicomfile:0", InstanceFields{SeriesID: "1.2.840.1", NumberOfFrames: 5})

		assert.Equal(t, []string{
			"dicomfile:0?frame=0",
			"dicomfile:0?frame=1",
			"dicomfile:0?frame=2",
			"dicomfile:0?frame=3",
			"dicomfile:0?frame=4",
		}, series.ImageIDs())
	})

	t.Run("single-frame instances sort by instance number regardless of insertion order", func(t *testing.T) {
		series := NewSeries("1.2.840.2")

		series.AddInstance("dicomfile:3", InstanceFields{InstanceNumber: 3})
		series.AddInstance("dicomfile:1", InstanceFields{InstanceNumber: 1})
		series.AddInstance("dicomfile:2", InstanceFields{InstanceNumber: 2})

		assert.Equal(t, []string{"dicomfile:1", "dicomfile:2", "dicomfile:3"}, series.ImageIDs())
	})

	t.Run("sorted view is refreshed after a later insertion", func(t *testing.T) {
		series := NewSeries("1.2.840.3")
		series.AddInstance("dicomfile:5", InstanceFields{InstanceNumber: 5})
		assert.Equal(t, []string{"dicomfile:5"}, series.ImageIDs())

		series.AddInstance("dicomfile:4", InstanceFields{InstanceNumber: 4})

		assert.Equal(t, []string{"dicomfile:4", "dicomfile:5"}, series.ImageIDs())
	})

	t.Run("duplicates accumulate", func(t *testing.T) {
		series := NewSeries("1.2.840.4")

		series.AddInstance("dicomfile:0", InstanceFields{InstanceNumber: 1})
		series.AddInstance("dicomfile:0", InstanceFields{InstanceNumber: 1})

		assert.Equal(t, 2, series.Len())
	})

	t.Run("descriptive fields are first-write-wins", func(t *testing.T) {
		series := NewSeries("1.2.840.5")

		series.AddInstance("dicomfile:0", InstanceFields{Modality: "CT", PatientName: "John Smith"})
		series.AddInstance("dicomfile:1", InstanceFields{Description: "AXIAL", StudyDescription: "CHEST"})
		series.AddInstance("dicomfile:2", InstanceFields{Description: "CORONAL", Modality: "MR", StudyDescription: "HEAD", PatientName: "Jane Doe"})

		assert.Equal(t, "AXIAL", series.Description())
		assert.Equal(t, "CT", series.Modality())
		assert.Equal(t, "CHEST", series.StudyDescription())
		assert.Equal(t, "John Smith", series.PatientName())
	})
}

func TestRestoreSeries(t *testing.T) {
	original := NewSeries("1.2.840.9")
	original.AddInstance("dicomfile:7", InstanceFields{NumberOfFrames: 2, Description: "CINE", Modality: "US"})
	original.AddInstance("dicomfile:8", InstanceFields{InstanceNumber: 0})

	restored := RestoreSeries(original.Manifest())

	assert.Equal(t, original.SeriesID(), restored.SeriesID())
	assert.Equal(t, original.ImageIDs(), restored.ImageIDs())
	assert.Equal(t, "CINE", restored.Description())
	assert.Equal(t, "US", restored.Modality())
}
