package dicom

import (
	"imaging-demo-service/internal/app/models"
	"imaging-demo-service/internal/pkg/constvars"
	"imaging-demo-service/internal/pkg/utils"

	"github.com/suyashkumar/dicom/pkg/tag"
)

// Instance gives tag-keyed access to a decoded DICOM instance.
type Instance interface {
	String(t tag.Tag) (string, bool)
	Int(t tag.Tag) (int, bool)
}

// ExtractFields reads the fields used to group an instance into its series.
// Instances without a SeriesInstanceUID all land in the same unknown series.
func ExtractFields(instance Instance) (models.InstanceFields, error) {
	seriesID, ok := instance.String(tag.SeriesInstanceUID)
	if !ok || seriesID == "" {
		seriesID = constvars.DicomUnknownSeriesID
	}

	fields := models.InstanceFields{SeriesID: seriesID}
	if frames, ok := instance.Int(tag.NumberOfFrames); ok && frames > 0 {
		fields.NumberOfFrames = frames
	} else if number, ok := instance.Int(tag.InstanceNumber); ok {
		fields.InstanceNumber = number
	}

	fields.Description, _ = instance.String(tag.SeriesDescription)
	fields.Modality, _ = instance.String(tag.Modality)
	fields.StudyDescription, _ = instance.String(tag.StudyDescription)
	if rawName, ok := instance.String(tag.PatientName); ok {
		fields.PatientName, _ = utils.ParseDicomName(rawName)
	}
	return fields, nil
}
