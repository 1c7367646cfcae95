package models

import "time"

// StudyManifest is the persisted outcome of a successful study download.
type StudyManifest struct {
	StudyID      string           `bson:"study_id" json:"study_id"`
	PatientID    string           `bson:"patient_id" json:"patient_id"`
	URI          string           `bson:"uri" json:"uri"`
	Series       []SeriesManifest `bson:"series" json:"series"`
	DownloadedAt time.Time        `bson:"downloaded_at" json:"downloaded_at"`
}

type SeriesManifest struct {
	SeriesID         string       `bson:"series_id" json:"series_id"`
	Description      string       `bson:"description,omitempty" json:"description,omitempty"`
	Modality         string       `bson:"modality,omitempty" json:"modality,omitempty"`
	StudyDescription string       `bson:"study_description,omitempty" json:"study_description,omitempty"`
	PatientName      string       `bson:"patient_name,omitempty" json:"patient_name,omitempty"`
	Images           []ImageEntry `bson:"images" json:"images"`
}

func (s *Series) Manifest() SeriesManifest {
	entries := s.Entries()

	s.mu.Lock()
	defer s.mu.Unlock()
	return SeriesManifest{
		SeriesID:         s.seriesID,
		Description:      s.description,
		Modality:         s.modality,
		StudyDescription: s.studyDescription,
		PatientName:      s.patientName,
		Images:           entries,
	}
}

// RestoreSeries rebuilds a Series from its persisted manifest.
func RestoreSeries(manifest SeriesManifest) *Series {
	series := NewSeries(manifest.SeriesID)
	series.fillLocked(manifest.Description, manifest.Modality, manifest.StudyDescription, manifest.PatientName)
	for _, image := range manifest.Images {
		series.appendLocked(image.ImageID, image.FrameIndex)
	}
	return series
}

// NewStudyManifest snapshots the downloaded series of study.
func NewStudyManifest(study *Study, patientID string, downloadedAt time.Time) *StudyManifest {
	series := study.Series()
	manifest := &StudyManifest{
		StudyID:      study.StudyID(),
		PatientID:    patientID,
		URI:          study.URI(),
		Series:       make([]SeriesManifest, 0, len(series)),
		DownloadedAt: downloadedAt,
	}
	for _, s := range series {
		manifest.Series = append(manifest.Series, s.Manifest())
	}
	return manifest
}
