package responses

import "time"

type Study struct {
	StudyID            string     `json:"study_id"`
	State              string     `json:"state"`
	Description        string     `json:"description,omitempty"`
	Modalities         []string   `json:"modalities"`
	Date               *time.Time `json:"date,omitempty"`
	Accession          string     `json:"accession,omitempty"`
	ReferringPhysician string     `json:"referring_physician,omitempty"`
	NumberOfSeries     int        `json:"number_of_series"`
}

type Series struct {
	Index            int      `json:"index"`
	SeriesID         string   `json:"series_id"`
	Description      string   `json:"description,omitempty"`
	Modality         string   `json:"modality,omitempty"`
	StudyDescription string   `json:"study_description,omitempty"`
	PatientName      string   `json:"patient_name,omitempty"`
	ImageIDs         []string `json:"image_ids"`
}

type DownloadedStudy struct {
	Study  Study    `json:"study"`
	Series []Series `json:"series"`
}

// StudyView mirrors the viewer behaviour: a single series is returned directly,
// otherwise the caller has to pick one of Choices.
type StudyView struct {
	SelectionRequired bool     `json:"selection_required"`
	Description       string   `json:"description,omitempty"`
	Series            *Series  `json:"series,omitempty"`
	Choices           []Series `json:"choices,omitempty"`
}

type QueuedDownload struct {
	JobID   string `json:"job_id"`
	StudyID string `json:"study_id"`
}
