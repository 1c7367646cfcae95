package models

import "time"

// DownloadJob asks a worker to download a study in the background. The bearer
// token is carried along because the imaging server is called on the
// requester's behalf.
type DownloadJob struct {
	ID          string    `json:"id"`
	RequestID   string    `json:"request_id"`
	PatientID   string    `json:"patient_id"`
	StudyID     string    `json:"study_id"`
	BearerToken string    `json:"bearer_token"`
	FailedCount int       `json:"failed_count"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}
