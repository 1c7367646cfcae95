package models

import (
	"context"
	"errors"
	"imaging-demo-service/internal/pkg/constvars"
	"imaging-demo-service/internal/pkg/fhir_dto"
	"imaging-demo-service/internal/pkg/utils"
	"strings"
	"sync"
	"time"
)

var (
	ErrDownloadInProgress = errors.New("study download already in progress")
	ErrMissingEndpoint    = errors.New("study has no WADO-RS endpoint")
)

type StudyState string

const (
	StudyStateMetadataOnly StudyState = "metadata-only"
	StudyStateDownloading  StudyState = "downloading"
	StudyStatePopulated    StudyState = "populated"
)

// SeriesLoader retrieves and groups the instances behind a WADO-RS study endpoint.
type SeriesLoader interface {
	LoadSeries(ctx context.Context, uri string) ([]*Series, error)
}

// Study is one FHIR ImagingStudy plus the series downloaded for it.
type Study struct {
	mu sync.Mutex

	studyID            string
	resourceID         string
	uri                string
	modalities         []string
	date               *time.Time
	accession          string
	referringPhysician string
	declaredSeries     int

	state   StudyState
	series  []*Series
	lastErr error
}

// NewStudyFromImagingStudy maps an ImagingStudy resource. The WADO-RS uri is
// the address of the contained Endpoint referenced by the first endpoint entry.
func NewStudyFromImagingStudy(resource *fhir_dto.ImagingStudy) *Study {
	study := &Study{
		studyID:        studyUID(resource),
		resourceID:     resource.ID,
		uri:            endpointAddress(resource),
		modalities:     modalityCodes(resource),
		date:           parseStarted(resource.Started),
		accession:      accessionNumber(resource),
		declaredSeries: resource.NumberOfSeries,
		state:          StudyStateMetadataOnly,
	}
	if resource.Referrer != nil {
		study.referringPhysician, _ = utils.ParseDicomName(resource.Referrer.Display)
	}
	return study
}

func (s *Study) StudyID() string { return s.studyID }
func (s *Study) ResourceID() string { return s.resourceID }
func (s *Study) URI() string { return s.uri }
func (s *Study) Date() *time.Time { return s.date }
func (s *Study) Accession() string { return s.accession }
func (s *Study) ReferringPhysician() string { return s.referringPhysician }

func (s *Study) Modalities() []string {
	out := make([]string, len(s.modalities))
	copy(out, s.modalities)
	return out
}

// NSeries reports the FHIR-declared series count until the study is
// downloaded, the real count afterwards.
func (s *Study) NSeries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StudyStatePopulated {
		return s.declaredSeries
	}
	return len(s.series)
}

// Description is the study description of the first series, "" until downloaded.
func (s *Study) Description() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.series) == 0 {
		return ""
	}
	return s.series[0].StudyDescription()
}

func (s *Study) Series() []*Series {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Series, len(s.series))
	copy(out, s.series)
	return out
}

func (s *Study) State() StudyState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError is the error of the most recent failed download, nil otherwise.
func (s *Study) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Download populates the series exactly once. It is a no-op once populated
// and fails with ErrDownloadInProgress while another download runs. A failed
// download leaves the study in metadata-only so it can be retried.
func (s *Study) Download(ctx context.Context, loader SeriesLoader) error {
	s.mu.Lock()
	switch s.state {
	case StudyStatePopulated:
		s.mu.Unlock()
		return nil
	case StudyStateDownloading:
		s.mu.Unlock()
		return ErrDownloadInProgress
	}
	if s.uri == "" {
		s.lastErr = ErrMissingEndpoint
		s.mu.Unlock()
		return ErrMissingEndpoint
	}
	s.state = StudyStateDownloading
	s.mu.Unlock()

	series, err := loader.LoadSeries(ctx, s.uri)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StudyStateMetadataOnly
		s.lastErr = err
		return err
	}
	s.series = series
	s.state = StudyStatePopulated
	s.lastErr = nil
	return nil
}

// Populate marks the study downloaded with previously retrieved series.
// It does nothing when the study is already populated or downloading.
func (s *Study) Populate(series []*Series) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StudyStateMetadataOnly {
		return
	}
	s.series = series
	s.state = StudyStatePopulated
}

func studyUID(resource *fhir_dto.ImagingStudy) string {
	if resource.UID != "" {
		return strings.TrimPrefix(resource.UID, constvars.FhirDicomUIDPrefix)
	}
	for _, identifier := range resource.Identifier {
		if identifier.System == constvars.FhirIdentifierSystemDicomUID && identifier.Value != "" {
			return strings.TrimPrefix(identifier.Value, constvars.FhirDicomUIDPrefix)
		}
	}
	return resource.ID
}

func endpointAddress(resource *fhir_dto.ImagingStudy) string {
	if len(resource.Endpoint) == 0 {
		return ""
	}
	reference := resource.Endpoint[0].Reference
	if !strings.HasPrefix(reference, "#") {
		return ""
	}
	containedID := strings.TrimPrefix(reference, "#")
	for _, contained := range resource.Contained {
		if contained.ID == containedID {
			return contained.Address
		}
	}
	return ""
}

func modalityCodes(resource *fhir_dto.ImagingStudy) []string {
	codings := resource.ModalityList
	if len(codings) == 0 {
		codings = resource.Modality
	}
	modalities := make([]string, 0, len(codings))
	for _, coding := range codings {
		modalities = append(modalities, coding.Code)
	}
	return modalities
}

func accessionNumber(resource *fhir_dto.ImagingStudy) string {
	if resource.Accession != nil {
		return resource.Accession.Value
	}
	for _, identifier := range resource.Identifier {
		if identifier.Type == nil {
			continue
		}
		for _, coding := range identifier.Type.Coding {
			if coding.Code == "ACSN" {
				return identifier.Value
			}
		}
	}
	return ""
}

func parseStarted(started string) *time.Time {
	if started == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		parsed, err := time.Parse(layout, started)
		if err == nil {
			return &parsed
		}
	}
	return nil
}
