package models

import (
	"context"
	"errors"
	"imaging-demo-service/internal/pkg/fhir_dto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLoader struct {
	calls  int
	series []*Series
	err    error
}

func (l *stubLoader) LoadSeries(ctx context.Context, uri string) ([]*Series, error) {
	l.calls++
	return l.series, l.err
}

func newImagingStudyResource() *fhir_dto.ImagingStudy {
	return &fhir_dto.ImagingStudy{
		ID:           "img-1",
		ResourceType: "ImagingStudy",
		UID:          "urn:oid:1.2.840.113619.2.55",
		Contained: []fhir_dto.ContainedResource{
			{ResourceType: "Endpoint", ID: "other", Address: "http://wrong.example"},
			{ResourceType: "Endpoint", ID: "wado", Address: "http://pacs.example/wado-rs/studies/1.2.840.113619.2.55"},
		},
		Endpoint:       []fhir_dto.Reference{{Reference: "#wado"}},
		ModalityList:   []fhir_dto.Coding{{Code: "CT"}, {Code: "SR"}},
		Started:        "2017-03-14T10:00:00Z",
		Accession:      &fhir_dto.Identifier{Value: "ACC-42"},
		Referrer:       &fhir_dto.Reference{Display: "Smith^John^^Dr"},
		NumberOfSeries: 3,
	}
}

func TestNewStudyFromImagingStudy(t *testing.T) {
	study := NewStudyFromImagingStudy(newImagingStudyResource())

	assert.Equal(t, "1.2.840.113619.2.55", study.StudyID())
	assert.Equal(t, "http://pacs.example/wado-rs/studies/1.2.840.113619.2.55", study.URI())
	assert.Equal(t, []string{"CT", "SR"}, study.Modalities())
	require.NotNil(t, study.Date())
	assert.Equal(t, 2017, study.Date().Year())
	assert.Equal(t, "ACC-42", study.Accession())
	assert.Equal(t, "Dr John Smith", study.ReferringPhysician())
	assert.Equal(t, StudyStateMetadataOnly, study.State())
	assert.Equal(t, 3, study.NSeries())
	assert.Empty(t, study.Description())
}

func TestNewStudyFromImagingStudy_R4Shape(t *testing.T) {
	resource := &fhir_dto.ImagingStudy{
		ID: "r4-study",
		Identifier: []fhir_dto.Identifier{
			{System: "urn:dicom:uid", Value: "urn:oid:2.16.124.113543"},
			{Type: &fhir_dto.CodeableConcept{Coding: []fhir_dto.Coding{{Code: "ACSN"}}}, Value: "A-77"},
		},
		Modality: []fhir_dto.Coding{{Code: "MR"}},
		Started:  "2020-01-02",
	}

	study := NewStudyFromImagingStudy(resource)

	assert.Equal(t, "2.16.124.113543", study.StudyID())
	assert.Equal(t, "A-77", study.Accession())
	assert.Equal(t, []string{"MR"}, study.Modalities())
	assert.Empty(t, study.URI())
}

func TestStudy_Download(t *testing.T) {
	t.Run("populates once and reports real series count", func(t *testing.T) {
		study := NewStudyFromImagingStudy(newImagingStudyResource())
		first := NewSeries("s1")
		first.AddInstance("dicomfile:0", InstanceFields{StudyDescription: "CT CHEST"})
		loader := &stubLoader{series: []*Series{first}}

		require.NoError(t, study.Download(context.Background(), loader))
		require.NoError(t, study.Download(context.Background(), loader))

		assert.Equal(t, 1, loader.calls)
		assert.Equal(t, StudyStatePopulated, study.State())
		assert.Equal(t, 1, study.NSeries())
		assert.Equal(t, "CT CHEST", study.Description())
	})

	t.Run("failure is returned and the study can be retried", func(t *testing.T) {
		study := NewStudyFromImagingStudy(newImagingStudyResource())
		loadErr := errors.New("upstream down")
		loader := &stubLoader{err: loadErr}

		err := study.Download(context.Background(), loader)

		assert.ErrorIs(t, err, loadErr)
		assert.Equal(t, StudyStateMetadataOnly, study.State())
		assert.ErrorIs(t, study.LastError(), loadErr)

		loader.err = nil
		loader.series = []*Series{NewSeries("s1")}
		require.NoError(t, study.Download(context.Background(), loader))
		assert.Equal(t, 2, loader.calls)
		assert.Nil(t, study.LastError())
	})

	t.Run("missing endpoint fails without calling the loader", func(t *testing.T) {
		resource := newImagingStudyResource()
		resource.Endpoint = nil
		study := NewStudyFromImagingStudy(resource)
		loader := &stubLoader{}

		err := study.Download(context.Background(), loader)

		assert.ErrorIs(t, err, ErrMissingEndpoint)
		assert.Zero(t, loader.calls)
	})

	t.Run("populate skips the network entirely", func(t *testing.T) {
		study := NewStudyFromImagingStudy(newImagingStudyResource())
		study.Populate([]*Series{NewSeries("s1"), NewSeries("s2")})
		loader := &stubLoader{}

		require.NoError(t, study.Download(context.Background(), loader))

		assert.Zero(t, loader.calls)
		assert.Equal(t, 2, study.NSeries())
	})
}

type blockingLoader struct {
	started chan struct{}
	release chan struct{}
}

func (l *blockingLoader) LoadSeries(ctx context.Context, uri string) ([]*Series, error) {
	close(l.started)
	<-l.release
	return []*Series{NewSeries("s1")}, nil
}

func TestStudy_DownloadInProgress(t *testing.T) {
	study := NewStudyFromImagingStudy(newImagingStudyResource())
	loader := &blockingLoader{started: make(chan struct{}), release: make(chan struct{})}

	done := make(chan error, 1)
	go func() {
		done <- study.Download(context.Background(), loader)
	}()
	<-loader.started

	err := study.Download(context.Background(), &stubLoader{})
	assert.ErrorIs(t, err, ErrDownloadInProgress)
	assert.Equal(t, StudyStateDownloading, study.State())

	close(loader.release)
	require.NoError(t, <-done)
	assert.Equal(t, StudyStatePopulated, study.State())
}
