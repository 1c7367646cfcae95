package dicom

import (
	"bytes"
	"context"
	"errors"
	"imaging-demo-service/internal/app/models"
	"imaging-demo-service/internal/pkg/constvars"
	"imaging-demo-service/internal/pkg/fhir_dto"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom/pkg/tag"
	"go.uber.org/zap"
)

const testBoundary = "DICOMwebBoundary"

// textDecoder decodes bodies of the form "series=1.2;instance=3;frames=0;desc=AX".
type textDecoder struct{}

func (textDecoder) Decode(ctx context.Context, blob []byte) (Instance, error) {
	if bytes.HasPrefix(blob, []byte("bad")) {
		return nil, errors.New("unsupported transfer syntax")
	}
	instance := mapInstance{strings: map[tag.Tag]string{}, ints: map[tag.Tag]int{}}
	for _, pair := range strings.Split(string(blob), ";") {
		key, value, _ := strings.Cut(pair, "=")
		switch key {
		case "series":
			instance.strings[tag.SeriesInstanceUID] = value
		case "desc":
			instance.strings[tag.SeriesDescription] = value
		case "study":
			instance.strings[tag.StudyDescription] = value
		case "instance":
			number, _ := strconv.Atoi(value)
			instance.ints[tag.InstanceNumber] = number
		case "frames":
			frames, _ := strconv.Atoi(value)
			instance.ints[tag.NumberOfFrames] = frames
		}
	}
	return instance, nil
}

type stubSource struct {
	mu          sync.Mutex
	calls       int
	status      int
	contentType string
	body        []byte
	err         error
}

func (s *stubSource) FetchMultipart(ctx context.Context, uri string) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	header := make(http.Header)
	header.Set(constvars.HeaderContentType, s.contentType)
	return &http.Response{
		StatusCode: s.status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(s.body)),
	}, nil
}

func newStubSource(bodies ...string) *stubSource {
	parts := make([]testPart, 0, len(bodies))
	for _, body := range bodies {
		parts = append(parts, testPart{
			headers: [][2]string{{"Content-Type", constvars.MIMEApplicationDICOM}},
			body:    []byte(body),
		})
	}
	return &stubSource{
		status:      200,
		contentType: "multipart/related; type=\"application/dicom\"; boundary=" + testBoundary,
		body:        buildMultipart(testBoundary, parts, true),
	}
}

func newTestLoader(source MultipartSource, policy string) (*StudyLoader, *MemoryRegistry) {
	registry := NewMemoryRegistry()
	loader := NewStudyLoader(source, textDecoder{}, registry, LoaderConfig{
		DecodePolicy:      policy,
		DecodeConcurrency: 4,
	}, zap.NewNop())
	return loader, registry
}

func TestStudyLoader_GroupsInstancesBySeries(t *testing.T) {
	source := newStubSource(
		"series=1.1;instance=3;desc=AX T1;study=BRAIN",
		"series=1.2;frames=3;desc=CINE",
		"series=1.1;instance=1;desc=ignored",
		"series=1.1;instance=2",
	)
	loader, registry := newTestLoader(source, constvars.DicomDecodePolicyStrict)

	series, err := loader.LoadSeries(context.Background(), "http://pacs/studies/1")

	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, "1.1", series[0].SeriesID())
	assert.Equal(t, "1.2", series[1].SeriesID())

	assert.Equal(t, "AX T1", series[0].Description())
	assert.Equal(t, "BRAIN", series[0].StudyDescription())
	assert.Equal(t, []string{"dicomfile:2", "dicomfile:3", "dicomfile:0"}, series[0].ImageIDs())
	assert.Equal(t, []string{"dicomfile:1?frame=0", "dicomfile:1?frame=1", "dicomfile:1?frame=2"}, series[1].ImageIDs())
	assert.Equal(t, 4, registry.Len())
}

func TestStudyLoader_InstancesWithoutSeriesUID(t *testing.T) {
	source := newStubSource(
		"series=1.1;instance=1",
		"instance=2",
		"instance=1",
	)
	loader, _ := newTestLoader(source, constvars.DicomDecodePolicyStrict)

	series, err := loader.LoadSeries(context.Background(), "http://pacs/studies/1")

	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, constvars.DicomUnknownSeriesID, series[1].SeriesID())
	assert.Equal(t, []string{"dicomfile:2", "dicomfile:1"}, series[1].ImageIDs())
}

func TestStudyLoader_DecodePolicy(t *testing.T) {
	t.Run("strict fails the whole download", func(t *testing.T) {
		loader, _ := newTestLoader(newStubSource("series=1.1;instance=1", "bad part"), constvars.DicomDecodePolicyStrict)

		series, err := loader.LoadSeries(context.Background(), "http://pacs/studies/1")

		assert.Nil(t, series)
		assert.ErrorIs(t, err, ErrDecodeInstance)
	})

	t.Run("lenient skips undecodable parts", func(t *testing.T) {
		loader, registry := newTestLoader(newStubSource("bad part", "series=1.1;instance=1", "bad again"), constvars.DicomDecodePolicyLenient)

		series, err := loader.LoadSeries(context.Background(), "http://pacs/studies/1")

		require.NoError(t, err)
		require.Len(t, series, 1)
		assert.Equal(t, []string{"dicomfile:0"}, series[0].ImageIDs())
		assert.Equal(t, 1, registry.Len())
	})

	t.Run("lenient with nothing decodable is malformed", func(t *testing.T) {
		loader, _ := newTestLoader(newStubSource("bad one", "bad two"), constvars.DicomDecodePolicyLenient)

		_, err := loader.LoadSeries(context.Background(), "http://pacs/studies/1")

		assert.ErrorIs(t, err, ErrMalformedPayload)
	})
}

func TestStudyLoader_MalformedResponses(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(source *stubSource)
	}{
		{name: "missing boundary", mutate: func(s *stubSource) { s.contentType = constvars.MIMEMultipartRelated }},
		{name: "no parts", mutate: func(s *stubSource) { s.body = []byte("nothing here") }},
		{name: "empty body", mutate: func(s *stubSource) { s.body = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := newStubSource("series=1.1;instance=1")
			tt.mutate(source)
			loader, _ := newTestLoader(source, constvars.DicomDecodePolicyStrict)

			series, err := loader.LoadSeries(context.Background(), "http://pacs/studies/1")

			assert.Nil(t, series)
			assert.ErrorIs(t, err, ErrMalformedPayload)
		})
	}
}

func TestStudyLoader_PayloadLimit(t *testing.T) {
	source := newStubSource("series=1.1;instance=1")
	loader := NewStudyLoader(source, textDecoder{}, NewMemoryRegistry(), LoaderConfig{MaxPayloadSize: 10}, zap.NewNop())

	_, err := loader.LoadSeries(context.Background(), "http://pacs/studies/1")

	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestStudyLoader_UpstreamStatus(t *testing.T) {
	source := newStubSource("series=1.1;instance=1")
	source.status = 404
	loader, _ := newTestLoader(source, constvars.DicomDecodePolicyStrict)

	_, err := loader.LoadSeries(context.Background(), "http://pacs/studies/1")

	var statusErr *UpstreamStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, 404, statusErr.StatusCode)
	assert.Equal(t, "http://pacs/studies/1", statusErr.URI)
}

func TestStudyLoader_FetchErrorPropagates(t *testing.T) {
	source := &stubSource{err: ErrRetriesExhausted}
	loader, _ := newTestLoader(source, constvars.DicomDecodePolicyStrict)

	_, err := loader.LoadSeries(context.Background(), "http://pacs/studies/1")

	assert.ErrorIs(t, err, ErrRetriesExhausted)
}

func TestStudyDownload_FetchesOnce(t *testing.T) {
	source := newStubSource("series=1.1;instance=1;study=CHEST", "series=1.1;instance=2")
	loader, _ := newTestLoader(source, constvars.DicomDecodePolicyStrict)
	study := models.NewStudyFromImagingStudy(&fhir_dto.ImagingStudy{
		ID:             "img-1",
		UID:            "urn:oid:1.2.3",
		Contained:      []fhir_dto.ContainedResource{{ResourceType: "Endpoint", ID: "wado", Address: "http://pacs/studies/1.2.3"}},
		Endpoint:       []fhir_dto.Reference{{Reference: "#wado"}},
		NumberOfSeries: 4,
	})

	require.NoError(t, study.Download(context.Background(), loader))
	require.NoError(t, study.Download(context.Background(), loader))

	assert.Equal(t, 1, source.calls)
	assert.Equal(t, models.StudyStatePopulated, study.State())
	assert.Equal(t, 1, study.NSeries())
	assert.Equal(t, "CHEST", study.Description())
	assert.Equal(t, []string{"dicomfile:0", "dicomfile:1"}, study.Series()[0].ImageIDs())
}

func TestStudyDownload_FailureIsDistinguishable(t *testing.T) {
	fetcher := &scriptedFetcher{statuses: []int{503}}
	multipartFetcher, _ := newTestFetcher(fetcher, RetryPolicy{MaxRetries: 2})
	loader, _ := newTestLoader(multipartFetcher, constvars.DicomDecodePolicyStrict)
	study := models.NewStudyFromImagingStudy(&fhir_dto.ImagingStudy{
		UID:       "1.2.3",
		Contained: []fhir_dto.ContainedResource{{ResourceType: "Endpoint", ID: "wado", Address: "http://pacs/studies/1.2.3"}},
		Endpoint:  []fhir_dto.Reference{{Reference: "#wado"}},
	})

	err := study.Download(context.Background(), loader)

	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, models.StudyStateMetadataOnly, study.State())
	assert.ErrorIs(t, study.LastError(), ErrRetriesExhausted)
	assert.Equal(t, 3, fetcher.calls)
}
