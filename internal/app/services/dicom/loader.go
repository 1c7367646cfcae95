package dicom

import (
	"context"
	"errors"
	"fmt"
	"imaging-demo-service/internal/app/models"
	"imaging-demo-service/internal/pkg/constvars"
	"imaging-demo-service/internal/pkg/utils"
	"io"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type LoaderConfig struct {
	// DecodePolicy is constvars.DicomDecodePolicyStrict or DicomDecodePolicyLenient.
	DecodePolicy      string
	DecodeConcurrency int
	// MaxPayloadSize caps the multipart body in bytes, 0 means unlimited.
	MaxPayloadSize int64
}

// MultipartSource returns the raw WADO-RS response for a study endpoint.
type MultipartSource interface {
	FetchMultipart(ctx context.Context, uri string) (*http.Response, error)
}

// StudyLoader downloads a whole study, decodes every part and groups the
// instances into series. It satisfies models.SeriesLoader.
type StudyLoader struct {
	source   MultipartSource
	decoder  Decoder
	registry BlobRegistry
	config   LoaderConfig
	Log      *zap.Logger
}

func NewStudyLoader(source MultipartSource, decoder Decoder, registry BlobRegistry, config LoaderConfig, logger *zap.Logger) *StudyLoader {
	if config.DecodeConcurrency <= 0 {
		config.DecodeConcurrency = 1
	}
	if config.DecodePolicy == "" {
		config.DecodePolicy = constvars.DicomDecodePolicyStrict
	}
	return &StudyLoader{
		source:   source,
		decoder:  decoder,
		registry: registry,
		config:   config,
		Log:      logger,
	}
}

type decodedPart struct {
	fields  models.InstanceFields
	skipped bool
}

// LoadSeries returns the series of the study behind uri in first-seen order.
func (l *StudyLoader) LoadSeries(ctx context.Context, uri string) ([]*models.Series, error) {
	requestID := utils.RequestIDFromContext(ctx)
	l.Log.Info("StudyLoader.LoadSeries called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingURIKey, uri),
	)

	parts, err := l.fetchParts(ctx, uri)
	if err != nil {
		l.Log.Error("StudyLoader.LoadSeries error fetching study parts",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingURIKey, uri),
			zap.Error(err),
		)
		return nil, err
	}

	decoded, err := l.decodeParts(ctx, parts)
	if err != nil {
		l.Log.Error("StudyLoader.LoadSeries error decoding parts",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(err),
		)
		return nil, err
	}

	var (
		ordered  []*models.Series
		bySeries = make(map[string]*models.Series)
	)
	for i, part := range parts {
		if decoded[i].skipped {
			continue
		}
		imageID, err := l.registry.Register(ctx, part.Body)
		if err != nil {
			l.Log.Error("StudyLoader.LoadSeries error registering blob",
				zap.String(constvars.LoggingRequestIDKey, requestID),
				zap.Int(constvars.LoggingPartIndexKey, i),
				zap.Error(err),
			)
			return nil, err
		}

		fields := decoded[i].fields
		series, ok := bySeries[fields.SeriesID]
		if !ok {
			series = models.NewSeries(fields.SeriesID)
			bySeries[fields.SeriesID] = series
			ordered = append(ordered, series)
		}
		series.AddInstance(imageID, fields)
	}

	if len(ordered) == 0 {
		err := fmt.Errorf("%w: none of %d parts could be decoded", ErrMalformedPayload, len(parts))
		l.Log.Error("StudyLoader.LoadSeries no decodable instances",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(err),
		)
		return nil, err
	}

	l.Log.Info("StudyLoader.LoadSeries succeeded",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.Int(constvars.LoggingPartsCountKey, len(parts)),
		zap.Int(constvars.LoggingSeriesCountKey, len(ordered)),
	)
	return ordered, nil
}

func (l *StudyLoader) fetchParts(ctx context.Context, uri string) ([]Part, error) {
	resp, err := l.source.FetchMultipart(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &UpstreamStatusError{URI: uri, StatusCode: resp.StatusCode}
	}

	contentType := resp.Header.Get(constvars.HeaderContentType)
	boundary := ParseBoundary(contentType)
	if boundary == "" {
		return nil, fmt.Errorf("%w: no boundary in content type %q", ErrMalformedPayload, contentType)
	}

	var body io.Reader = resp.Body
	if l.config.MaxPayloadSize > 0 {
		body = io.LimitReader(resp.Body, l.config.MaxPayloadSize+1)
	}
	buf, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if l.config.MaxPayloadSize > 0 && int64(len(buf)) > l.config.MaxPayloadSize {
		return nil, fmt.Errorf("%w: payload larger than %d bytes", ErrMalformedPayload, l.config.MaxPayloadSize)
	}

	parts := ParseMultipart(buf, boundary)
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: no parts found for boundary %q", ErrMalformedPayload, boundary)
	}

	l.Log.Debug("StudyLoader.fetchParts parsed payload",
		zap.String(constvars.LoggingRequestIDKey, utils.RequestIDFromContext(ctx)),
		zap.String(constvars.LoggingBoundaryKey, boundary),
		zap.Int(constvars.LoggingPayloadSizeKey, len(buf)),
		zap.Int(constvars.LoggingPartsCountKey, len(parts)),
	)
	return parts, nil
}

// decodeParts decodes all parts concurrently. Results keep the part order.
// Under the strict policy the first failure cancels the remaining work.
func (l *StudyLoader) decodeParts(ctx context.Context, parts []Part) ([]decodedPart, error) {
	lenient := l.config.DecodePolicy == constvars.DicomDecodePolicyLenient
	results := make([]decodedPart, len(parts))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(l.config.DecodeConcurrency)
	for i := range parts {
		i := i
		group.Go(func() error {
			fields, err := l.decodePart(groupCtx, parts[i])
			if err == nil {
				results[i].fields = fields
				return nil
			}
			if lenient && errors.Is(err, ErrDecodeInstance) {
				l.Log.Warn("StudyLoader.decodeParts skipping undecodable part",
					zap.String(constvars.LoggingRequestIDKey, utils.RequestIDFromContext(ctx)),
					zap.Int(constvars.LoggingPartIndexKey, i),
					zap.Error(err),
				)
				results[i].skipped = true
				return nil
			}
			return fmt.Errorf("part %d: %w", i, err)
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (l *StudyLoader) decodePart(ctx context.Context, part Part) (models.InstanceFields, error) {
	instance, err := l.decoder.Decode(ctx, part.Body)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrDecodeInstance) {
			return models.InstanceFields{}, err
		}
		return models.InstanceFields{}, fmt.Errorf("%w: %v", ErrDecodeInstance, err)
	}
	return ExtractFields(instance)
}
