package studies

import (
	"context"
	"errors"
	"fmt"
	"imaging-demo-service/internal/app/config"
	"imaging-demo-service/internal/app/contracts"
	"imaging-demo-service/internal/app/models"
	"imaging-demo-service/internal/app/services/dicom"
	"imaging-demo-service/internal/pkg/constvars"
	"imaging-demo-service/internal/pkg/dto/responses"
	"imaging-demo-service/internal/pkg/exceptions"
	"imaging-demo-service/internal/pkg/fhir_dto"
	"imaging-demo-service/internal/pkg/utils"
	"io"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	studyUsecaseInstance contracts.StudyUsecase
	onceStudyUsecase     sync.Once
)

type studyUsecase struct {
	ImagingStudyFhirClient  contracts.ImagingStudyFhirClient
	StudyManifestRepository contracts.StudyManifestRepository
	RedisRepository         contracts.RedisRepository
	LockerService           contracts.LockerService
	DownloadQueue           contracts.DownloadQueue
	ResourceLimiter         contracts.ResourceLimiter
	SeriesLoader            models.SeriesLoader
	BlobRegistry            dicom.BlobRegistry
	InternalConfig          *config.InternalConfig
	Log                     *zap.Logger

	mu      sync.Mutex
	studies map[string]*models.Study
	now     func() time.Time
}

func NewStudyUsecase(
	imagingStudyFhirClient contracts.ImagingStudyFhirClient,
	studyManifestRepository contracts.StudyManifestRepository,
	redisRepository contracts.RedisRepository,
	lockerService contracts.LockerService,
	downloadQueue contracts.DownloadQueue,
	resourceLimiter contracts.ResourceLimiter,
	seriesLoader models.SeriesLoader,
	blobRegistry dicom.BlobRegistry,
	internalConfig *config.InternalConfig,
	logger *zap.Logger,
) contracts.StudyUsecase {
	onceStudyUsecase.Do(func() {
		studyUsecaseInstance = &studyUsecase{
			ImagingStudyFhirClient:  imagingStudyFhirClient,
			StudyManifestRepository: studyManifestRepository,
			RedisRepository:         redisRepository,
			LockerService:           lockerService,
			DownloadQueue:           downloadQueue,
			ResourceLimiter:         resourceLimiter,
			SeriesLoader:            seriesLoader,
			BlobRegistry:            blobRegistry,
			InternalConfig:          internalConfig,
			Log:                     logger,
			studies:                 make(map[string]*models.Study),
			now:                     time.Now,
		}
	})
	return studyUsecaseInstance
}

// ListStudies maps the patient's ImagingStudy resources and reports the
// download state of each.
func (uc *studyUsecase) ListStudies(ctx context.Context, patientID string) ([]responses.Study, error) {
	requestID := utils.RequestIDFromContext(ctx)
	uc.Log.Info("studyUsecase.ListStudies called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingPatientIDKey, patientID),
	)

	studies, err := uc.loadStudies(ctx, patientID)
	if err != nil {
		uc.Log.Error("studyUsecase.ListStudies error loading studies",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(err),
		)
		return nil, err
	}

	response := make([]responses.Study, 0, len(studies))
	for _, study := range studies {
		uc.restoreFromManifest(ctx, patientID, study)
		response = append(response, uc.buildStudyResponse(ctx, study))
	}

	uc.Log.Info("studyUsecase.ListStudies succeeded",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.Int(constvars.LoggingStudiesCountKey, len(response)),
	)
	return response, nil
}

// DownloadStudy retrieves and groups the study's instances. A study that was
// already downloaded, here or by another instance, is returned without
// contacting the imaging server.
func (uc *studyUsecase) DownloadStudy(ctx context.Context, patientID, studyID string) (*responses.DownloadedStudy, error) {
	requestID := utils.RequestIDFromContext(ctx)
	uc.Log.Info("studyUsecase.DownloadStudy called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingPatientIDKey, patientID),
		zap.String(constvars.LoggingStudyIDKey, studyID),
	)

	study, err := uc.findStudy(ctx, patientID, studyID)
	if err != nil {
		return nil, err
	}

	if uc.restoreFromManifest(ctx, patientID, study) {
		uc.Log.Info("studyUsecase.DownloadStudy already downloaded",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingStudyIDKey, study.StudyID()),
		)
		return uc.buildDownloadedResponse(ctx, study), nil
	}

	lockKey := fmt.Sprintf(constvars.RedisKeyStudyDownloadLockFormat, study.StudyID())
	lockTTL := time.Duration(uc.InternalConfig.Dicom.DownloadLockTTLInSeconds) * time.Second
	acquired, lockValue, err := uc.LockerService.TryLock(ctx, lockKey, lockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, exceptions.ErrStudyDownloadInProgress(nil, study.StudyID())
	}
	defer func() {
		// the request context may already be done
		unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := uc.LockerService.Unlock(unlockCtx, lockKey, lockValue); err != nil {
			uc.Log.Warn("studyUsecase.DownloadStudy error releasing lock",
				zap.String(constvars.LoggingRequestIDKey, requestID),
				zap.Error(err),
			)
		}
	}()

	uc.storeState(ctx, study.StudyID(), constvars.StudyStateDownloading)

	downloadCtx, cancel := context.WithTimeout(ctx, time.Duration(uc.InternalConfig.Dicom.DownloadTimeoutInSeconds)*time.Second)
	defer cancel()

	err = study.Download(downloadCtx, uc.SeriesLoader)
	if err != nil {
		if !errors.Is(err, models.ErrDownloadInProgress) {
			uc.storeState(context.WithoutCancel(ctx), study.StudyID(), constvars.StudyStateFailed)
		}
		uc.Log.Error("studyUsecase.DownloadStudy error downloading study",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingStudyIDKey, study.StudyID()),
			zap.Error(err),
		)
		return nil, mapDownloadError(err, study.StudyID())
	}

	manifest := models.NewStudyManifest(study, patientID, uc.now().UTC())
	err = uc.StudyManifestRepository.Upsert(ctx, manifest)
	if err != nil {
		uc.Log.Error("studyUsecase.DownloadStudy error persisting manifest",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingStudyIDKey, study.StudyID()),
			zap.Error(err),
		)
	}
	uc.storeState(ctx, study.StudyID(), constvars.StudyStateDownloaded)

	uc.Log.Info("studyUsecase.DownloadStudy succeeded",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingStudyIDKey, study.StudyID()),
		zap.Int(constvars.LoggingSeriesCountKey, study.NSeries()),
	)
	return uc.buildDownloadedResponse(ctx, study), nil
}

// PrefetchStudy queues a background download of the study.
func (uc *studyUsecase) PrefetchStudy(ctx context.Context, patientID, studyID string) (*responses.QueuedDownload, error) {
	requestID := utils.RequestIDFromContext(ctx)
	uc.Log.Info("studyUsecase.PrefetchStudy called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingStudyIDKey, studyID),
	)

	study, err := uc.findStudy(ctx, patientID, studyID)
	if err != nil {
		return nil, err
	}

	allowed, retryAfter, err := uc.ResourceLimiter.Allow(ctx, constvars.RateLimiterGroupPrefetch, patientID, time.Minute, uc.InternalConfig.Dicom.PrefetchQuotaPerMinute)
	if err != nil {
		return nil, err
	}
	if !allowed {
		uc.Log.Warn("studyUsecase.PrefetchStudy quota exceeded",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingPatientIDKey, patientID),
		)
		return nil, exceptions.ErrPrefetchQuotaExceeded(nil, patientID, int(math.Ceil(retryAfter.Seconds())))
	}

	job := &models.DownloadJob{
		ID:          uuid.NewString(),
		RequestID:   requestID,
		PatientID:   patientID,
		StudyID:     study.StudyID(),
		BearerToken: utils.BearerTokenFromContext(ctx),
		EnqueuedAt:  uc.now().UTC(),
	}
	err = uc.DownloadQueue.Enqueue(ctx, job)
	if err != nil {
		uc.Log.Error("studyUsecase.PrefetchStudy error enqueueing job",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(err),
		)
		return nil, err
	}

	uc.Log.Info("studyUsecase.PrefetchStudy succeeded",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingStudyIDKey, study.StudyID()),
	)
	return &responses.QueuedDownload{JobID: job.ID, StudyID: study.StudyID()}, nil
}

// ProcessDownloadJob runs a queued download with the requester's credentials.
// A download already running elsewhere counts as done. Jobs older than the
// job TTL or carrying an expired JWT are dropped without calling upstream.
func (uc *studyUsecase) ProcessDownloadJob(ctx context.Context, job *models.DownloadJob) error {
	jobTTL := time.Duration(uc.InternalConfig.Dicom.DownloadJobTTLInMinutes) * time.Minute
	now := uc.now()
	if now.Sub(job.EnqueuedAt) > jobTTL || utils.IsExpiredJWT(job.BearerToken, now) {
		uc.Log.Warn("studyUsecase.ProcessDownloadJob dropping stale job",
			zap.String(constvars.LoggingRequestIDKey, job.RequestID),
			zap.String(constvars.LoggingStudyIDKey, job.StudyID),
			zap.Time(constvars.LoggingEnqueuedAtKey, job.EnqueuedAt),
		)
		return nil
	}

	ctx = context.WithValue(ctx, constvars.CONTEXT_REQUEST_ID_KEY, job.RequestID)
	ctx = context.WithValue(ctx, constvars.CONTEXT_BEARER_TOKEN_KEY, job.BearerToken)

	_, err := uc.DownloadStudy(ctx, job.PatientID, job.StudyID)
	if err != nil && !errors.Is(err, models.ErrDownloadInProgress) && !isInProgress(err) {
		return err
	}
	return nil
}

func (uc *studyUsecase) ListSeries(ctx context.Context, patientID, studyID string) ([]responses.Series, error) {
	study, err := uc.downloadedStudy(ctx, patientID, studyID)
	if err != nil {
		return nil, err
	}
	return buildSeriesResponses(study.Series()), nil
}

func (uc *studyUsecase) GetSeries(ctx context.Context, patientID, studyID string, seriesIndex int) (*responses.Series, error) {
	study, err := uc.downloadedStudy(ctx, patientID, studyID)
	if err != nil {
		return nil, err
	}
	series := study.Series()
	if seriesIndex < 0 || seriesIndex >= len(series) {
		return nil, exceptions.ErrSeriesIndexOutOfRange(nil, seriesIndex)
	}
	response := buildSeriesResponse(seriesIndex, series[seriesIndex])
	return &response, nil
}

// ViewStudy resolves a single-series study to that series. Studies with more
// series ask the caller to pick one.
func (uc *studyUsecase) ViewStudy(ctx context.Context, patientID, studyID string) (*responses.StudyView, error) {
	study, err := uc.downloadedStudy(ctx, patientID, studyID)
	if err != nil {
		return nil, err
	}

	view := &responses.StudyView{Description: study.Description()}
	series := buildSeriesResponses(study.Series())
	if len(series) == 1 {
		view.Series = &series[0]
		return view, nil
	}
	view.SelectionRequired = true
	view.Choices = series
	return view, nil
}

// OpenImage streams an instance of a downloaded study. The image has to
// belong to the study, which the caller must be able to list.
func (uc *studyUsecase) OpenImage(ctx context.Context, patientID, studyID, imageID string) (io.ReadCloser, int64, error) {
	requestID := utils.RequestIDFromContext(ctx)
	uc.Log.Info("studyUsecase.OpenImage called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingStudyIDKey, studyID),
		zap.String(constvars.LoggingImageIDKey, imageID),
	)

	study, err := uc.downloadedStudy(ctx, patientID, studyID)
	if err != nil {
		return nil, 0, err
	}
	if !studyHasImage(study, imageID) {
		uc.Log.Warn("studyUsecase.OpenImage image outside study",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingStudyIDKey, study.StudyID()),
			zap.String(constvars.LoggingImageIDKey, imageID),
		)
		return nil, 0, exceptions.ErrBlobNotFound(nil, imageID)
	}

	reader, size, err := uc.BlobRegistry.Open(ctx, imageID)
	if err != nil {
		if errors.Is(err, dicom.ErrBlobNotFound) {
			return nil, 0, exceptions.ErrBlobNotFound(err, imageID)
		}
		uc.Log.Error("studyUsecase.OpenImage error opening blob",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(err),
		)
		return nil, 0, err
	}
	return reader, size, nil
}

// loadStudies returns the patient's studies, reusing Study values already
// known to this process so their downloaded series are kept.
func (uc *studyUsecase) loadStudies(ctx context.Context, patientID string) ([]*models.Study, error) {
	resources, err := uc.imagingStudies(ctx, patientID)
	if err != nil {
		return nil, err
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	studies := make([]*models.Study, 0, len(resources))
	for i := range resources {
		candidate := models.NewStudyFromImagingStudy(&resources[i])
		key := studyKey(patientID, candidate.StudyID())
		study, ok := uc.studies[key]
		if !ok {
			uc.studies[key] = candidate
			study = candidate
		}
		studies = append(studies, study)
	}
	return studies, nil
}

// imagingStudies serves the ImagingStudy search from redis when cached. The
// cache is per bearer token, so only a search the FHIR server answered for
// this caller is reused.
func (uc *studyUsecase) imagingStudies(ctx context.Context, patientID string) ([]fhir_dto.ImagingStudy, error) {
	requestID := utils.RequestIDFromContext(ctx)
	cacheKey := fmt.Sprintf(constvars.RedisKeyImagingStudiesFormat, patientID, utils.TokenFingerprint(utils.BearerTokenFromContext(ctx)))
	cacheTTL := time.Duration(uc.InternalConfig.Cache.ImagingStudiesTTLInSeconds) * time.Second

	if cacheTTL > 0 {
		cached, err := uc.RedisRepository.Get(ctx, cacheKey)
		if err != nil {
			uc.Log.Warn("studyUsecase.imagingStudies error reading cache",
				zap.String(constvars.LoggingRequestIDKey, requestID),
				zap.Error(err),
			)
		} else if cached != "" {
			var resources []fhir_dto.ImagingStudy
			if err := json.Unmarshal([]byte(cached), &resources); err == nil {
				uc.Log.Debug("studyUsecase.imagingStudies cache hit",
					zap.String(constvars.LoggingRequestIDKey, requestID),
					zap.Bool(constvars.LoggingCacheHitKey, true),
				)
				return resources, nil
			}
		}
	}

	resources, err := uc.ImagingStudyFhirClient.FindImagingStudiesByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	if cacheTTL > 0 {
		if err := uc.RedisRepository.Set(ctx, cacheKey, resources, cacheTTL); err != nil {
			uc.Log.Warn("studyUsecase.imagingStudies error writing cache",
				zap.String(constvars.LoggingRequestIDKey, requestID),
				zap.Error(err),
			)
		}
	}
	return resources, nil
}

// findStudy resolves a study through the caller's own ImagingStudy search.
// Studies known to this process are never handed out without it.
func (uc *studyUsecase) findStudy(ctx context.Context, patientID, studyID string) (*models.Study, error) {
	studies, err := uc.loadStudies(ctx, patientID)
	if err != nil {
		return nil, err
	}
	for _, study := range studies {
		if study.StudyID() == studyID || study.ResourceID() == studyID {
			return study, nil
		}
	}
	return nil, exceptions.ErrStudyNotFound(nil, studyID)
}

func (uc *studyUsecase) downloadedStudy(ctx context.Context, patientID, studyID string) (*models.Study, error) {
	study, err := uc.findStudy(ctx, patientID, studyID)
	if err != nil {
		return nil, err
	}
	uc.restoreFromManifest(ctx, patientID, study)
	switch study.State() {
	case models.StudyStatePopulated:
		return study, nil
	case models.StudyStateDownloading:
		return nil, exceptions.ErrStudyDownloadInProgress(nil, study.StudyID())
	default:
		return nil, exceptions.ErrStudyNotDownloaded(nil, study.StudyID())
	}
}

// restoreFromManifest populates a metadata-only study from its persisted
// manifest and reports whether the study is populated afterwards.
func (uc *studyUsecase) restoreFromManifest(ctx context.Context, patientID string, study *models.Study) bool {
	if study.State() != models.StudyStateMetadataOnly {
		return study.State() == models.StudyStatePopulated
	}

	manifest, err := uc.StudyManifestRepository.FindByStudyID(ctx, patientID, study.StudyID())
	if err != nil {
		uc.Log.Warn("studyUsecase.restoreFromManifest error reading manifest",
			zap.String(constvars.LoggingRequestIDKey, utils.RequestIDFromContext(ctx)),
			zap.String(constvars.LoggingStudyIDKey, study.StudyID()),
			zap.Error(err),
		)
		return false
	}
	if manifest == nil {
		return false
	}

	series := make([]*models.Series, 0, len(manifest.Series))
	for _, seriesManifest := range manifest.Series {
		series = append(series, models.RestoreSeries(seriesManifest))
	}
	study.Populate(series)
	return study.State() == models.StudyStatePopulated
}

func (uc *studyUsecase) storeState(ctx context.Context, studyID, state string) {
	stateKey := fmt.Sprintf(constvars.RedisKeyStudyStateFormat, studyID)
	stateTTL := time.Duration(uc.InternalConfig.Dicom.StudyStateTTLInMinutes) * time.Minute
	if err := uc.RedisRepository.Set(ctx, stateKey, state, stateTTL); err != nil {
		uc.Log.Warn("studyUsecase.storeState error writing study state",
			zap.String(constvars.LoggingRequestIDKey, utils.RequestIDFromContext(ctx)),
			zap.String(constvars.LoggingStudyStateKey, state),
			zap.Error(err),
		)
	}
}

// studyState is the card state shown in the study list. The local Study wins;
// otherwise the state shared through redis by other instances is used.
func (uc *studyUsecase) studyState(ctx context.Context, study *models.Study) string {
	switch study.State() {
	case models.StudyStatePopulated:
		return constvars.StudyStateDownloaded
	case models.StudyStateDownloading:
		return constvars.StudyStateDownloading
	}
	if study.LastError() != nil {
		return constvars.StudyStateFailed
	}

	stored, err := uc.RedisRepository.Get(ctx, fmt.Sprintf(constvars.RedisKeyStudyStateFormat, study.StudyID()))
	if err != nil || stored == "" {
		return constvars.StudyStateInitial
	}
	state, err := strconv.Unquote(stored)
	if err != nil {
		return constvars.StudyStateInitial
	}
	// downloaded without a manifest means the series are gone
	if state == constvars.StudyStateDownloaded {
		return constvars.StudyStateInitial
	}
	return state
}

func (uc *studyUsecase) buildStudyResponse(ctx context.Context, study *models.Study) responses.Study {
	return responses.Study{
		StudyID:            study.StudyID(),
		State:              uc.studyState(ctx, study),
		Description:        study.Description(),
		Modalities:         study.Modalities(),
		Date:               study.Date(),
		Accession:          study.Accession(),
		ReferringPhysician: study.ReferringPhysician(),
		NumberOfSeries:     study.NSeries(),
	}
}

func (uc *studyUsecase) buildDownloadedResponse(ctx context.Context, study *models.Study) *responses.DownloadedStudy {
	return &responses.DownloadedStudy{
		Study:  uc.buildStudyResponse(ctx, study),
		Series: buildSeriesResponses(study.Series()),
	}
}

func buildSeriesResponses(series []*models.Series) []responses.Series {
	response := make([]responses.Series, 0, len(series))
	for i, s := range series {
		response = append(response, buildSeriesResponse(i, s))
	}
	return response
}

func buildSeriesResponse(index int, series *models.Series) responses.Series {
	return responses.Series{
		Index:            index,
		SeriesID:         series.SeriesID(),
		Description:      series.Description(),
		Modality:         series.Modality(),
		StudyDescription: series.StudyDescription(),
		PatientName:      series.PatientName(),
		ImageIDs:         series.ImageIDs(),
	}
}

func studyHasImage(study *models.Study, imageID string) bool {
	base := dicom.ImageIDBase(imageID)
	for _, series := range study.Series() {
		for _, candidate := range series.ImageIDs() {
			if dicom.ImageIDBase(candidate) == base {
				return true
			}
		}
	}
	return false
}

func studyKey(patientID, studyID string) string {
	return patientID + "/" + studyID
}

func isInProgress(err error) bool {
	var customErr *exceptions.CustomError
	return errors.As(err, &customErr) && customErr.ClientMessage == constvars.ErrClientStudyDownloadInProgress
}

// mapDownloadError turns core download failures into HTTP aware errors.
func mapDownloadError(err error, studyID string) error {
	var statusErr *dicom.UpstreamStatusError
	switch {
	case errors.Is(err, models.ErrDownloadInProgress):
		return exceptions.ErrStudyDownloadInProgress(err, studyID)
	case errors.Is(err, models.ErrMissingEndpoint):
		return exceptions.ErrDicomMissingEndpoint(err)
	case errors.Is(err, dicom.ErrRetriesExhausted):
		return exceptions.ErrDicomRetriesExhausted(err)
	case errors.Is(err, context.DeadlineExceeded):
		return exceptions.ErrServerDeadlineExceeded(fmt.Errorf("%s: %w", err.Error(), context.DeadlineExceeded))
	case errors.Is(err, dicom.ErrMalformedPayload):
		return exceptions.ErrDicomMalformedPayload(err)
	case errors.Is(err, dicom.ErrDecodeInstance):
		return exceptions.ErrDicomDecodeInstance(err)
	case errors.As(err, &statusErr):
		return exceptions.ErrDicomUpstreamStatus(err)
	}

	var customErr *exceptions.CustomError
	if errors.As(err, &customErr) {
		return customErr
	}
	return exceptions.ErrServerProcess(err)
}
