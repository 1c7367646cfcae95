package controllers

import (
	"imaging-demo-service/internal/app/contracts"
	"imaging-demo-service/internal/pkg/constvars"
	"imaging-demo-service/internal/pkg/exceptions"
	"imaging-demo-service/internal/pkg/utils"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

type StudyController struct {
	Log          *zap.Logger
	StudyUsecase contracts.StudyUsecase
}

var (
	studyControllerInstance *StudyController
	onceStudyController     sync.Once
)

func NewStudyController(logger *zap.Logger, studyUsecase contracts.StudyUsecase) *StudyController {
	onceStudyController.Do(func() {
		instance := &StudyController{
			Log:          logger,
			StudyUsecase: studyUsecase,
		}
		studyControllerInstance = instance
	})
	return studyControllerInstance
}

func (ctrl *StudyController) ListStudies(w http.ResponseWriter, r *http.Request) {
	requestID, ok := requestIDFromRequest(ctrl.Log, w, r)
	if !ok {
		return
	}
	patientID, ok := urlParam(ctrl.Log, w, r, constvars.URLParamPatientID)
	if !ok {
		return
	}

	studies, err := ctrl.StudyUsecase.ListStudies(r.Context(), patientID)
	if err != nil {
		ctrl.Log.Error("Failed to list studies",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingPatientIDKey, patientID),
			zap.Error(err),
		)
		utils.BuildErrorResponse(ctrl.Log, w, err)
		return
	}

	utils.BuildSuccessResponse(w, constvars.StatusOK, constvars.ResponseStudiesFound, studies)
}

func (ctrl *StudyController) DownloadStudy(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID, patientID, studyID, ok := ctrl.studyParams(w, r)
	if !ok {
		return
	}

	downloaded, err := ctrl.StudyUsecase.DownloadStudy(r.Context(), patientID, studyID)
	if err != nil {
		ctrl.Log.Error("Failed to download study",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingStudyIDKey, studyID),
			zap.Duration(constvars.LoggingDurationKey, time.Since(start)),
			zap.Error(err),
		)
		utils.BuildErrorResponse(ctrl.Log, w, err)
		return
	}

	ctrl.Log.Info("Study downloaded",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingStudyIDKey, studyID),
		zap.Int(constvars.LoggingSeriesCountKey, len(downloaded.Series)),
		zap.Duration(constvars.LoggingDurationKey, time.Since(start)),
	)
	utils.BuildSuccessResponse(w, constvars.StatusOK, constvars.ResponseStudyDownloaded, downloaded)
}

func (ctrl *StudyController) PrefetchStudy(w http.ResponseWriter, r *http.Request) {
	requestID, patientID, studyID, ok := ctrl.studyParams(w, r)
	if !ok {
		return
	}

	queued, err := ctrl.StudyUsecase.PrefetchStudy(r.Context(), patientID, studyID)
	if err != nil {
		ctrl.Log.Error("Failed to queue study download",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingStudyIDKey, studyID),
			zap.Error(err),
		)
		utils.BuildErrorResponse(ctrl.Log, w, err)
		return
	}

	utils.BuildSuccessResponse(w, constvars.StatusAccepted, constvars.ResponseStudyQueued, queued)
}

func (ctrl *StudyController) ListSeries(w http.ResponseWriter, r *http.Request) {
	requestID, patientID, studyID, ok := ctrl.studyParams(w, r)
	if !ok {
		return
	}

	series, err := ctrl.StudyUsecase.ListSeries(r.Context(), patientID, studyID)
	if err != nil {
		ctrl.Log.Error("Failed to list series",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingStudyIDKey, studyID),
			zap.Error(err),
		)
		utils.BuildErrorResponse(ctrl.Log, w, err)
		return
	}

	utils.BuildSuccessResponse(w, constvars.StatusOK, constvars.ResponseSeriesFound, series)
}

func (ctrl *StudyController) GetSeries(w http.ResponseWriter, r *http.Request) {
	requestID, patientID, studyID, ok := ctrl.studyParams(w, r)
	if !ok {
		return
	}
	rawIndex, ok := urlParam(ctrl.Log, w, r, constvars.URLParamSeriesIndex)
	if !ok {
		return
	}
	seriesIndex, err := strconv.Atoi(rawIndex)
	if err != nil {
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrURLParamValidation(err, constvars.URLParamSeriesIndex))
		return
	}

	series, err := ctrl.StudyUsecase.GetSeries(r.Context(), patientID, studyID, seriesIndex)
	if err != nil {
		ctrl.Log.Error("Failed to get series",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingStudyIDKey, studyID),
			zap.Int(constvars.LoggingSeriesIndexKey, seriesIndex),
			zap.Error(err),
		)
		utils.BuildErrorResponse(ctrl.Log, w, err)
		return
	}

	utils.BuildSuccessResponse(w, constvars.StatusOK, constvars.ResponseSeriesFound, series)
}

func (ctrl *StudyController) ViewStudy(w http.ResponseWriter, r *http.Request) {
	requestID, patientID, studyID, ok := ctrl.studyParams(w, r)
	if !ok {
		return
	}

	view, err := ctrl.StudyUsecase.ViewStudy(r.Context(), patientID, studyID)
	if err != nil {
		ctrl.Log.Error("Failed to view study",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingStudyIDKey, studyID),
			zap.Error(err),
		)
		utils.BuildErrorResponse(ctrl.Log, w, err)
		return
	}

	message := constvars.ResponseSeriesFound
	if view.SelectionRequired {
		message = constvars.ResponseSelectSeries
	}
	utils.BuildSuccessResponse(w, constvars.StatusOK, message, view)
}

func (ctrl *StudyController) studyParams(w http.ResponseWriter, r *http.Request) (requestID, patientID, studyID string, ok bool) {
	if requestID, ok = requestIDFromRequest(ctrl.Log, w, r); !ok {
		return
	}
	if patientID, ok = urlParam(ctrl.Log, w, r, constvars.URLParamPatientID); !ok {
		return
	}
	studyID, ok = urlParam(ctrl.Log, w, r, constvars.URLParamStudyID)
	return
}
