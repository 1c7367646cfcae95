package controllers

import (
	"imaging-demo-service/internal/app/contracts"
	"imaging-demo-service/internal/pkg/constvars"
	"imaging-demo-service/internal/pkg/utils"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

type PatientController struct {
	Log            *zap.Logger
	PatientUsecase contracts.PatientUsecase
}

var (
	patientControllerInstance *PatientController
	oncePatientController     sync.Once
)

func NewPatientController(logger *zap.Logger, patientUsecase contracts.PatientUsecase) *PatientController {
	oncePatientController.Do(func() {
		instance := &PatientController{
			Log:            logger,
			PatientUsecase: patientUsecase,
		}
		patientControllerInstance = instance
	})
	return patientControllerInstance
}

func (ctrl *PatientController) GetDemographics(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID, ok := requestIDFromRequest(ctrl.Log, w, r)
	if !ok {
		return
	}
	patientID, ok := urlParam(ctrl.Log, w, r, constvars.URLParamPatientID)
	if !ok {
		return
	}

	demographics, err := ctrl.PatientUsecase.GetDemographics(r.Context(), patientID)
	if err != nil {
		ctrl.Log.Error("Failed to get patient demographics",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingPatientIDKey, patientID),
			zap.Duration(constvars.LoggingDurationKey, time.Since(start)),
			zap.Error(err),
		)
		utils.BuildErrorResponse(ctrl.Log, w, err)
		return
	}

	utils.BuildSuccessResponse(w, constvars.StatusOK, constvars.ResponsePatientFound, demographics)
}
