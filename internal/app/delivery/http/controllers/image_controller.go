package controllers

import (
	"imaging-demo-service/internal/app/contracts"
	"imaging-demo-service/internal/pkg/constvars"
	"imaging-demo-service/internal/pkg/utils"
	"io"
	"net/http"
	"strconv"
	"sync"

	"go.uber.org/zap"
)

type ImageController struct {
	Log          *zap.Logger
	StudyUsecase contracts.StudyUsecase
}

var (
	imageControllerInstance *ImageController
	onceImageController     sync.Once
)

func NewImageController(logger *zap.Logger, studyUsecase contracts.StudyUsecase) *ImageController {
	onceImageController.Do(func() {
		instance := &ImageController{
			Log:          logger,
			StudyUsecase: studyUsecase,
		}
		imageControllerInstance = instance
	})
	return imageControllerInstance
}

// GetImage streams the registered instance bytes of an image that belongs to
// the downloaded study. The frame query of a multi-frame image id is ignored;
// the viewer selects the frame itself.
func (ctrl *ImageController) GetImage(w http.ResponseWriter, r *http.Request) {
	requestID, ok := requestIDFromRequest(ctrl.Log, w, r)
	if !ok {
		return
	}
	patientID, ok := urlParam(ctrl.Log, w, r, constvars.URLParamPatientID)
	if !ok {
		return
	}
	studyID, ok := urlParam(ctrl.Log, w, r, constvars.URLParamStudyID)
	if !ok {
		return
	}
	imageID, ok := urlParam(ctrl.Log, w, r, constvars.URLParamImageID)
	if !ok {
		return
	}

	reader, size, err := ctrl.StudyUsecase.OpenImage(r.Context(), patientID, studyID, imageID)
	if err != nil {
		ctrl.Log.Error("Failed to open image",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingStudyIDKey, studyID),
			zap.String(constvars.LoggingImageIDKey, imageID),
			zap.Error(err),
		)
		utils.BuildErrorResponse(ctrl.Log, w, err)
		return
	}
	defer reader.Close()

	w.Header().Set(constvars.HeaderContentType, constvars.MIMEApplicationDICOM)
	if size >= 0 {
		w.Header().Set(constvars.HeaderContentLength, strconv.FormatInt(size, 10))
	}
	w.WriteHeader(constvars.StatusOK)
	if _, err := io.Copy(w, reader); err != nil {
		ctrl.Log.Warn("Image stream interrupted",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingImageIDKey, imageID),
			zap.Error(err),
		)
	}
}
