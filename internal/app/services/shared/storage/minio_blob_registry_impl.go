package storage

import (
	"bytes"
	"context"
	"fmt"
	"imaging-demo-service/internal/app/services/dicom"
	"imaging-demo-service/internal/pkg/constvars"
	"imaging-demo-service/internal/pkg/exceptions"
	"imaging-demo-service/internal/pkg/utils"
	"io"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// ObjectStore is the subset of *minio.Client used by the registry.
type ObjectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

type minioBlobRegistry struct {
	store      ObjectStore
	bucketName string
	Log        *zap.Logger
}

// NewMinioBlobRegistry stores every registered instance as an object in
// bucketName. The object name is the image id, so ids survive restarts.
func NewMinioBlobRegistry(store ObjectStore, bucketName string, logger *zap.Logger) dicom.BlobRegistry {
	return &minioBlobRegistry{
		store:      store,
		bucketName: bucketName,
		Log:        logger,
	}
}

func (r *minioBlobRegistry) Register(ctx context.Context, blob []byte) (string, error) {
	requestID := utils.RequestIDFromContext(ctx)
	imageID := constvars.DicomImageIDPrefix + uuid.NewString()

	_, err := r.store.PutObject(ctx, r.bucketName, imageID, bytes.NewReader(blob), int64(len(blob)), minio.PutObjectOptions{
		ContentType: constvars.MIMEApplicationDICOM,
	})
	if err != nil {
		r.Log.Error("minioBlobRegistry.Register error putting object",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingBucketNameKey, r.bucketName),
			zap.String(constvars.LoggingObjectNameKey, imageID),
			zap.Error(err),
		)
		return "", exceptions.ErrMinioCreateObject(err, r.bucketName)
	}

	r.Log.Debug("minioBlobRegistry.Register succeeded",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingObjectNameKey, imageID),
		zap.Int(constvars.LoggingPayloadSizeKey, len(blob)),
	)
	return imageID, nil
}

// Open accepts frame-suffixed ids and streams the whole instance.
func (r *minioBlobRegistry) Open(ctx context.Context, imageID string) (io.ReadCloser, int64, error) {
	requestID := utils.RequestIDFromContext(ctx)
	objectName := dicom.ImageIDBase(imageID)

	info, err := r.store.StatObject(ctx, r.bucketName, objectName, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, 0, fmt.Errorf("%w: %s", dicom.ErrBlobNotFound, imageID)
		}
		r.Log.Error("minioBlobRegistry.Open error stating object",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingObjectNameKey, objectName),
			zap.Error(err),
		)
		return nil, 0, exceptions.ErrMinioGetObject(err, r.bucketName)
	}

	object, err := r.store.GetObject(ctx, r.bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		r.Log.Error("minioBlobRegistry.Open error getting object",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingObjectNameKey, objectName),
			zap.Error(err),
		)
		return nil, 0, exceptions.ErrMinioGetObject(err, r.bucketName)
	}
	return object, info.Size, nil
}
