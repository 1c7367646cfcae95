package storage

import (
	"context"
	"errors"
	"imaging-demo-service/internal/app/services/dicom"
	"imaging-demo-service/internal/pkg/constvars"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockObjectStore struct {
	mock.Mock
	uploaded map[string]string
}

func (m *mockObjectStore) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(bucketName, objectSize, opts.ContentType)
	if args.Error(1) == nil {
		content, _ := io.ReadAll(reader)
		m.uploaded[objectName] = string(content)
	}
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func (m *mockObjectStore) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error) {
	args := m.Called(bucketName, objectName)
	object, _ := args.Get(0).(*minio.Object)
	return object, args.Error(1)
}

func (m *mockObjectStore) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	args := m.Called(bucketName, objectName)
	return args.Get(0).(minio.ObjectInfo), args.Error(1)
}

func TestMinioBlobRegistry_Register(t *testing.T) {
	t.Run("stores the blob under a fresh image id", func(t *testing.T) {
		store := &mockObjectStore{uploaded: map[string]string{}}
		store.On("PutObject", "dicom-instances", int64(5), constvars.MIMEApplicationDICOM).Return(minio.UploadInfo{}, nil)
		registry := NewMinioBlobRegistry(store, "dicom-instances", zap.NewNop())

		imageID, err := registry.Register(context.Background(), []byte("hello"))

		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(imageID, constvars.DicomImageIDPrefix))
		assert.Equal(t, "hello", store.uploaded[imageID])
		store.AssertExpectations(t)
	})

	t.Run("upload failure", func(t *testing.T) {
		store := &mockObjectStore{uploaded: map[string]string{}}
		store.On("PutObject", "dicom-instances", int64(5), constvars.MIMEApplicationDICOM).Return(minio.UploadInfo{}, errors.New("bucket gone"))
		registry := NewMinioBlobRegistry(store, "dicom-instances", zap.NewNop())

		_, err := registry.Register(context.Background(), []byte("hello"))

		assert.Error(t, err)
		assert.Empty(t, store.uploaded)
	})
}

func TestMinioBlobRegistry_Open(t *testing.T) {
	t.Run("missing object maps to blob not found", func(t *testing.T) {
		store := &mockObjectStore{}
		store.On("StatObject", "dicom-instances", "dicomfile:abc").Return(minio.ObjectInfo{}, minio.ErrorResponse{
			Code:       "NoSuchKey",
			StatusCode: http.StatusNotFound,
		})
		registry := NewMinioBlobRegistry(store, "dicom-instances", zap.NewNop())

		_, _, err := registry.Open(context.Background(), "dicomfile:abc?frame=2")

		assert.ErrorIs(t, err, dicom.ErrBlobNotFound)
		store.AssertNotCalled(t, "GetObject", mock.Anything, mock.Anything)
	})

	t.Run("other stat failures surface as storage errors", func(t *testing.T) {
		store := &mockObjectStore{}
		store.On("StatObject", "dicom-instances", "dicomfile:abc").Return(minio.ObjectInfo{}, errors.New("timeout"))
		registry := NewMinioBlobRegistry(store, "dicom-instances", zap.NewNop())

		_, _, err := registry.Open(context.Background(), "dicomfile:abc")

		require.Error(t, err)
		assert.False(t, errors.Is(err, dicom.ErrBlobNotFound))
	})
}
