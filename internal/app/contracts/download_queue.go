package contracts

import (
	"context"
	"imaging-demo-service/internal/app/models"
)

type DownloadQueue interface {
	Enqueue(ctx context.Context, job *models.DownloadJob) error
	EnqueueToDeadQueue(ctx context.Context, job *models.DownloadJob) error
	Consume(ctx context.Context, handler func(ctx context.Context, job *models.DownloadJob) error) error
	Close() error
}
