package downloadqueue

import (
	"context"
	"fmt"
	"imaging-demo-service/internal/app/contracts"
	"imaging-demo-service/internal/app/models"
	"imaging-demo-service/internal/pkg/constvars"
	"imaging-demo-service/internal/pkg/exceptions"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// MaxAttempts is how often a job is tried before it is parked in the DLQ.
const MaxAttempts = 3

// Channel is the subset of *amqp.Channel the queue needs.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Qos(prefetchCount, prefetchSize int, global bool) error
	Confirm(noWait bool) error
	NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation
	GetNextPublishSeqNo() uint64
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

type service struct {
	ch       Channel
	log      *zap.Logger
	jobTTL   time.Duration
	confirms chan amqp.Confirmation
	mu       sync.Mutex
}

// NewService declares the durable job queue and its DLQ, limits unacked
// deliveries to prefetch and turns on publisher confirms. Queued jobs expire
// after jobTTL since they carry the requester's bearer token.
func NewService(conn *amqp.Connection, log *zap.Logger, prefetch int, jobTTL time.Duration) (contracts.DownloadQueue, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	return newService(ch, log, prefetch, jobTTL)
}

func newService(ch Channel, log *zap.Logger, prefetch int, jobTTL time.Duration) (*service, error) {
	for _, queueName := range []string{constvars.RabbitMQStudyDownloadQueue, constvars.RabbitMQStudyDownloadDLQQueue} {
		_, err := ch.QueueDeclare(
			queueName, // name
			true,      // durable
			false,     // autoDelete
			false,     // exclusive
			false,     // noWait
			nil,       // args
		)
		if err != nil {
			return nil, err
		}
	}

	if prefetch <= 0 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return nil, err
	}

	if err := ch.Confirm(false); err != nil {
		return nil, err
	}

	return &service{
		ch:       ch,
		log:      log,
		jobTTL:   jobTTL,
		confirms: ch.NotifyPublish(make(chan amqp.Confirmation, 1)),
	}, nil
}

// Enqueue publishes job to the download queue and waits for the broker confirm.
func (s *service) Enqueue(ctx context.Context, job *models.DownloadJob) error {
	s.log.Info("DownloadQueue.Enqueue called",
		zap.String(constvars.LoggingRequestIDKey, job.RequestID),
		zap.String(constvars.LoggingStudyIDKey, job.StudyID),
	)
	return s.publish(ctx, constvars.RabbitMQStudyDownloadQueue, job)
}

// EnqueueToDeadQueue parks job for inspection. Parked jobs are never run
// again, so the bearer token is removed first.
func (s *service) EnqueueToDeadQueue(ctx context.Context, job *models.DownloadJob) error {
	s.log.Warn("DownloadQueue.EnqueueToDeadQueue called",
		zap.String(constvars.LoggingRequestIDKey, job.RequestID),
		zap.String(constvars.LoggingStudyIDKey, job.StudyID),
	)
	parked := *job
	parked.BearerToken = ""
	return s.publish(ctx, constvars.RabbitMQStudyDownloadDLQQueue, &parked)
}

// publish sends job and waits for the broker confirm of this very message.
// Confirms of earlier publishes whose wait was abandoned are skipped.
func (s *service) publish(ctx context.Context, queueName string, job *models.DownloadJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return exceptions.ErrCannotMarshalJSON(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg := amqp.Publishing{
		ContentType:  constvars.MIMEApplicationJSON,
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID,
	}
	if queueName == constvars.RabbitMQStudyDownloadQueue && s.jobTTL > 0 {
		msg.Expiration = strconv.FormatInt(s.jobTTL.Milliseconds(), 10)
	}

	deliveryTag := s.ch.GetNextPublishSeqNo()
	if err := s.ch.PublishWithContext(ctx, "", queueName, false, false, msg); err != nil {
		return exceptions.ErrRabbitMQPublishMessage(err, queueName)
	}

	for {
		select {
		case confirmed, ok := <-s.confirms:
			if !ok {
				return exceptions.ErrRabbitMQPublishMessage(fmt.Errorf("channel closed before confirm"), queueName)
			}
			if confirmed.DeliveryTag < deliveryTag {
				continue
			}
			if !confirmed.Ack {
				return exceptions.ErrRabbitMQPublishMessage(fmt.Errorf("message not confirmed"), queueName)
			}
			return nil
		case <-ctx.Done():
			return exceptions.ErrRabbitMQPublishMessage(ctx.Err(), queueName)
		}
	}
}

// Consume hands every delivered job to handler until ctx is done or the
// delivery channel closes. A failed job is published again with its failure
// count raised, and after MaxAttempts it goes to the DLQ. The original
// delivery is acked once the job is handled or re-published.
func (s *service) Consume(ctx context.Context, handler func(ctx context.Context, job *models.DownloadJob) error) error {
	deliveries, err := s.ch.Consume(constvars.RabbitMQStudyDownloadQueue, "", false, false, false, false, nil)
	if err != nil {
		return exceptions.ErrRabbitMQConsumeMessage(err, constvars.RabbitMQStudyDownloadQueue)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return nil
			}
			s.handleDelivery(ctx, delivery, handler)
		}
	}
}

func (s *service) handleDelivery(ctx context.Context, delivery amqp.Delivery, handler func(ctx context.Context, job *models.DownloadJob) error) {
	job := new(models.DownloadJob)
	if err := json.Unmarshal(delivery.Body, job); err != nil {
		s.log.Error("DownloadQueue.Consume dropping undecodable message",
			zap.String(constvars.LoggingQueueNameKey, constvars.RabbitMQStudyDownloadQueue),
			zap.Error(err),
		)
		_ = delivery.Nack(false, false)
		return
	}

	err := handler(ctx, job)
	if err == nil {
		_ = delivery.Ack(false)
		return
	}

	job.FailedCount++
	s.log.Warn("DownloadQueue.Consume job failed",
		zap.String(constvars.LoggingRequestIDKey, job.RequestID),
		zap.String(constvars.LoggingStudyIDKey, job.StudyID),
		zap.Int(constvars.LoggingAttemptKey, job.FailedCount),
		zap.Error(err),
	)

	if job.FailedCount >= MaxAttempts {
		err = s.EnqueueToDeadQueue(ctx, job)
	} else {
		err = s.publish(ctx, constvars.RabbitMQStudyDownloadQueue, job)
	}
	if err != nil {
		s.log.Error("DownloadQueue.Consume error re-publishing job",
			zap.String(constvars.LoggingRequestIDKey, job.RequestID),
			zap.Error(err),
		)
		_ = delivery.Nack(false, true)
		return
	}
	_ = delivery.Ack(false)
}

func (s *service) Close() error {
	return s.ch.Close()
}
