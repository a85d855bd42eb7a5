package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"cabinet_tracker/internal/logger"

	"github.com/hibiken/asynq"
)

const (
	// ThumbnailTask is scheduled after every stored upload.
	ThumbnailTask = "image:thumbnail"
)

// ThumbnailPayload tells the worker which stored object to render.
type ThumbnailPayload struct {
	ImageID   string `json:"image_id"`
	ObjectKey string `json:"object_key"`
	MimeType  string `json:"mime_type"`
}

func (p ThumbnailPayload) Encode() ([]byte, error) {
	return json.Marshal(p)
}

func DecodeThumbnail(data []byte) (ThumbnailPayload, error) {
	var p ThumbnailPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("decode payload: %w", err)
	}
	if p.ImageID == "" || p.ObjectKey == "" {
		return p, fmt.Errorf("decode payload: image_id and object_key are required")
	}
	return p, nil
}

// ThumbnailHandler renders the variants of one stored image.
type ThumbnailHandler func(ctx context.Context, p ThumbnailPayload) error

// Enqueuer schedules thumbnail jobs.
type Enqueuer interface {
	EnqueueThumbnail(ctx context.Context, p ThumbnailPayload) error
	Close() error
}

// AsynqEnqueuer hands jobs to a redis-backed asynq queue.
type AsynqEnqueuer struct {
	client *asynq.Client
}

func NewAsynqEnqueuer(opt asynq.RedisClientOpt) *AsynqEnqueuer {
	return &AsynqEnqueuer{client: asynq.NewClient(opt)}
}

func (e *AsynqEnqueuer) EnqueueThumbnail(ctx context.Context, p ThumbnailPayload) error {
	data, err := p.Encode()
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(ThumbnailTask, data)
	if _, err := e.client.EnqueueContext(ctx, task, asynq.MaxRetry(3)); err != nil {
		return fmt.Errorf("enqueue thumbnail task: %w", err)
	}
	return nil
}

func (e *AsynqEnqueuer) Close() error {
	return e.client.Close()
}

// InlineEnqueuer runs jobs on a goroutine in the current process.
type InlineEnqueuer struct {
	handler ThumbnailHandler
	wg      sync.WaitGroup
}

func NewInlineEnqueuer(handler ThumbnailHandler) *InlineEnqueuer {
	return &InlineEnqueuer{handler: handler}
}

// EnqueueThumbnail runs the job detached from ctx; only the request id is
// carried over, with the image id as correlation id.
func (e *InlineEnqueuer) EnqueueThumbnail(ctx context.Context, p ThumbnailPayload) error {
	jobCtx := logger.WithCorrelationID(context.Background(), p.ImageID)
	if requestID := logger.GetRequestID(ctx); requestID != "" {
		jobCtx = logger.WithRequestID(jobCtx, requestID)
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.handler(jobCtx, p); err != nil {
			logger.CtxError(jobCtx, "Thumbnail job failed", "image_id", p.ImageID, "error", err)
		}
	}()
	return nil
}

// Wait blocks until every scheduled job has finished.
func (e *InlineEnqueuer) Wait() {
	e.wg.Wait()
}

func (e *InlineEnqueuer) Close() error {
	e.wg.Wait()
	return nil
}

// NewServeMux routes thumbnail tasks to handler.
func NewServeMux(handler ThumbnailHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(ThumbnailTask, func(ctx context.Context, task *asynq.Task) error {
		p, err := DecodeThumbnail(task.Payload())
		if err != nil {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return handler(ctx, p)
	})
	return mux
}
