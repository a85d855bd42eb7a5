package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"cabinet_tracker/internal/logger"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeThumbnail(t *testing.T) {
	data, err := ThumbnailPayload{ImageID: "id-1", ObjectKey: "a.png", MimeType: "image/png"}.Encode()
	require.NoError(t, err)

	p, err := DecodeThumbnail(data)
	require.NoError(t, err)
	assert.Equal(t, "id-1", p.ImageID)

	_, err = DecodeThumbnail([]byte(`{"image_id":""}`))
	assert.Error(t, err)
	_, err = DecodeThumbnail([]byte(`{`))
	assert.Error(t, err)
}

func TestInlineEnqueuer(t *testing.T) {
	var calls int32
	e := NewInlineEnqueuer(func(ctx context.Context, p ThumbnailPayload) error {
		atomic.AddInt32(&calls, 1)
		if p.ImageID == "bad" {
			return errors.New("boom")
		}
		return nil
	})

	require.NoError(t, e.EnqueueThumbnail(context.Background(), ThumbnailPayload{ImageID: "ok", ObjectKey: "a"}))
	require.NoError(t, e.EnqueueThumbnail(context.Background(), ThumbnailPayload{ImageID: "bad", ObjectKey: "b"}))
	require.NoError(t, e.Close())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestServeMux(t *testing.T) {
	var got ThumbnailPayload
	mux := NewServeMux(func(ctx context.Context, p ThumbnailPayload) error {
		got = p
		return nil
	})

	data, _ := ThumbnailPayload{ImageID: "id-9", ObjectKey: "k.png"}.Encode()
	require.NoError(t, mux.ProcessTask(context.Background(), asynq.NewTask(ThumbnailTask, data)))
	assert.Equal(t, "id-9", got.ImageID)

	err := mux.ProcessTask(context.Background(), asynq.NewTask(ThumbnailTask, []byte("junk")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestInlineEnqueuer_TagsJobContext(t *testing.T) {
	type ids struct{ request, correlation string }
	got := make(chan ids, 1)
	e := NewInlineEnqueuer(func(ctx context.Context, p ThumbnailPayload) error {
		got <- ids{logger.GetRequestID(ctx), logger.GetCorrelationID(ctx)}
		return ctx.Err()
	})

	reqCtx, cancel := context.WithCancel(logger.WithRequestID(context.Background(), "req-7"))
	require.NoError(t, e.EnqueueThumbnail(reqCtx, ThumbnailPayload{ImageID: "img-7", ObjectKey: "a.png"}))
	cancel()
	e.Wait()

	assert.Equal(t, ids{request: "req-7", correlation: "img-7"}, <-got)
}
