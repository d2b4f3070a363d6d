package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/last9/otelkit/internal/model"
	pkgerrors "github.com/last9/otelkit/pkg/errors"
	"github.com/last9/otelkit/pkg/logger"
)

type stubProcessor struct {
	calls []int64
	err   error
}

func (s *stubProcessor) MarkProcessed(_ context.Context, orderID int64) error {
	s.calls = append(s.calls, orderID)
	return s.err
}

// unreachableRedis fails every command fast, exercising the dedup-check
// failure path without a running server.
func unreachableRedis() *redislib.Client {
	return redislib.NewClient(&redislib.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestProcessOrderCreatedDropsUndecodableBody(t *testing.T) {
	logger.Init()

	err := processOrderCreated(context.Background(), unreachableRedis(), []byte("not json"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsSkipMessageError(err), "got %v", err)
}

func TestProcessOrderCreatedContinuesWhenDedupCheckFails(t *testing.T) {
	logger.Init()
	stub := &stubProcessor{}
	SetOrderProcessor(stub)
	defer SetOrderProcessor(nil)

	body, err := json.Marshal(model.OrderCreatedEvent{EventID: "evt-1", OrderID: 42})
	require.NoError(t, err)

	err = processOrderCreated(context.Background(), unreachableRedis(), body)
	require.NoError(t, err)
	assert.Equal(t, []int64{42}, stub.calls)
}

func TestProcessOrderCreatedReturnsProcessorError(t *testing.T) {
	logger.Init()
	stub := &stubProcessor{err: errors.New("update failed")}
	SetOrderProcessor(stub)
	defer SetOrderProcessor(nil)

	body, err := json.Marshal(model.OrderCreatedEvent{EventID: "evt-2", OrderID: 7})
	require.NoError(t, err)

	err = processOrderCreated(context.Background(), unreachableRedis(), body)
	require.Error(t, err)
	assert.False(t, pkgerrors.IsSkipMessageError(err), "processor failures must requeue")
}

func TestProcessOrderCreatedWithoutProcessor(t *testing.T) {
	logger.Init()
	SetOrderProcessor(nil)

	body, err := json.Marshal(model.OrderCreatedEvent{EventID: "evt-3", OrderID: 1})
	require.NoError(t, err)

	err = processOrderCreated(context.Background(), unreachableRedis(), body)
	require.Error(t, err)
	assert.False(t, pkgerrors.IsSkipMessageError(err))
}

func TestIsSkipMessageErrorSeesWrappedErrors(t *testing.T) {
	err := fmt.Errorf("handler: %w", &pkgerrors.SkipMessageError{Reason: "duplicate"})
	assert.True(t, pkgerrors.IsSkipMessageError(err))
	assert.False(t, pkgerrors.IsSkipMessageError(errors.New("plain")))
}
