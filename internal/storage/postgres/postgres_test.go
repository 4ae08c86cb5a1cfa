package postgres

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestPool_HealthHonoursTimeout(t *testing.T) {
	p := &Pool{ping: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	err := p.Health(context.Background(), 10*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPool_WatchLogsOutageAndRecovery(t *testing.T) {
	var calls atomic.Int32
	p := &Pool{ping: func(context.Context) error {
		if calls.Add(1) <= 2 {
			return errors.New("connection refused")
		}
		return nil
	}}
	core, logs := observer.New(zapcore.InfoLevel)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Watch(ctx, time.Millisecond, time.Second, zap.New(core)) }()

	require.Eventually(t, func() bool {
		return logs.FilterMessage("database reachable again").Len() == 1 && calls.Load() > 4
	}, 2*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
	assert.Equal(t, 2, logs.FilterMessage("database health check failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("database reachable again").Len(), "recovery is logged once")
}

func TestPool_WatchStopsWhenContextDone(t *testing.T) {
	p := &Pool{ping: func(context.Context) error { return nil }}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Watch(ctx, time.Hour, time.Second, zap.NewNop())
	assert.ErrorIs(t, err, context.Canceled)
}
