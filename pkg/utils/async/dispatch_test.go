package async_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gt"
	"github.com/riccamini/shipper/pkg/utils/async"
)

// safeBuffer is a thread-safe buffer for concurrent logging
type safeBuffer struct {
	b bytes.Buffer
	m sync.Mutex
}

func (sb *safeBuffer) Write(p []byte) (int, error) {
	sb.m.Lock()
	defer sb.m.Unlock()
	return sb.b.Write(p)
}

func (sb *safeBuffer) String() string {
	sb.m.Lock()
	defer sb.m.Unlock()
	return sb.b.String()
}

func loggerContext(buf *safeBuffer) context.Context {
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	return ctxlog.With(context.Background(), logger)
}

func TestDispatch(t *testing.T) {
	t.Run("executes handler asynchronously", func(t *testing.T) {
		done := make(chan struct{})
		async.Dispatch(context.Background(), func(ctx context.Context) error {
			close(done)
			return nil
		})

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("handler was not executed")
		}
	})

	t.Run("handler survives caller context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		done := make(chan error, 1)
		async.Dispatch(ctx, func(ctx context.Context) error {
			done <- ctx.Err()
			return nil
		})

		select {
		case err := <-done:
			// The background context must not inherit the cancellation
			gt.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("handler was not executed")
		}
	})

	t.Run("logs handler error", func(t *testing.T) {
		buf := &safeBuffer{}
		ctx := loggerContext(buf)

		done := make(chan struct{})
		async.Dispatch(ctx, func(ctx context.Context) error {
			defer close(done)
			return errors.New("handler failed")
		})

		<-done
		waitForLog(t, buf, "handler failed")
	})

	t.Run("recovers from panic", func(t *testing.T) {
		buf := &safeBuffer{}
		ctx := loggerContext(buf)

		done := make(chan struct{})
		async.Dispatch(ctx, func(ctx context.Context) error {
			defer close(done)
			panic("boom")
		})

		<-done
		waitForLog(t, buf, "boom")
	})
}

// waitForLog polls the buffer until the message appears or times out
func waitForLog(t *testing.T, buf *safeBuffer, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(buf.String(), msg) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("log message %q not found in output: %s", msg, buf.String())
}
