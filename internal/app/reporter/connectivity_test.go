package reporter

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/slog"
)

// fakeHealth — переключаемая реализация HealthChecker
type fakeHealth struct {
	mu  sync.Mutex
	err error
}

func (f *fakeHealth) Health(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeHealth) set(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func TestConnectivityWatcher(t *testing.T) {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	ctx := context.Background()

	t.Run("FiresOnOfflineToOnline", func(t *testing.T) {
		health := &fakeHealth{err: errors.New("connection refused")}
		watcher := NewConnectivityWatcher(health, time.Second, log)

		var fired int
		watcher.OnOnline(func() { fired++ })

		watcher.check(ctx)
		assert.Zero(t, fired, "в офлайне колбэк молчит")

		health.set(nil)
		watcher.check(ctx)
		assert.Equal(t, 1, fired)
	})

	t.Run("SteadyOnlineFiresOnce", func(t *testing.T) {
		health := &fakeHealth{}
		watcher := NewConnectivityWatcher(health, time.Second, log)

		var fired int
		watcher.OnOnline(func() { fired++ })

		watcher.check(ctx)
		watcher.check(ctx)
		watcher.check(ctx)
		assert.Equal(t, 1, fired, "повторные успешные опросы не дергают колбэк")
	})

	t.Run("ReconnectFiresAgain", func(t *testing.T) {
		health := &fakeHealth{}
		watcher := NewConnectivityWatcher(health, time.Second, log)

		var fired int
		watcher.OnOnline(func() { fired++ })

		watcher.check(ctx)
		health.set(errors.New("timeout"))
		watcher.check(ctx)
		health.set(nil)
		watcher.check(ctx)
		assert.Equal(t, 2, fired)
	})
}
