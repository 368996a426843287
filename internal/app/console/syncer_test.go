package console

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"ireport/internal/domain/incident"
)

// fakeSyncCloud — управляемая реализация CloudSyncAPI для тестов
type fakeSyncCloud struct {
	mu sync.Mutex

	changes    []incident.Incident
	serverTime time.Time
	listErr    error

	cloudUpdatedAt time.Time
	headErr        error

	pushErr error
	pushed  []incident.StatusUpdateRequest

	appendErr error
	appended  []incident.StatusHistoryEntry

	listCalls int
	pushCalls int
	headCalls int

	listStarted chan struct{}
	listBlock   chan struct{}
}

func (f *fakeSyncCloud) ListChanges(_ context.Context, _ time.Time) ([]incident.Incident, time.Time, error) {
	if f.listStarted != nil {
		f.listStarted <- struct{}{}
	}
	if f.listBlock != nil {
		<-f.listBlock
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, time.Time{}, f.listErr
	}
	return f.changes, f.serverTime, nil
}

func (f *fakeSyncCloud) GetIncidentUpdatedAt(_ context.Context, _ uuid.UUID) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headCalls++
	if f.headErr != nil {
		return time.Time{}, f.headErr
	}
	return f.cloudUpdatedAt, nil
}

func (f *fakeSyncCloud) UpdateIncidentStatus(_ context.Context, _ uuid.UUID, req incident.StatusUpdateRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushCalls++
	if f.pushErr != nil {
		return f.pushErr
	}
	f.pushed = append(f.pushed, req)
	return nil
}

func (f *fakeSyncCloud) AppendHistory(_ context.Context, entry incident.StatusHistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, entry)
	return nil
}

func newTestSyncManager(t *testing.T) (*SyncManager, *SQLiteStorage, *fakeSyncCloud) {
	t.Helper()

	storage := newTestStorage(t)
	cloud := &fakeSyncCloud{}
	log := slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelError}))

	return NewSyncManager(cloud, storage, 30*time.Second, log), storage, cloud
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestSyncNowPull(t *testing.T) {
	t.Run("MergesChangesAndAdvancesWatermark", func(t *testing.T) {
		manager, storage, cloud := newTestSyncManager(t)

		serverTime := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
		first := cloudIncident(serverTime.Add(-2 * time.Minute))
		second := cloudIncident(serverTime.Add(-time.Minute))
		cloud.changes = []incident.Incident{*first, *second}
		cloud.serverTime = serverTime
		cloud.cloudUpdatedAt = time.Unix(0, 0)

		require.NoError(t, manager.SyncNow(context.Background()))

		for _, inc := range []*incident.Incident{first, second} {
			local, err := storage.GetIncident(inc.ID)
			require.NoError(t, err)
			assert.True(t, local.Synced)
		}

		mark, err := storage.Watermark()
		require.NoError(t, err)
		assert.True(t, mark.Equal(serverTime), "watermark продвигается до серверного времени")
	})

	t.Run("PullErrorReportedButPushStillRuns", func(t *testing.T) {
		manager, storage, cloud := newTestSyncManager(t)
		cloud.listErr = fmt.Errorf("connection refused")
		cloud.cloudUpdatedAt = time.Unix(0, 0)

		inc := cloudIncident(time.Now().UTC().Add(-time.Hour))
		_, err := storage.MergeCloudIncident(inc)
		require.NoError(t, err)
		require.NoError(t, storage.UpdateIncidentStatus(inc.ID, incident.StatusAssigned, "", "operator-1"))

		assert.Error(t, manager.SyncNow(context.Background()))

		cloud.mu.Lock()
		pushCalls := cloud.pushCalls
		cloud.mu.Unlock()
		assert.Equal(t, 1, pushCalls, "push-проход идет несмотря на ошибку pull")
	})
}

func TestSyncNowPush(t *testing.T) {
	t.Run("PushesLocalEditAndMarksSynced", func(t *testing.T) {
		manager, storage, cloud := newTestSyncManager(t)
		cloud.cloudUpdatedAt = time.Unix(0, 0)

		inc := cloudIncident(time.Now().UTC().Add(-time.Hour))
		_, err := storage.MergeCloudIncident(inc)
		require.NoError(t, err)
		require.NoError(t, storage.UpdateIncidentStatus(inc.ID, incident.StatusResponding, "", "operator-1"))

		require.NoError(t, manager.SyncNow(context.Background()))

		cloud.mu.Lock()
		require.Len(t, cloud.pushed, 1)
		assert.Equal(t, incident.StatusResponding, cloud.pushed[0].Status)
		assert.Equal(t, "operator-1", cloud.pushed[0].UpdatedBy)
		cloud.mu.Unlock()

		pending, err := storage.PendingCount()
		require.NoError(t, err)
		assert.Zero(t, pending)

		local, err := storage.GetIncident(inc.ID)
		require.NoError(t, err)
		assert.True(t, local.Synced)
	})

	t.Run("CloudNewerDropsLocalEditWithoutPush", func(t *testing.T) {
		manager, storage, cloud := newTestSyncManager(t)

		inc := cloudIncident(time.Now().UTC().Add(-time.Hour))
		_, err := storage.MergeCloudIncident(inc)
		require.NoError(t, err)
		require.NoError(t, storage.UpdateIncidentStatus(inc.ID, incident.StatusAssigned, "", "operator-1"))

		// Облачная версия строго новее локальной правки
		cloud.cloudUpdatedAt = time.Now().UTC().Add(time.Hour)

		require.NoError(t, manager.SyncNow(context.Background()))

		cloud.mu.Lock()
		assert.Empty(t, cloud.pushed, "конфликтная правка не пушится")
		cloud.mu.Unlock()

		pending, err := storage.PendingCount()
		require.NoError(t, err)
		assert.Zero(t, pending, "конфликтная правка снята с очереди")
	})

	t.Run("FifthFailureMovesToDeadLetter", func(t *testing.T) {
		manager, storage, cloud := newTestSyncManager(t)
		cloud.cloudUpdatedAt = time.Unix(0, 0)
		cloud.pushErr = fmt.Errorf("service unavailable")

		inc := cloudIncident(time.Now().UTC().Add(-time.Hour))
		_, err := storage.MergeCloudIncident(inc)
		require.NoError(t, err)
		require.NoError(t, storage.UpdateIncidentStatus(inc.ID, incident.StatusAssigned, "", "operator-1"))

		for i := 0; i < maxPushAttempts; i++ {
			require.NoError(t, manager.SyncNow(context.Background()))
		}

		pending, err := storage.PendingCount()
		require.NoError(t, err)
		assert.Zero(t, pending, "после пятой неудачи правка снята с очереди")

		dead, err := storage.DeadLetterCount()
		require.NoError(t, err)
		assert.Equal(t, 1, dead)

		cloud.mu.Lock()
		pushCalls := cloud.pushCalls
		cloud.mu.Unlock()

		// Шестой проход не делает сетевых попыток для этой правки
		require.NoError(t, manager.SyncNow(context.Background()))
		cloud.mu.Lock()
		assert.Equal(t, pushCalls, cloud.pushCalls)
		cloud.mu.Unlock()
	})
}

func TestSyncNowHistory(t *testing.T) {
	t.Run("ReconcilesOldestFirst", func(t *testing.T) {
		manager, storage, cloud := newTestSyncManager(t)
		cloud.cloudUpdatedAt = time.Unix(0, 0)

		inc := cloudIncident(time.Now().UTC().Add(-time.Hour))
		_, err := storage.MergeCloudIncident(inc)
		require.NoError(t, err)
		require.NoError(t, storage.UpdateIncidentStatus(inc.ID, incident.StatusAssigned, "", "operator-1"))
		time.Sleep(5 * time.Millisecond)
		require.NoError(t, storage.UpdateIncidentStatus(inc.ID, incident.StatusResponding, "", "operator-1"))

		require.NoError(t, manager.SyncNow(context.Background()))

		cloud.mu.Lock()
		require.Len(t, cloud.appended, 2)
		assert.Equal(t, incident.StatusAssigned, cloud.appended[0].Status)
		assert.Equal(t, incident.StatusResponding, cloud.appended[1].Status)
		cloud.mu.Unlock()

		unsynced, err := storage.UnsyncedHistory()
		require.NoError(t, err)
		assert.Empty(t, unsynced)
	})

	t.Run("FailedEntriesRetryNextPass", func(t *testing.T) {
		manager, storage, cloud := newTestSyncManager(t)
		cloud.cloudUpdatedAt = time.Unix(0, 0)
		cloud.appendErr = fmt.Errorf("service unavailable")

		inc := cloudIncident(time.Now().UTC().Add(-time.Hour))
		_, err := storage.MergeCloudIncident(inc)
		require.NoError(t, err)
		require.NoError(t, storage.UpdateIncidentStatus(inc.ID, incident.StatusAssigned, "", "operator-1"))

		assert.Error(t, manager.SyncNow(context.Background()))

		unsynced, err := storage.UnsyncedHistory()
		require.NoError(t, err)
		require.Len(t, unsynced, 1, "запись истории остается для повтора, потолка попыток нет")

		cloud.mu.Lock()
		cloud.appendErr = nil
		cloud.mu.Unlock()

		require.NoError(t, manager.SyncNow(context.Background()))

		unsynced, err = storage.UnsyncedHistory()
		require.NoError(t, err)
		assert.Empty(t, unsynced)
	})
}

func TestSyncNowReentrance(t *testing.T) {
	manager, _, cloud := newTestSyncManager(t)
	cloud.listStarted = make(chan struct{})
	cloud.listBlock = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		done <- manager.SyncNow(context.Background())
	}()

	<-cloud.listStarted
	assert.True(t, manager.Syncing())

	// Повторный триггер при идущем проходе — no-op
	require.NoError(t, manager.SyncNow(context.Background()))
	cloud.mu.Lock()
	assert.Equal(t, 0, cloud.listCalls, "второй проход не начался")
	cloud.mu.Unlock()

	close(cloud.listBlock)
	require.NoError(t, <-done)
	assert.False(t, manager.Syncing())
}

func TestSyncStatusObservers(t *testing.T) {
	manager, _, cloud := newTestSyncManager(t)
	cloud.cloudUpdatedAt = time.Unix(0, 0)

	var mu sync.Mutex
	var statuses []Status
	manager.OnStatusChange(func(s Status) {
		mu.Lock()
		statuses = append(statuses, s)
		mu.Unlock()
	})

	require.NoError(t, manager.SyncNow(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(statuses), 2)
	assert.True(t, statuses[0].Syncing, "наблюдатель видит начало прохода")
	last := statuses[len(statuses)-1]
	assert.False(t, last.Syncing)
	assert.True(t, last.Connected)
	assert.False(t, last.LastSync.IsZero())
}
