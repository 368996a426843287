package reporter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"ireport/internal/domain/incident"
)

// fakeCloud — управляемая реализация CloudAPI для тестов
type fakeCloud struct {
	mu            sync.Mutex
	uploadErr     error
	insertErr     error
	stationErr    error
	uploads       []string
	inserted      []incident.CreateRequest
	assigned      []incident.AssignStationRequest
	insertStarted chan struct{}
	insertBlock   chan struct{}
}

func (f *fakeCloud) UploadMedia(_ context.Context, path string, _ []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads = append(f.uploads, path)
	return "https://cloud.example/" + path, nil
}

func (f *fakeCloud) InsertIncident(_ context.Context, req incident.CreateRequest) (*incident.Incident, error) {
	if f.insertStarted != nil {
		f.insertStarted <- struct{}{}
	}
	if f.insertBlock != nil {
		<-f.insertBlock
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.inserted = append(f.inserted, req)
	return &incident.Incident{
		AgencyType: req.AgencyType,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Status:     incident.StatusPending,
		CreatedAt:  req.CreatedAt,
		UpdatedAt:  time.Now(),
	}, nil
}

func (f *fakeCloud) FindNearestStation(_ context.Context, _, _ float64, agency incident.AgencyType) (*incident.Station, error) {
	if f.stationErr != nil {
		return nil, f.stationErr
	}
	return &incident.Station{ID: 1, Name: "Station One", AgencyType: agency}, nil
}

func (f *fakeCloud) AssignStation(_ context.Context, req incident.AssignStationRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assigned = append(f.assigned, req)
	return nil
}

func newTestQueue(t *testing.T, cloud CloudAPI) (*OfflineQueue, *SQLiteStorage) {
	t.Helper()

	dir := t.TempDir()
	storage, err := NewSQLiteStorage(filepath.Join(dir, "reporter.db"))
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewOfflineQueue(storage, cloud, log), storage
}

func writeMedia(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("fake image bytes"), 0600))
	return path
}

func testSubmission(t *testing.T, media ...string) *QueuedSubmission {
	t.Helper()
	return &QueuedSubmission{
		AgencyType:      incident.AgencyBFP,
		ReporterName:    "Juan dela Cruz",
		ReporterAge:     34,
		Description:     "Пожар в жилом доме",
		Latitude:        13.62,
		Longitude:       123.19,
		LocationAddress: "Daet, Camarines Norte",
		MediaPaths:      media,
	}
}

func TestOfflineQueue_EnqueueAndCount(t *testing.T) {
	q, _ := newTestQueue(t, &fakeCloud{})

	require.NoError(t, q.Enqueue(testSubmission(t)))
	require.NoError(t, q.Enqueue(testSubmission(t)))

	count, err := q.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestOfflineQueue_ReplayAll(t *testing.T) {
	t.Run("FIFOOrderAllSuccessful", func(t *testing.T) {
		fc := &fakeCloud{}
		q, _ := newTestQueue(t, fc)

		for i := 0; i < 3; i++ {
			sub := testSubmission(t)
			sub.Description = fmt.Sprintf("репорт %d", i)
			sub.Timestamp = time.Date(2026, 8, 1, 10, i, 0, 0, time.UTC)
			require.NoError(t, q.Enqueue(sub))
		}

		result, err := q.ReplayAll(context.Background(), ReplayHooks{})
		require.NoError(t, err)
		assert.Equal(t, ReplayResult{Successful: 3, Failed: 0}, result)

		require.Len(t, fc.inserted, 3)
		for i, req := range fc.inserted {
			assert.Equal(t, fmt.Sprintf("репорт %d", i), req.Description)
		}

		count, err := q.Count()
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("UploadFailureKeepsItemQueued", func(t *testing.T) {
		fc := &fakeCloud{uploadErr: fmt.Errorf("network down")}
		q, storage := newTestQueue(t, fc)

		sub := testSubmission(t, writeMedia(t, "photo.jpg"))
		require.NoError(t, q.Enqueue(sub))

		result, err := q.ReplayAll(context.Background(), ReplayHooks{})
		require.NoError(t, err)
		assert.Equal(t, ReplayResult{Successful: 0, Failed: 1}, result)

		subs, err := storage.ListSubmissions()
		require.NoError(t, err)
		require.Len(t, subs, 1)
		assert.Equal(t, 1, subs[0].RetryCount)
		assert.Contains(t, subs[0].LastError, "network down")
		assert.Empty(t, fc.inserted)
	})

	t.Run("RetryCeilingMovesToDeadLetter", func(t *testing.T) {
		fc := &fakeCloud{insertErr: fmt.Errorf("insert refused")}
		q, storage := newTestQueue(t, fc)

		sub := testSubmission(t)
		require.NoError(t, q.Enqueue(sub))

		// Три неудачных прохода доводят счетчик до потолка
		for i := 0; i < maxRetries; i++ {
			result, err := q.ReplayAll(context.Background(), ReplayHooks{})
			require.NoError(t, err)
			assert.Equal(t, 1, result.Failed)
		}

		// Четвертый проход не делает сетевых попыток и уводит элемент в dead-letter
		fc.mu.Lock()
		fc.insertErr = nil
		fc.mu.Unlock()

		result, err := q.ReplayAll(context.Background(), ReplayHooks{})
		require.NoError(t, err)
		assert.Equal(t, ReplayResult{Successful: 0, Failed: 1}, result)
		assert.Empty(t, fc.inserted)

		count, err := storage.QueueCount()
		require.NoError(t, err)
		assert.Zero(t, count)

		dead, err := storage.DeadLetterCount()
		require.NoError(t, err)
		assert.Equal(t, 1, dead)
	})

	t.Run("SuccessfulInsertRemovesItemExactlyOnce", func(t *testing.T) {
		fc := &fakeCloud{}
		q, storage := newTestQueue(t, fc)

		sub := testSubmission(t)
		require.NoError(t, q.Enqueue(sub))

		result, err := q.ReplayAll(context.Background(), ReplayHooks{})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Successful)

		// Повторный проход идемпотентен: очередь пуста, второй инцидент не создается
		result, err = q.ReplayAll(context.Background(), ReplayHooks{})
		require.NoError(t, err)
		assert.Equal(t, ReplayResult{}, result)
		assert.Len(t, fc.inserted, 1)

		count, err := storage.QueueCount()
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("StationAssignmentFailureDoesNotFailItem", func(t *testing.T) {
		fc := &fakeCloud{stationErr: fmt.Errorf("rpc unavailable")}
		q, _ := newTestQueue(t, fc)

		require.NoError(t, q.Enqueue(testSubmission(t)))

		result, err := q.ReplayAll(context.Background(), ReplayHooks{})
		require.NoError(t, err)
		assert.Equal(t, ReplayResult{Successful: 1, Failed: 0}, result)
		assert.Empty(t, fc.assigned)
	})

	t.Run("ConcurrentReplayRejected", func(t *testing.T) {
		fc := &fakeCloud{
			insertStarted: make(chan struct{}, 1),
			insertBlock:   make(chan struct{}),
		}
		q, _ := newTestQueue(t, fc)
		require.NoError(t, q.Enqueue(testSubmission(t)))

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = q.ReplayAll(context.Background(), ReplayHooks{})
		}()

		<-fc.insertStarted

		_, err := q.ReplayAll(context.Background(), ReplayHooks{})
		assert.ErrorIs(t, err, ErrReplayInProgress)

		close(fc.insertBlock)
		wg.Wait()
	})
}

func TestOfflineQueue_UploadsMediaBeforeInsert(t *testing.T) {
	fc := &fakeCloud{}
	q, _ := newTestQueue(t, fc)

	sub := testSubmission(t, writeMedia(t, "a.jpg"), writeMedia(t, "b.jpg"))
	require.NoError(t, q.Enqueue(sub))

	result, err := q.ReplayAll(context.Background(), ReplayHooks{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Successful)

	require.Len(t, fc.uploads, 2)
	require.Len(t, fc.inserted, 1)
	require.Len(t, fc.inserted[0].MediaURLs, 2)
	assert.Contains(t, fc.inserted[0].MediaURLs[0], "incidents/"+sub.ID+"/")
}
