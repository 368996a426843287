package console

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ireport/internal/domain/incident"
)

func TestRealtimeMergeHandler(t *testing.T) {
	t.Run("EventMergedAndObserversNotified", func(t *testing.T) {
		manager, storage, _ := newTestSyncManager(t)
		handler := NewRealtimeMergeHandler(storage, manager, manager.log)

		var mu sync.Mutex
		var seen []incident.Incident
		manager.OnIncidentUpdated(func(inc incident.Incident) {
			mu.Lock()
			seen = append(seen, inc)
			mu.Unlock()
		})

		inc := cloudIncident(time.Now().UTC())
		handler.HandleEvent(incident.FeedEvent{Type: incident.FeedInsert, Incident: *inc})

		local, err := storage.GetIncident(inc.ID)
		require.NoError(t, err)
		assert.True(t, local.Synced)

		mu.Lock()
		defer mu.Unlock()
		require.Len(t, seen, 1)
		assert.Equal(t, inc.ID, seen[0].ID)
	})

	t.Run("StaleEventKeepsLocalEdit", func(t *testing.T) {
		manager, storage, _ := newTestSyncManager(t)
		handler := NewRealtimeMergeHandler(storage, manager, manager.log)

		var mu sync.Mutex
		notified := 0
		manager.OnIncidentUpdated(func(incident.Incident) {
			mu.Lock()
			notified++
			mu.Unlock()
		})

		inc := cloudIncident(time.Now().UTC().Add(-time.Hour))
		_, err := storage.MergeCloudIncident(inc)
		require.NoError(t, err)
		require.NoError(t, storage.UpdateIncidentStatus(inc.ID, incident.StatusAssigned, "", "operator-1"))

		stale := *inc
		stale.Status = incident.StatusDismissed
		handler.HandleEvent(incident.FeedEvent{Type: incident.FeedUpdate, Incident: stale})

		local, err := storage.GetIncident(inc.ID)
		require.NoError(t, err)
		assert.Equal(t, incident.StatusAssigned, local.Status)

		mu.Lock()
		defer mu.Unlock()
		assert.Zero(t, notified, "отвергнутое слияние не трогает наблюдателей")
	})

	t.Run("ConnectionStateForwardedToStatus", func(t *testing.T) {
		manager, storage, _ := newTestSyncManager(t)
		handler := NewRealtimeMergeHandler(storage, manager, manager.log)

		handler.HandleStateChange(true)
		assert.True(t, manager.Status().Connected)

		handler.HandleStateChange(false)
		assert.False(t, manager.Status().Connected)
	})
}
