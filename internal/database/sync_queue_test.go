package database

import (
	"context"
	"testing"
	"time"

	"spacehub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingIDs(t *testing.T, db *DB) []int64 {
	t.Helper()
	tasks, err := db.GetPendingSyncTasks(context.Background(), 10)
	require.NoError(t, err)
	ids := make([]int64, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	return ids
}

func TestSyncQueueLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := &models.SyncTask{TaskType: "upsert", BookingID: "b-1", Payload: `{"booking_id":"b-1"}`}
	second := &models.SyncTask{TaskType: "update_status", BookingID: "b-2", Payload: `{"booking_id":"b-2","status":"APPROVED"}`}
	require.NoError(t, db.CreateSyncTask(ctx, first))
	require.NoError(t, db.CreateSyncTask(ctx, second))
	assert.Equal(t, models.SyncStatusPending, first.Status, "status defaults to pending")
	assert.NotZero(t, first.ID)

	tasks, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "b-1", tasks[0].BookingID, "oldest first")
	assert.JSONEq(t, `{"booking_id":"b-2","status":"APPROVED"}`, tasks[1].Payload)

	limited, err := db.GetPendingSyncTasks(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	t.Run("completed tasks leave the queue", func(t *testing.T) {
		require.NoError(t, db.UpdateSyncTaskStatus(ctx, first.ID, models.SyncStatusCompleted, "", nil))
		assert.Equal(t, []int64{second.ID}, pendingIDs(t, db))
	})

	t.Run("retry waits for its time", func(t *testing.T) {
		later := time.Now().Add(time.Hour)
		require.NoError(t, db.UpdateSyncTaskStatus(ctx, second.ID, models.SyncStatusRetry, "sheet quota", &later))
		assert.Empty(t, pendingIDs(t, db))

		earlier := time.Now().Add(-time.Minute)
		require.NoError(t, db.UpdateSyncTaskStatus(ctx, second.ID, models.SyncStatusRetry, "sheet quota", &earlier))
		tasks, err := db.GetPendingSyncTasks(ctx, 10)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, 2, tasks[0].RetryCount)
		require.NotNil(t, tasks[0].LastError)
		assert.Equal(t, "sheet quota", *tasks[0].LastError)
	})

	t.Run("failed tasks are never picked up again", func(t *testing.T) {
		require.NoError(t, db.UpdateSyncTaskStatus(ctx, second.ID, models.SyncStatusFailed, "gave up", nil))
		assert.Empty(t, pendingIDs(t, db))
	})
}
