package progress_test

import (
	"sync"
	"testing"
	"time"

	"github.com/retailops/erpsync/internal/platform/models"
	"github.com/retailops/erpsync/internal/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitTaskLifecycle(t *testing.T) {
	reg := progress.NewRegistry()

	id := reg.Create("catalog", 100)

	snapshot, err := reg.Get(id)
	require.NoError(t, err, "shouldn't return any error")
	assert.Equal(t, progress.StatusRunning, snapshot.Status, "new tasks start running")

	require.NoError(t, reg.Update(id, 40, 100, "upserting products"))

	snapshot, err = reg.Get(id)
	require.NoError(t, err, "shouldn't return any error")
	assert.Equal(t, 40, snapshot.Current, "should record progress")
	assert.Equal(t, "upserting products", snapshot.Stage, "should record the stage label")

	result := models.SyncSummary{Created: 10, Updated: 30}
	require.NoError(t, reg.Complete(id, result))

	snapshot, err = reg.Get(id)
	require.NoError(t, err, "shouldn't return any error")
	assert.Equal(t, progress.StatusCompleted, snapshot.Status, "should be completed")
	assert.Equal(t, &result, snapshot.Result, "should carry the result payload")
	require.NotNil(t, snapshot.FinishedAt, "should record the finish time")
}

func TestUnitTerminalStatesAreFrozen(t *testing.T) {
	reg := progress.NewRegistry()
	id := reg.Create("sales", 10)

	require.NoError(t, reg.Fail(id, assert.AnError))

	assert.ErrorIs(t, reg.Update(id, 5, 10, "late"), progress.ErrTaskFinished,
		"late updates must not mutate a finished task")
	assert.ErrorIs(t, reg.Complete(id, models.SyncSummary{}), progress.ErrTaskFinished,
		"a second terminal transition is rejected")

	snapshot, err := reg.Get(id)
	require.NoError(t, err, "shouldn't return any error")
	assert.Equal(t, progress.StatusFailed, snapshot.Status, "the first terminal state wins")
	assert.Equal(t, assert.AnError.Error(), snapshot.Error, "should carry the triggering error")
}

func TestUnitUnknownTask(t *testing.T) {
	reg := progress.NewRegistry()

	_, err := reg.Get("missing")
	assert.ErrorIs(t, err, progress.ErrTaskNotFound, "unknown ids return a typed error")
	assert.ErrorIs(t, reg.Update("missing", 1, 1, ""), progress.ErrTaskNotFound,
		"mutations of unknown ids return a typed error")
}

func TestUnitCancelRequest(t *testing.T) {
	reg := progress.NewRegistry()
	id := reg.Create("sales", 10)

	assert.False(t, reg.CancelRequested(id), "no cancel requested initially")

	require.NoError(t, reg.RequestCancel(id))
	assert.True(t, reg.CancelRequested(id), "should expose the cancel request")

	require.NoError(t, reg.Cancel(id, models.SyncSummary{Created: 3}))

	snapshot, err := reg.Get(id)
	require.NoError(t, err, "shouldn't return any error")
	assert.Equal(t, progress.StatusCancelled, snapshot.Status, "should end cancelled, not completed")
	assert.EqualValues(t, 3, snapshot.Result.Created, "committed partial progress stays visible")
}

func TestUnitSweep(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	reg := progress.NewRegistry(progress.WithNow(func() time.Time { return now }))

	oldTask := reg.Create("catalog", 1)
	require.NoError(t, reg.Complete(oldTask, models.SyncSummary{}))

	now = now.Add(8 * 24 * time.Hour)
	freshTask := reg.Create("sales", 1)
	require.NoError(t, reg.Complete(freshTask, models.SyncSummary{}))
	runningTask := reg.Create("dedup", 1)

	evicted := reg.Sweep(progress.DefaultRetention)

	assert.Equal(t, 1, evicted, "should evict only tasks older than retention")

	_, err := reg.Get(oldTask)
	assert.ErrorIs(t, err, progress.ErrTaskNotFound, "old finished task is gone")
	_, err = reg.Get(freshTask)
	assert.NoError(t, err, "fresh finished task stays")
	_, err = reg.Get(runningTask)
	assert.NoError(t, err, "running tasks are never evicted")
}

func TestUnitConcurrentAccess(t *testing.T) {
	reg := progress.NewRegistry()
	id := reg.Create("catalog", 1000)

	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for ix := 0; ix < 100; ix++ {
				_ = reg.Update(id, ix, 1000, "stage")
				_, _ = reg.Get(id)
				_ = reg.List()
			}
		}(worker)
	}
	wg.Wait()

	snapshot, err := reg.Get(id)
	require.NoError(t, err, "shouldn't return any error")
	assert.Equal(t, progress.StatusRunning, snapshot.Status, "state stays consistent under concurrency")
}
