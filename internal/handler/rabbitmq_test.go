package handler

import (
	"context"
	"testing"
	"time"

	"github.com/retailops/erpsync/internal/catalog"
	"github.com/retailops/erpsync/internal/dedup"
	"github.com/retailops/erpsync/internal/platform"
	"github.com/retailops/erpsync/internal/platform/models"
	"github.com/retailops/erpsync/internal/progress"
	"github.com/retailops/erpsync/internal/sales"
	"github.com/retailops/erpsync/pkg/v1/commander"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitDispatchCatalogCommand(t *testing.T) {
	registry := progress.NewRegistry()
	h := newTestHandler(registry)
	h.catalog = &fakeCatalogSyncer{summary: models.SyncSummary{Created: 5}}

	err := h.dispatch(context.TODO(), &commander.SyncCommand{
		Kind:        commander.KindCatalog,
		DocumentURL: "http://erp.local/export.xml",
	})
	require.NoError(t, err)

	snapshot := waitForFinished(t, registry)
	assert.Equal(t, progress.StatusCompleted, snapshot.Status, "task should complete")
	require.NotNil(t, snapshot.Result)
	assert.Equal(t, int32(5), snapshot.Result.Created, "should record sync summary")
}

func TestUnitDispatchCatalogCommandWithoutURL(t *testing.T) {
	h := newTestHandler(progress.NewRegistry())

	err := h.dispatch(context.TODO(), &commander.SyncCommand{Kind: commander.KindCatalog})

	require.Error(t, err, "should reject catalog command without document url")
}

func TestUnitDispatchRejectsConcurrentRunOfSameKind(t *testing.T) {
	registry := progress.NewRegistry()
	registry.Create(commander.KindSales, 0)
	h := newTestHandler(registry)

	err := h.dispatch(context.TODO(), &commander.SyncCommand{Kind: commander.KindSales})

	require.ErrorIs(t, err, platform.ErrAlreadyRunning)
}

func TestUnitDispatchSalesCancelled(t *testing.T) {
	registry := progress.NewRegistry()
	h := newTestHandler(registry)
	h.sales = &fakeSalesSyncer{err: platform.ErrSyncCancelled}

	err := h.dispatch(context.TODO(), &commander.SyncCommand{Kind: commander.KindSales})
	require.NoError(t, err)

	snapshot := waitForFinished(t, registry)
	assert.Equal(t, progress.StatusCancelled, snapshot.Status, "cancelled sync should mark task cancelled")
}

func TestUnitDispatchDedupRecordsDeleted(t *testing.T) {
	registry := progress.NewRegistry()
	h := newTestHandler(registry)
	h.dedup = &fakeDeduplicator{summary: dedup.Summary{Groups: 2, Deleted: 3}}

	err := h.dispatch(context.TODO(), &commander.SyncCommand{
		Kind:     commander.KindDedup,
		Strategy: "loose",
		Apply:    true,
	})
	require.NoError(t, err)

	snapshot := waitForFinished(t, registry)
	assert.Equal(t, progress.StatusCompleted, snapshot.Status)
	require.NotNil(t, snapshot.Result)
	assert.Equal(t, int32(3), snapshot.Result.Deleted, "should record deleted rows")
}

func TestUnitDispatchCancelCommand(t *testing.T) {
	registry := progress.NewRegistry()
	taskID := registry.Create(commander.KindSales, 0)
	h := newTestHandler(registry)

	err := h.dispatch(context.TODO(), &commander.SyncCommand{
		Kind:   commander.KindCancel,
		TaskID: taskID,
	})

	require.NoError(t, err)
	assert.True(t, registry.CancelRequested(taskID), "cancel command should flag the task")
}

func TestUnitDispatchCancelUnknownTask(t *testing.T) {
	h := newTestHandler(progress.NewRegistry())

	err := h.dispatch(context.TODO(), &commander.SyncCommand{
		Kind:   commander.KindCancel,
		TaskID: "no-such-task",
	})

	require.ErrorIs(t, err, progress.ErrTaskNotFound)
}

func TestUnitDispatchUnknownKind(t *testing.T) {
	h := newTestHandler(progress.NewRegistry())

	err := h.dispatch(context.TODO(), &commander.SyncCommand{Kind: "reindex"})

	require.Error(t, err, "should reject unknown command kind")
}

func newTestHandler(registry *progress.Registry) *RMQHandler {
	logger := zerolog.Nop()
	return &RMQHandler{
		registry: registry,
		catalog:  &fakeCatalogSyncer{},
		sales:    &fakeSalesSyncer{},
		dedup:    &fakeDeduplicator{},
		logger:   &logger,
	}
}

func waitForFinished(t *testing.T, registry *progress.Registry) progress.Snapshot {
	t.Helper()

	var snapshot progress.Snapshot
	require.Eventually(t, func() bool {
		for _, s := range registry.List() {
			if s.Status != progress.StatusRunning {
				snapshot = s
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond, "task should reach a terminal state")

	return snapshot
}

type fakeCatalogSyncer struct {
	summary models.SyncSummary
	err     error
}

func (f *fakeCatalogSyncer) SyncURL(
	_ context.Context,
	_ string,
	_ catalog.Progress,
	_ string,
) (models.SyncSummary, error) {
	return f.summary, f.err
}

type fakeSalesSyncer struct {
	summary models.SyncSummary
	err     error
}

func (f *fakeSalesSyncer) Sync(_ context.Context, _ sales.Options) (models.SyncSummary, error) {
	return f.summary, f.err
}

type fakeDeduplicator struct {
	summary dedup.Summary
	err     error
}

func (f *fakeDeduplicator) Run(_ context.Context, _ dedup.Options) ([]dedup.Group, dedup.Summary, error) {
	return nil, f.summary, f.err
}
