package sales

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/retailops/erpsync/internal/erpclient"
	"github.com/retailops/erpsync/internal/platform"
	"github.com/retailops/erpsync/internal/platform/models"
	"github.com/rs/zerolog"
)

//go:generate mockery --name PageReader --filename page_reader.go
//go:generate mockery --name TransactionStore --filename transaction_store.go

// EntitySales is the sync bookkeeping key for the sales register.
const EntitySales = "sales"

// DefaultBackfill bounds the first-ever sync when no explicit start date and
// no last-success timestamp exist.
const DefaultBackfill = 365 * 24 * time.Hour

// DefaultChunkDays is the chunk width used when the command does not set one.
const DefaultChunkDays = 30

// PageReader walks paginated remote registers.
type PageReader interface {
	FetchAll(
		ctx context.Context,
		resource erpclient.Resource,
		pageSize int,
		filter erpclient.PageFilter,
		handlePage func(records []json.RawMessage) error,
	) error
}

// TransactionStore persists sales. UpsertSales applies one chunk as a single
// transaction keyed by the natural key, so re-running a period updates rows
// instead of duplicating them.
type TransactionStore interface {
	UpsertSales(ctx context.Context, sales []models.Sale) (created int32, updated int32, err error)
	LastSuccess(ctx context.Context, entity string) (*time.Time, error)
	SetLastSuccess(ctx context.Context, entity string, at time.Time) error
}

// Progress receives per-chunk updates and exposes cancel requests.
type Progress interface {
	Update(id string, current, total int, stage string) error
	CancelRequested(id string) bool
}

// Clock provides times.
type Clock interface {
	// Now returns current UTC time.
	Now() *time.Time
}

// Options configure one sync run.
type Options struct {
	// From and To bound the sync window; zero values fall back to the last
	// successful sync (incremental) and today respectively.
	From time.Time
	To   time.Time
	// Full ignores the last-success timestamp and re-reads the whole window.
	Full      bool
	ChunkDays int
	TaskID    string
}

// Option is custom configuration of Orchestrator.
type Option func(o *Orchestrator)

// Orchestrator drives the paginated reader over a historical window, one
// bounded chunk at a time. Each chunk commits independently, so a transient
// failure costs one chunk, not the whole backfill.
type Orchestrator struct {
	reader   PageReader
	store    TransactionStore
	progress Progress
	pageSize int
	logger   *zerolog.Logger
	clock    Clock
}

// NewOrchestrator returns new Orchestrator.
func NewOrchestrator(
	reader PageReader,
	store TransactionStore,
	progress Progress,
	pageSize int,
	logger *zerolog.Logger,
	ops ...Option,
) *Orchestrator {
	orc := &Orchestrator{
		reader:   reader,
		store:    store,
		progress: progress,
		pageSize: pageSize,
		logger:   logger,
		clock:    systemClock{},
	}

	for _, op := range ops {
		op(orc)
	}

	return orc
}

// Sync reads the sales register over the window in chronological chunks.
// Chunk failures are logged and counted, never bubbled; the returned error is
// non-nil only for cancellation or a total inability to reach the ERP.
func (o *Orchestrator) Sync(ctx context.Context, opts Options) (models.SyncSummary, error) {
	window, err := o.resolveWindow(ctx, opts)
	if err != nil {
		return models.SyncSummary{}, err
	}

	chunkDays := opts.ChunkDays
	if chunkDays < 1 {
		chunkDays = DefaultChunkDays
	}

	chunks := SplitRange(window.From, window.To, chunkDays)
	summary := models.SyncSummary{}

	for ix, chunk := range chunks {
		if o.progress.CancelRequested(opts.TaskID) {
			o.logger.Info().
				Int("completedChunks", ix).
				Msg("sales sync cancelled between chunks")
			return summary, platform.ErrSyncCancelled
		}

		chunkSummary, err := o.syncChunk(ctx, chunk)
		summary.Add(chunkSummary)

		if err != nil {
			if errors.Is(err, erpclient.ErrNoEndpoint) {
				// Nothing answered at all; no point walking further chunks.
				return summary, fmt.Errorf("can't reach sales register: %w", err)
			}
			summary.FailedChunks++
			o.logger.Error().
				Err(err).
				Time("chunkFrom", chunk.From).
				Time("chunkTo", chunk.To).
				Msg("sales chunk failed, continuing with next chunk")
		}

		_ = o.progress.Update(opts.TaskID, ix+1, len(chunks),
			fmt.Sprintf("synced sales through %s", chunk.To.Format("2006-01-02")))
	}

	if summary.FailedChunks == 0 {
		if err := o.store.SetLastSuccess(ctx, EntitySales, window.To); err != nil {
			o.logger.Error().Err(err).Msg("can't record last successful sales sync")
		}
	}

	return summary, nil
}

// resolveWindow fills missing range boundaries: incremental runs resume from
// the last success, first runs fall back to the backfill horizon.
func (o *Orchestrator) resolveWindow(ctx context.Context, opts Options) (Chunk, error) {
	now := *o.clock.Now()

	to := opts.To
	if to.IsZero() {
		to = now
	}

	from := opts.From
	if from.IsZero() && !opts.Full {
		lastSuccess, err := o.store.LastSuccess(ctx, EntitySales)
		if err != nil {
			return Chunk{}, fmt.Errorf("can't read last successful sync: %w", err)
		}
		if lastSuccess != nil {
			from = *lastSuccess
		}
	}
	if from.IsZero() {
		from = now.Add(-DefaultBackfill)
	}

	return Chunk{From: models.Day(from), To: models.Day(to)}, nil
}

// syncChunk reads the chunk's window to exhaustion and commits it as one unit.
func (o *Orchestrator) syncChunk(ctx context.Context, chunk Chunk) (models.SyncSummary, error) {
	var (
		sales   []models.Sale
		skipped int32
	)

	// The filter upper bound is exclusive of the next day, keeping the
	// chunk's inclusive day boundaries.
	filterTo := chunk.To.AddDate(0, 0, 1)
	filter := erpclient.PageFilter{From: &chunk.From, To: &filterTo}

	err := o.reader.FetchAll(ctx, erpclient.ResourceSales, o.pageSize, filter,
		func(records []json.RawMessage) error {
			for _, record := range records {
				sale, skip := parseSale(record)
				if skip != nil {
					skipped++
					o.logger.Debug().
						Str("field", skip.Field).
						Str("cause", skip.Cause).
						Msg("skipping sales record")
					continue
				}
				sales = append(sales, sale)
			}
			return nil
		})
	if err != nil {
		return models.SyncSummary{Skipped: skipped}, err
	}

	created, updated, err := o.store.UpsertSales(ctx, sales)
	if err != nil {
		return models.SyncSummary{Skipped: skipped}, fmt.Errorf("can't commit sales chunk: %w", err)
	}

	return models.SyncSummary{Created: created, Updated: updated, Skipped: skipped}, nil
}

// WithClock sets Orchestrator's custom Clock.
func WithClock(c Clock) Option {
	return func(o *Orchestrator) {
		o.clock = c
	}
}

type systemClock struct{}

// Now returns current time.
func (c systemClock) Now() *time.Time {
	t := time.Now().UTC()
	return &t
}
