package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/retailops/erpsync/internal/catalog"
	"github.com/retailops/erpsync/internal/dedup"
	"github.com/retailops/erpsync/internal/platform"
	"github.com/retailops/erpsync/internal/platform/models"
	"github.com/retailops/erpsync/internal/platform/rabbitmq"
	"github.com/retailops/erpsync/internal/progress"
	"github.com/retailops/erpsync/internal/sales"
	"github.com/retailops/erpsync/pkg/v1/commander"
	"github.com/rs/zerolog"
)

// CatalogSyncer syncs the product catalog from an exchange document url.
type CatalogSyncer interface {
	SyncURL(ctx context.Context, url string, progress catalog.Progress, taskID string) (models.SyncSummary, error)
}

// SalesSyncer syncs the sales register over a historical window.
type SalesSyncer interface {
	Sync(ctx context.Context, opts sales.Options) (models.SyncSummary, error)
}

// Deduplicator finds and removes near-duplicate sales rows.
type Deduplicator interface {
	Run(ctx context.Context, opts dedup.Options) ([]dedup.Group, dedup.Summary, error)
}

// RMQHandler handles RMQ sync commands.
type RMQHandler struct {
	rmq      *rabbitmq.RabbitMQ
	registry *progress.Registry
	catalog  CatalogSyncer
	sales    SalesSyncer
	dedup    Deduplicator
	logger   *zerolog.Logger
}

// NewHandler returns new RMQHandler.
func NewHandler(
	rmq *rabbitmq.RabbitMQ,
	registry *progress.Registry,
	catalogSyncer CatalogSyncer,
	salesSyncer SalesSyncer,
	deduplicator Deduplicator,
	logger *zerolog.Logger,
) *RMQHandler {
	return &RMQHandler{
		rmq:      rmq,
		registry: registry,
		catalog:  catalogSyncer,
		sales:    salesSyncer,
		dedup:    deduplicator,
		logger:   logger,
	}
}

// Start starts consuming and handling sync commands from RMQ. Long sync runs
// execute in the background so cancel commands on the same queue go through
// while a sync is in flight; their outcome lands in the task registry.
func (h *RMQHandler) Start(ctx context.Context, queue string) error {
	errorsChan, err := h.rmq.Consume(ctx, queue, func(ctx context.Context, message []byte) error {
		cmd, err := decodeMessage(message)
		if err != nil {
			return err
		}

		return h.dispatch(ctx, cmd)
	})
	if err != nil {
		return err
	}

	go func() {
		for err := range errorsChan {
			h.logger.Error().
				Err(err).
				Msg("can't handle message")
		}
	}()

	return nil
}

func (h *RMQHandler) dispatch(ctx context.Context, cmd *commander.SyncCommand) error {
	switch cmd.Kind {
	case commander.KindCatalog:
		return h.startCatalogSync(ctx, cmd)
	case commander.KindSales:
		return h.startSalesSync(ctx, cmd)
	case commander.KindDedup:
		return h.startDedup(ctx, cmd)
	case commander.KindCancel:
		return h.cancelTask(cmd.TaskID)
	default:
		return fmt.Errorf("unknown command kind %q", cmd.Kind)
	}
}

func (h *RMQHandler) startCatalogSync(ctx context.Context, cmd *commander.SyncCommand) error {
	if cmd.DocumentURL == "" {
		return errors.New("catalog sync command without document url")
	}
	if err := h.guard(commander.KindCatalog); err != nil {
		return err
	}

	taskID := h.registry.Create(commander.KindCatalog, 0)
	h.logger.Debug().
		Str("taskId", taskID).
		Str("documentUrl", cmd.DocumentURL).
		Msg("catalog sync started")

	go func() {
		summary, err := h.catalog.SyncURL(ctx, cmd.DocumentURL, h.registry, taskID)
		h.finishTask(taskID, summary, err)
	}()

	return nil
}

func (h *RMQHandler) startSalesSync(ctx context.Context, cmd *commander.SyncCommand) error {
	if err := h.guard(commander.KindSales); err != nil {
		return err
	}

	taskID := h.registry.Create(commander.KindSales, 0)
	opts := sales.Options{
		Full:      cmd.Full,
		ChunkDays: cmd.ChunkDays,
		TaskID:    taskID,
	}
	if cmd.From != nil {
		opts.From = *cmd.From
	}
	if cmd.To != nil {
		opts.To = *cmd.To
	}

	h.logger.Debug().
		Str("taskId", taskID).
		Bool("full", cmd.Full).
		Msg("sales sync started")

	go func() {
		summary, err := h.sales.Sync(ctx, opts)
		h.finishTask(taskID, summary, err)
	}()

	return nil
}

func (h *RMQHandler) startDedup(ctx context.Context, cmd *commander.SyncCommand) error {
	if err := h.guard(commander.KindDedup); err != nil {
		return err
	}

	strategy := dedup.Strategy(cmd.Strategy)
	if strategy == "" {
		strategy = dedup.StrategyExact
	}

	taskID := h.registry.Create(commander.KindDedup, 0)
	h.logger.Debug().
		Str("taskId", taskID).
		Str("strategy", string(strategy)).
		Bool("apply", cmd.Apply).
		Msg("dedup started")

	go func() {
		groups, summary, err := h.dedup.Run(ctx, dedup.Options{Strategy: strategy, Apply: cmd.Apply})
		if err != nil {
			h.finishTask(taskID, models.SyncSummary{}, err)
			return
		}

		h.logger.Info().
			Str("taskId", taskID).
			Int("groups", len(groups)).
			Int32("deleted", summary.Deleted).
			Msg("dedup finished")

		h.finishTask(taskID, models.SyncSummary{Deleted: summary.Deleted}, nil)
	}()

	return nil
}

func (h *RMQHandler) cancelTask(taskID string) error {
	if taskID == "" {
		return errors.New("cancel command without task id")
	}

	err := h.registry.RequestCancel(taskID)
	if errors.Is(err, progress.ErrTaskFinished) {
		h.logger.Warn().
			Str("taskId", taskID).
			Msg("cancel requested for finished task")
		return nil
	}

	return err
}

// guard rejects a command while another task of the same kind is running.
func (h *RMQHandler) guard(kind string) error {
	for _, snapshot := range h.registry.List() {
		if snapshot.Kind == kind && snapshot.Status == progress.StatusRunning {
			return platform.ErrAlreadyRunning
		}
	}
	return nil
}

func (h *RMQHandler) finishTask(taskID string, summary models.SyncSummary, err error) {
	switch {
	case errors.Is(err, platform.ErrSyncCancelled):
		if regErr := h.registry.Cancel(taskID, summary); regErr != nil {
			h.logger.Error().Err(regErr).Str("taskId", taskID).Msg("can't cancel task")
		}
	case err != nil:
		h.logger.Error().Err(err).Str("taskId", taskID).Msg("sync failed")
		if regErr := h.registry.Fail(taskID, err); regErr != nil {
			h.logger.Error().Err(regErr).Str("taskId", taskID).Msg("can't fail task")
		}
	default:
		if regErr := h.registry.Complete(taskID, summary); regErr != nil {
			h.logger.Error().Err(regErr).Str("taskId", taskID).Msg("can't complete task")
		}
	}
}

func decodeMessage(msg []byte) (*commander.SyncCommand, error) {
	var cmd commander.SyncCommand
	err := json.Unmarshal(msg, &cmd)
	if err != nil {
		return nil, fmt.Errorf("can't decode sync command: %w", err)
	}

	return &cmd, err
}
