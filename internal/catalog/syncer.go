package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/retailops/erpsync/internal/platform/models"
	"github.com/retailops/erpsync/internal/upsert"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

//go:generate mockery --name Decoder --filename decoder.go
//go:generate mockery --name Engine --filename engine.go
//go:generate mockery --name StockStore --filename stock_store.go
//go:generate mockery --name Allocator --filename allocator.go

// progressEvery is how many applied offers pass between progress updates.
const progressEvery = 50

// Fetcher fetches exchange documents.
type Fetcher interface {
	FetchDocument(ctx context.Context, url string) (io.ReadCloser, error)
}

// Decoder decodes an exchange document into offer results.
type Decoder interface {
	Decode(ctx context.Context, document io.Reader, output chan<- models.OfferResult) error
}

// TabularDecoder decodes a flat tabular export into offer results.
type TabularDecoder interface {
	Decode(ctx context.Context, document []byte, output chan<- models.OfferResult) error
}

// Engine resolves and applies offers against the catalog.
type Engine interface {
	ResolveAndUpsert(ctx context.Context, offer models.OfferRecord) (upsert.Outcome, error)
}

// StockStore mutates per-location stock and product activity flags.
type StockStore interface {
	// ReplaceStock swaps all stock rows of the product for the given split in
	// one step, so readers never observe a stale partial state.
	ReplaceStock(ctx context.Context, productID int, quantities map[string]int) error
	// DeactivateMissing deactivates products whose external id was not seen
	// in the current document. Nothing is ever deleted by sync.
	DeactivateMissing(ctx context.Context, seenExternalIDs []string) (int32, error)
}

// Allocator splits an undistributed total across locations.
type Allocator interface {
	Allocate(ctx context.Context, productExternalID string, total int) (models.Allocation, error)
}

// Progress receives upsert progress updates.
type Progress interface {
	Update(id string, current, total int, stage string) error
}

// Syncer runs a full catalog sync from an exchange document: decode, resolve
// and upsert every offer, replace stock splits, then deactivate products the
// document no longer mentions.
type Syncer struct {
	fetcher Fetcher
	decoder Decoder
	tabular TabularDecoder
	engine  Engine
	stock   StockStore
	alloc   Allocator
	logger  *zerolog.Logger
}

// NewSyncer returns new Syncer.
func NewSyncer(
	fetcher Fetcher,
	decoder Decoder,
	tabular TabularDecoder,
	engine Engine,
	stock StockStore,
	alloc Allocator,
	logger *zerolog.Logger,
) *Syncer {
	return &Syncer{
		fetcher: fetcher,
		decoder: decoder,
		tabular: tabular,
		engine:  engine,
		stock:   stock,
		alloc:   alloc,
		logger:  logger,
	}
}

// SyncURL fetches the exchange document from url and syncs it.
func (s *Syncer) SyncURL(ctx context.Context, url string, progress Progress, taskID string) (models.SyncSummary, error) {
	document, err := s.fetcher.FetchDocument(ctx, url)
	if err != nil {
		return models.SyncSummary{}, fmt.Errorf("can't fetch exchange document: %w", err)
	}
	defer document.Close()

	return s.SyncDocument(ctx, document, progress, taskID)
}

// SyncDocument syncs one hierarchical exchange document.
func (s *Syncer) SyncDocument(ctx context.Context, document io.Reader, progress Progress, taskID string) (models.SyncSummary, error) {
	return s.run(ctx, progress, taskID, func(egCtx context.Context, results chan<- models.OfferResult) error {
		return s.decoder.Decode(egCtx, document, results)
	})
}

// SyncTabular syncs one flat tabular export. Both intake formats reach the
// upsert engine through the same offer shape.
func (s *Syncer) SyncTabular(ctx context.Context, document []byte, progress Progress, taskID string) (models.SyncSummary, error) {
	buffered := bytes.Clone(document)
	return s.run(ctx, progress, taskID, func(egCtx context.Context, results chan<- models.OfferResult) error {
		return s.tabular.Decode(egCtx, buffered, results)
	})
}

func (s *Syncer) run(
	ctx context.Context,
	progress Progress,
	taskID string,
	decode func(ctx context.Context, results chan<- models.OfferResult) error,
) (models.SyncSummary, error) {
	results := make(chan models.OfferResult)
	summary := models.SyncSummary{}
	var seenExternalIDs []string

	errGroup, egCtx := errgroup.WithContext(ctx)

	errGroup.Go(func() error {
		defer close(results)
		if err := decode(egCtx, results); err != nil {
			return fmt.Errorf("can't decode document: %w", err)
		}
		return nil
	})

	errGroup.Go(func() error {
		applied := 0
		for result := range results {
			if result.Skip != nil {
				summary.Skipped++
				s.logger.Debug().
					Str("field", result.Skip.Field).
					Str("cause", result.Skip.Cause).
					Msg("skipping offer")
				continue
			}

			seen, err := s.applyOffer(egCtx, result.Offer, &summary)
			if err != nil {
				return err
			}
			if seen != "" {
				seenExternalIDs = append(seenExternalIDs, seen)
			}

			applied++
			if applied%progressEvery == 0 {
				_ = progress.Update(taskID, applied, 0, "upserting offers")
			}
		}
		return nil
	})

	if err := errGroup.Wait(); err != nil {
		return summary, err
	}

	deactivated, err := s.stock.DeactivateMissing(ctx, seenExternalIDs)
	if err != nil {
		return summary, fmt.Errorf("can't deactivate missing products: %w", err)
	}

	s.logger.Info().
		Int32("created", summary.Created).
		Int32("updated", summary.Updated).
		Int32("skipped", summary.Skipped).
		Int32("errored", summary.Errored).
		Int32("deactivated", deactivated).
		Msg("catalog sync finished")

	return summary, nil
}

// applyOffer upserts one offer and replaces its stock split. Record-level
// failures are absorbed into the summary, never bubbled past the document.
func (s *Syncer) applyOffer(ctx context.Context, offer models.OfferRecord, summary *models.SyncSummary) (string, error) {
	outcome, err := s.engine.ResolveAndUpsert(ctx, offer)

	// The document mentioned this external id either way; a record-level
	// failure must never feed the deactivation pass.
	var conflict *upsert.IdentityConflictError
	if errors.As(err, &conflict) {
		summary.Errored++
		s.logger.Warn().
			Str("externalId", conflict.ExternalID).
			Str("article", conflict.Article).
			Msg("identity conflict, record skipped")
		return offer.ExternalID, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		summary.Errored++
		s.logger.Error().
			Err(err).
			Str("externalId", offer.ExternalID).
			Msg("can't upsert offer")
		return offer.ExternalID, nil
	}

	if outcome.Created {
		summary.Created++
	} else {
		summary.Updated++
	}

	if err := s.replaceStock(ctx, offer, outcome.ProductID); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		summary.Errored++
		s.logger.Error().
			Err(err).
			Int("productId", outcome.ProductID).
			Msg("can't replace stock")
	}

	return offer.ExternalID, nil
}

func (s *Syncer) replaceStock(ctx context.Context, offer models.OfferRecord, productID int) error {
	quantities := offer.LocationQuantities

	// A bare total needs a derived split before it can land on locations.
	if !offer.Distributed() && offer.TotalQuantity > 0 {
		allocation, err := s.alloc.Allocate(ctx, offer.ExternalID, offer.TotalQuantity)
		if err != nil {
			return fmt.Errorf("can't allocate undistributed quantity: %w", err)
		}
		quantities = allocation.Quantities
	}

	return s.stock.ReplaceStock(ctx, productID, quantities)
}
