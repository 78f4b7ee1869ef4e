package dedup

import (
	"context"
	"fmt"
	"sort"

	"github.com/retailops/erpsync/internal/platform/models"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

//go:generate mockery --name Store --filename store.go

// Strategy selects how sales rows are grouped into duplicate candidates.
type Strategy string

const (
	// StrategyExact groups by the natural key (customer, document, product, day).
	StrategyExact Strategy = "exact"
	// StrategyLoose groups by (customer, article, amount, day), ignoring the
	// document id; older imports emit the same sale with missing or
	// inconsistent document ids that the natural key cannot catch.
	StrategyLoose Strategy = "loose"
)

// Group is one set of rows denoting the same physical sale. Keep is the
// earliest-created row; Remove are the rest.
type Group struct {
	Keep   models.Sale
	Remove []models.Sale
}

// Store scans and mutates the sales table.
type Store interface {
	// ScanDuplicates returns sets of rows sharing the strategy's grouping
	// key; only sets with more than one row are returned.
	ScanDuplicates(ctx context.Context, strategy Strategy) ([][]models.Sale, error)
	// DeleteSales removes rows by surrogate id and returns how many went away.
	DeleteSales(ctx context.Context, ids []int) (int32, error)
}

// Options configure one remediation pass.
type Options struct {
	Strategy Strategy
	// Apply mutates the store. Default is a dry run that only reports what
	// would be kept and deleted.
	Apply bool
}

// Summary is the outcome of one remediation pass.
type Summary struct {
	Groups  int
	Deleted int32
}

// Remediator finds near-duplicate sales rows and removes all but the
// earliest of each group.
type Remediator struct {
	store  Store
	logger *zerolog.Logger
}

// NewRemediator returns new Remediator.
func NewRemediator(store Store, logger *zerolog.Logger) *Remediator {
	return &Remediator{store: store, logger: logger}
}

// Run scans for duplicates and, when opts.Apply is set, deletes every row
// except the earliest-created one per group. A dry run returns the same
// groups without touching the store.
func (r *Remediator) Run(ctx context.Context, opts Options) ([]Group, Summary, error) {
	sets, err := r.store.ScanDuplicates(ctx, opts.Strategy)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("can't scan duplicates: %w", err)
	}

	groups := make([]Group, 0, len(sets))
	for _, set := range sets {
		if len(set) < 2 {
			continue
		}
		groups = append(groups, toGroup(set))
	}

	summary := Summary{Groups: len(groups)}

	for _, group := range groups {
		r.logger.Info().
			Str("strategy", string(opts.Strategy)).
			Bool("dryRun", !opts.Apply).
			Int("keep", group.Keep.ID).
			Ints("remove", lo.Map(group.Remove, func(sale models.Sale, _ int) int { return sale.ID })).
			Str("customer", group.Keep.CustomerID).
			Time("day", models.Day(group.Keep.SoldAt)).
			Msg("duplicate sales group")
	}

	if !opts.Apply {
		return groups, summary, nil
	}

	var ids []int
	for _, group := range groups {
		for _, sale := range group.Remove {
			ids = append(ids, sale.ID)
		}
	}
	if len(ids) == 0 {
		return groups, summary, nil
	}

	deleted, err := r.store.DeleteSales(ctx, ids)
	if err != nil {
		return groups, summary, fmt.Errorf("can't delete duplicate sales: %w", err)
	}
	summary.Deleted = deleted

	return groups, summary, nil
}

// toGroup keeps the earliest-created row, ties broken by the lower surrogate
// id so repeated runs pick the same winner.
func toGroup(set []models.Sale) Group {
	sorted := make([]models.Sale, len(set))
	copy(sorted, set)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	return Group{Keep: sorted[0], Remove: sorted[1:]}
}
