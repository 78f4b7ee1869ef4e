package upsert

import (
	"context"
	"errors"
	"fmt"

	"github.com/retailops/erpsync/internal/platform/models"
	"github.com/samber/lo"
)

//go:generate mockery --name CatalogStore --filename catalog_store.go

// ErrAmbiguousExternalID is returned by stores when an external id matches
// more than one product. The invariant that an external id belongs to exactly
// one canonical row has been broken upstream; the engine fails loudly instead
// of picking one.
var ErrAmbiguousExternalID = errors.New("external id maps to multiple products")

// CatalogStore is the product store surface the engine mutates. Find methods
// return nil without error when no product matches.
type CatalogStore interface {
	FindByExternalID(ctx context.Context, externalID string) (*models.Product, error)
	FindByArticle(ctx context.Context, article string) (*models.Product, error)
	Insert(ctx context.Context, product *models.Product) (int, error)
	Update(ctx context.Context, product *models.Product) error
}

// Outcome reports what one resolve-and-upsert call did.
type Outcome struct {
	Created   bool
	ProductID int
}

// IdentityConflictError is returned when an external id would map to more
// than one canonical product. The record is fatal and must be skipped; the
// engine never silently merges the candidates.
type IdentityConflictError struct {
	ExternalID string
	Article    string
}

func (e *IdentityConflictError) Error() string {
	return fmt.Sprintf(
		"identity conflict: external id %q (article %q) maps to more than one product",
		e.ExternalID, e.Article,
	)
}

// Engine resolves incoming offers against the catalog and applies them.
type Engine struct {
	store CatalogStore
}

// NewEngine returns new Engine.
func NewEngine(store CatalogStore) *Engine {
	return &Engine{store: store}
}

// ResolveAndUpsert maps offer onto a canonical product and applies it.
// Resolution order: exact external id, then article, then create. Only
// non-empty incoming fields overwrite stored values, so a partial feed never
// nulls out known attributes. Safe to call repeatedly with the same offer:
// comparison happens against current stored values.
func (e *Engine) ResolveAndUpsert(ctx context.Context, offer models.OfferRecord) (Outcome, error) {
	product, err := e.resolve(ctx, offer)
	if err != nil {
		return Outcome{}, err
	}

	if product == nil {
		id, err := e.store.Insert(ctx, newProduct(offer))
		if err != nil {
			return Outcome{}, fmt.Errorf("can't insert product: %w", err)
		}
		return Outcome{Created: true, ProductID: id}, nil
	}

	merge(product, offer)
	if err := e.store.Update(ctx, product); err != nil {
		return Outcome{}, fmt.Errorf("can't update product %d: %w", product.ID, err)
	}

	return Outcome{ProductID: product.ID}, nil
}

func (e *Engine) resolve(ctx context.Context, offer models.OfferRecord) (*models.Product, error) {
	if offer.ExternalID != "" {
		product, err := e.store.FindByExternalID(ctx, offer.ExternalID)
		if errors.Is(err, ErrAmbiguousExternalID) {
			return nil, &IdentityConflictError{
				ExternalID: offer.ExternalID,
				Article:    offer.Article,
			}
		}
		if err != nil {
			return nil, fmt.Errorf("can't resolve external id %q: %w", offer.ExternalID, err)
		}
		if product != nil {
			return product, nil
		}
	}

	if offer.Article == "" {
		return nil, nil
	}

	product, err := e.store.FindByArticle(ctx, offer.Article)
	if err != nil {
		return nil, fmt.Errorf("can't resolve article %q: %w", offer.Article, err)
	}
	if product == nil {
		return nil, nil
	}

	// The article fallback must never rebind an external id: a product bound
	// to a different one is a distinct canonical row, so the offer is new.
	if offer.ExternalID != "" && product.ExternalID != nil && *product.ExternalID != offer.ExternalID {
		return nil, nil
	}

	return product, nil
}

func newProduct(offer models.OfferRecord) *models.Product {
	product := &models.Product{
		Article:  offer.Article,
		Name:     offer.Name,
		IsActive: true,
	}
	if offer.ExternalID != "" {
		product.ExternalID = lo.ToPtr(offer.ExternalID)
	}
	setOptional(&product.Barcode, offer.Barcode)
	setOptional(&product.Unit, offer.Unit)
	setOptional(&product.GroupName, offer.GroupName)

	return product
}

// merge overwrites product fields with non-empty offer fields only.
func merge(product *models.Product, offer models.OfferRecord) {
	if offer.ExternalID != "" && product.ExternalID == nil {
		product.ExternalID = lo.ToPtr(offer.ExternalID)
	}
	if offer.Article != "" {
		product.Article = offer.Article
	}
	if offer.Name != "" {
		product.Name = offer.Name
	}
	setOptional(&product.Barcode, offer.Barcode)
	setOptional(&product.Unit, offer.Unit)
	setOptional(&product.GroupName, offer.GroupName)
	product.IsActive = true
}

func setOptional(field **string, value string) {
	if value != "" {
		*field = lo.ToPtr(value)
	}
}
