package upsert_test

import (
	"context"
	"testing"

	"github.com/retailops/erpsync/internal/platform/models"
	"github.com/retailops/erpsync/internal/platform/models/modelstesting"
	"github.com/retailops/erpsync/internal/upsert"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitResolveAndUpsertCreates(t *testing.T) {
	store := newFakeStore()
	engine := upsert.NewEngine(store)
	offer := modelstesting.FakeOffer()

	outcome, err := engine.ResolveAndUpsert(context.TODO(), offer)

	require.NoError(t, err, "shouldn't return any error")
	assert.True(t, outcome.Created, "should report created")

	stored := store.products[outcome.ProductID]
	assert.Equal(t, offer.ExternalID, *stored.ExternalID, "should record the external id for future resolution")
	assert.Equal(t, offer.Article, stored.Article, "should store the article")
	assert.True(t, stored.IsActive, "new products start active")
}

func TestUnitResolveAndUpsertIdempotent(t *testing.T) {
	store := newFakeStore()
	engine := upsert.NewEngine(store)
	offer := modelstesting.FakeOffer()

	first, err := engine.ResolveAndUpsert(context.TODO(), offer)
	require.NoError(t, err, "shouldn't return any error")
	afterFirst := *store.products[first.ProductID]

	second, err := engine.ResolveAndUpsert(context.TODO(), offer)
	require.NoError(t, err, "shouldn't return any error")

	assert.True(t, first.Created, "first call should create")
	assert.False(t, second.Created, "second call should update")
	assert.Equal(t, first.ProductID, second.ProductID, "should resolve to the same product")
	assert.Equal(t, afterFirst, *store.products[second.ProductID], "repeated call must not drift attributes")
}

func TestUnitResolveAndUpsertPartialFeedKeepsKnownFields(t *testing.T) {
	store := newFakeStore()
	engine := upsert.NewEngine(store)

	full := modelstesting.FakeOffer()
	outcome, err := engine.ResolveAndUpsert(context.TODO(), full)
	require.NoError(t, err, "shouldn't return any error")

	partial := models.OfferRecord{ExternalID: full.ExternalID, Name: "renamed"}
	_, err = engine.ResolveAndUpsert(context.TODO(), partial)
	require.NoError(t, err, "shouldn't return any error")

	stored := store.products[outcome.ProductID]
	assert.Equal(t, "renamed", stored.Name, "non-empty incoming field should overwrite")
	assert.Equal(t, full.Article, stored.Article, "absent field must not null out the stored article")
	assert.Equal(t, full.Barcode, *stored.Barcode, "absent field must not null out the stored barcode")
}

func TestUnitResolveAndUpsertArticleFallback(t *testing.T) {
	store := newFakeStore()
	engine := upsert.NewEngine(store)

	existing := modelstesting.FakeProduct(func(p *models.Product) { p.ExternalID = nil })
	store.add(existing)

	offer := modelstesting.FakeOffer(func(o *models.OfferRecord) { o.Article = existing.Article })

	outcome, err := engine.ResolveAndUpsert(context.TODO(), offer)

	require.NoError(t, err, "shouldn't return any error")
	assert.False(t, outcome.Created, "should resolve through the article fallback")
	assert.Equal(t, existing.ID, outcome.ProductID, "should resolve to the existing product")
	assert.Equal(t, offer.ExternalID, *store.products[existing.ID].ExternalID,
		"should adopt the external id on the unbound product")
}

func TestUnitResolveAndUpsertIdentityConflict(t *testing.T) {
	store := newFakeStore()
	store.ambiguous = "broken-id"
	engine := upsert.NewEngine(store)

	offer := modelstesting.FakeOffer(func(o *models.OfferRecord) { o.ExternalID = "broken-id" })

	_, err := engine.ResolveAndUpsert(context.TODO(), offer)

	var conflict *upsert.IdentityConflictError
	require.ErrorAs(t, err, &conflict, "should fail loudly instead of picking one candidate")
	assert.Equal(t, "broken-id", conflict.ExternalID, "should name the conflicting external id")
	assert.Empty(t, store.products, "the conflicting record must not be applied")
}

func TestUnitResolveAndUpsertSameArticleDistinctExternalIDs(t *testing.T) {
	store := newFakeStore()
	engine := upsert.NewEngine(store)

	first := modelstesting.FakeOffer(func(o *models.OfferRecord) { o.Article = "shared-article" })
	second := modelstesting.FakeOffer(func(o *models.OfferRecord) { o.Article = "shared-article" })

	firstOutcome, err := engine.ResolveAndUpsert(context.TODO(), first)
	require.NoError(t, err, "shouldn't return any error")

	secondOutcome, err := engine.ResolveAndUpsert(context.TODO(), second)
	require.NoError(t, err, "shouldn't return any error")

	assert.True(t, secondOutcome.Created, "a different external id on the same article is a new product")
	assert.NotEqual(t, firstOutcome.ProductID, secondOutcome.ProductID, "the two products must never merge")
	assert.Equal(t, first.ExternalID, *store.products[firstOutcome.ProductID].ExternalID,
		"the first product keeps its external id")
	assert.Len(t, store.products, 2, "should end with two canonical rows")
}

// fakeStore is an in-memory CatalogStore.
type fakeStore struct {
	products  map[int]*models.Product
	nextID    int
	ambiguous string
}

func newFakeStore() *fakeStore {
	return &fakeStore{products: map[int]*models.Product{}, nextID: 1}
}

func (s *fakeStore) add(product models.Product) {
	clone := product
	s.products[product.ID] = &clone
	if product.ID >= s.nextID {
		s.nextID = product.ID + 1
	}
}

func (s *fakeStore) FindByExternalID(_ context.Context, externalID string) (*models.Product, error) {
	if s.ambiguous != "" && externalID == s.ambiguous {
		return nil, upsert.ErrAmbiguousExternalID
	}
	for _, product := range s.products {
		if product.ExternalID != nil && *product.ExternalID == externalID {
			clone := *product
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) FindByArticle(_ context.Context, article string) (*models.Product, error) {
	for _, product := range s.products {
		if product.Article == article {
			clone := *product
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) Insert(_ context.Context, product *models.Product) (int, error) {
	clone := *product
	clone.ID = s.nextID
	s.nextID++
	s.products[clone.ID] = &clone
	return clone.ID, nil
}

func (s *fakeStore) Update(_ context.Context, product *models.Product) error {
	clone := *product
	s.products[clone.ID] = &clone
	return nil
}
