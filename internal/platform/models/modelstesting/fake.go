package modelstesting

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/go-faker/faker/v4"
	"github.com/retailops/erpsync/internal/platform/models"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// FakeOffer returns models.OfferRecord with fake data and a random location split.
func FakeOffer(ops ...func(o *models.OfferRecord)) models.OfferRecord {
	offer := models.OfferRecord{
		ExternalID:         faker.UUIDHyphenated(),
		Article:            faker.Word(),
		Name:               faker.Word(),
		Barcode:            faker.CCNumber(),
		Unit:               "pcs",
		GroupName:          faker.Word(),
		LocationQuantities: fakeLocationQuantities(),
	}
	for qty := range offer.LocationQuantities {
		offer.TotalQuantity += offer.LocationQuantities[qty]
	}

	for _, op := range ops {
		op(&offer)
	}

	return offer
}

// FakeProduct returns models.Product with fake data.
func FakeProduct(ops ...func(p *models.Product)) models.Product {
	product := models.Product{
		ID:         rand.Intn(100000) + 1,
		ExternalID: lo.ToPtr(faker.UUIDHyphenated()),
		Article:    faker.Word(),
		Name:       faker.Word(),
		Barcode:    lo.ToPtr(faker.CCNumber()),
		Unit:       lo.ToPtr("pcs"),
		GroupName:  lo.ToPtr(faker.Word()),
		IsActive:   true,
		CreatedAt:  time.Now().UTC().Add(-time.Duration(rand.Intn(1000)) * time.Hour),
	}

	for _, op := range ops {
		op(&product)
	}

	return product
}

// FakeSale returns models.Sale with fake data.
func FakeSale(ops ...func(s *models.Sale)) models.Sale {
	sale := models.Sale{
		ID:         rand.Intn(100000) + 1,
		ExternalID: lo.ToPtr(faker.UUIDHyphenated()),
		CustomerID: faker.UUIDHyphenated(),
		DocumentID: fmt.Sprintf("DOC-%06d", rand.Intn(1000000)),
		ProductID:  faker.UUIDHyphenated(),
		Article:    faker.Word(),
		SoldAt:     time.Now().UTC().Add(-time.Duration(rand.Intn(2000)) * time.Hour),
		Quantity:   rand.Intn(10) + 1,
		Revenue:    decimal.NewFromInt(int64(rand.Intn(100000))).Div(decimal.NewFromInt(100)),
		Channel:    "pos",
		CreatedAt:  time.Now().UTC(),
	}

	for _, op := range ops {
		op(&sale)
	}

	return sale
}

func fakeLocationQuantities(ops ...func(q map[string]int)) map[string]int {
	quantities := map[string]int{}
	for ix := 0; ix < rand.Intn(3)+1; ix++ {
		quantities[faker.UUIDHyphenated()] = rand.Intn(50)
	}

	for _, op := range ops {
		op(quantities)
	}

	return quantities
}
