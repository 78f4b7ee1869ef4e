package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OfferResult contains decoded offer with skip reason if the record was unusable.
type OfferResult struct {
	Offer OfferRecord
	Skip  *SkipReason
}

// SkipReason describes why one source record was skipped without aborting the document.
type SkipReason struct {
	Field string
	Cause string
}

// OfferRecord is one offer line parsed from an exchange document or tabular export.
type OfferRecord struct {
	ExternalID string
	Article    string
	Name       string
	Barcode    string
	Unit       string
	GroupName  string
	// LocationQuantities maps location external id to quantity. Empty when
	// the source carried only an undistributed total.
	LocationQuantities map[string]int
	TotalQuantity      int
}

// Distributed reports whether the offer carries a per-location split.
func (o OfferRecord) Distributed() bool {
	return len(o.LocationQuantities) > 0
}

// Product is canonical product model.
type Product struct {
	ID         int
	ExternalID *string
	Article    string
	Name       string
	Barcode    *string
	Unit       *string
	GroupName  *string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}

// StockLevel is quantity of one product at one location.
type StockLevel struct {
	ProductID         int
	LocationID        string
	Quantity          int
	ReservedQuantity  int
	AvailableQuantity int
}

// Sale is one transaction line pulled from the ERP.
type Sale struct {
	ID         int
	ExternalID *string
	CustomerID string
	DocumentID string
	ProductID  string
	Article    string
	SoldAt     time.Time
	Quantity   int
	Revenue    decimal.Decimal
	Channel    string
	CreatedAt  time.Time
}

// SaleKey is the business natural key of a sale. Document and product ids are
// normalized to empty strings and the timestamp is truncated to the calendar
// day, so two exports of the same physical sale collapse onto one key.
type SaleKey struct {
	CustomerID string
	DocumentID string
	ProductID  string
	Day        time.Time
}

// NaturalKey returns the sale's normalized natural key.
func (s Sale) NaturalKey() SaleKey {
	return SaleKey{
		CustomerID: strings.TrimSpace(s.CustomerID),
		DocumentID: strings.TrimSpace(s.DocumentID),
		ProductID:  strings.TrimSpace(s.ProductID),
		Day:        Day(s.SoldAt),
	}
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Allocation is an ephemeral per-product stock split.
type Allocation struct {
	ProductExternalID string
	Quantities        map[string]int
}

// SyncSummary is the per-run outcome returned by every sync operation.
// Partial success is the common case, so counters replace errors here.
type SyncSummary struct {
	Created      int32
	Updated      int32
	Skipped      int32
	Errored      int32
	Deleted      int32
	FailedChunks int32
}

// Add merges other into s.
func (s *SyncSummary) Add(other SyncSummary) {
	s.Created += other.Created
	s.Updated += other.Updated
	s.Skipped += other.Skipped
	s.Errored += other.Errored
	s.Deleted += other.Deleted
	s.FailedChunks += other.FailedChunks
}
