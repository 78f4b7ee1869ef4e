package sales

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/retailops/erpsync/internal/platform/models"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Field aliases for sales register records, in preference order. ERP
// deployments disagree on field names, so the mapping lives here as data
// instead of per-deployment conditionals.
var saleAliases = map[string][]string{
	"external_id": {"id", "sale_id", "line_id"},
	"customer":    {"customer_id", "customer", "card_id"},
	"document":    {"document_id", "doc_no", "sale_number"},
	"product":     {"product_id", "item_id", "product"},
	"article":     {"article", "sku", "vendor_code"},
	"date":        {"sale_date", "date", "moment"},
	"quantity":    {"quantity", "qty"},
	"revenue":     {"revenue", "net_amount", "amount"},
	"channel":     {"channel", "source"},
}

var saleDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseSale maps one remote record onto a Sale. Records without a customer or
// with an unparseable date are skipped, not fatal; document and product ids
// normalize to empty strings so the natural key treats them uniformly.
func parseSale(raw json.RawMessage) (models.Sale, *models.SkipReason) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return models.Sale{}, &models.SkipReason{Field: "record", Cause: "not a json object"}
	}

	resolve := func(attribute string) string {
		for _, alias := range saleAliases[attribute] {
			if value, ok := fields[alias]; ok {
				return rawToString(value)
			}
		}
		return ""
	}

	customerID := resolve("customer")
	if customerID == "" {
		return models.Sale{}, &models.SkipReason{Field: "customer", Cause: "record without customer id"}
	}

	soldAt, ok := parseSaleDate(resolve("date"))
	if !ok {
		return models.Sale{}, &models.SkipReason{Field: "date", Cause: "unparseable sale date"}
	}

	sale := models.Sale{
		CustomerID: customerID,
		DocumentID: resolve("document"),
		ProductID:  resolve("product"),
		Article:    resolve("article"),
		SoldAt:     soldAt,
		Channel:    resolve("channel"),
	}

	if externalID := resolve("external_id"); externalID != "" {
		sale.ExternalID = lo.ToPtr(externalID)
	}
	if quantity, err := strconv.Atoi(resolve("quantity")); err == nil {
		sale.Quantity = quantity
	}
	if revenue, err := decimal.NewFromString(resolve("revenue")); err == nil {
		sale.Revenue = revenue
	}

	return sale, nil
}

func parseSaleDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range saleDateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}

// rawToString unquotes strings and renders numbers verbatim.
func rawToString(raw json.RawMessage) string {
	if string(raw) == "null" {
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return strings.TrimSpace(asString)
	}
	return strings.TrimSpace(string(raw))
}
