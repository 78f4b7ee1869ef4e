package decoder

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/retailops/erpsync/internal/platform/models"
	"github.com/xuri/excelize/v2"
)

// Column header aliases for flat tabular exports, in preference order.
var tabularAliases = map[string][]string{
	"external_id": {"id", "product id", "guid"},
	"article":     {"article", "vendor code", "sku"},
	"name":        {"name", "title", "product name"},
	"barcode":     {"barcode", "ean"},
	"unit":        {"unit", "base unit"},
	"group":       {"group", "category"},
	"quantity":    {"quantity", "stock", "amount"},
	"location":    {"warehouse", "location", "store"},
}

// TabularDecoder decodes flat spreadsheet exports into the same offer stream
// as the xml Decoder, so both intake formats reach the upsert engine in one
// shape.
type TabularDecoder struct{}

// Decode reads the first sheet of an xlsx document and sends one OfferResult
// per data row into output. The header row is resolved once through the
// column alias table; rows without a resolvable identifier are emitted as
// skips. Rows sharing an identifier accumulate per-location quantities.
func (d TabularDecoder) Decode(ctx context.Context, document []byte, output chan<- models.OfferResult) error {
	file, err := excelize.OpenReader(bytes.NewReader(document))
	if err != nil {
		return fmt.Errorf("can't open tabular document: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return fmt.Errorf("tabular document has no sheets")
	}

	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return fmt.Errorf("can't read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil
	}

	columns := resolveColumns(rows[0])
	if columns["external_id"] < 0 && columns["article"] < 0 {
		return fmt.Errorf("header resolves neither identifier nor article column")
	}

	for _, result := range collapseRows(columns, rows[1:]) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case output <- result:
		}
	}

	return nil
}

// collapseRows merges data rows sharing an identifier into one offer, summing
// totals and per-location quantities, in first-seen order. Exporters emit one
// row per warehouse for the same product.
func collapseRows(columns map[string]int, rows [][]string) []models.OfferResult {
	results := make([]models.OfferResult, 0, len(rows))
	merged := map[string]int{}

	for _, row := range rows {
		result := toTabularResult(columns, row)
		if result.Skip != nil {
			results = append(results, result)
			continue
		}

		key := result.Offer.ExternalID + "\x00" + result.Offer.Article
		ix, ok := merged[key]
		if !ok {
			merged[key] = len(results)
			results = append(results, result)
			continue
		}

		offer := &results[ix].Offer
		offer.TotalQuantity += result.Offer.TotalQuantity
		for location, quantity := range result.Offer.LocationQuantities {
			offer.LocationQuantities[location] += quantity
		}
	}

	return results
}

// resolveColumns maps each logical attribute to its column index, -1 when the
// header carries no alias for it.
func resolveColumns(header []string) map[string]int {
	columns := make(map[string]int, len(tabularAliases))

	for attribute, aliases := range tabularAliases {
		columns[attribute] = -1
		for _, alias := range aliases {
			for ix := range header {
				if strings.EqualFold(strings.TrimSpace(header[ix]), alias) {
					columns[attribute] = ix
					break
				}
			}
			if columns[attribute] >= 0 {
				break
			}
		}
	}

	return columns
}

func toTabularResult(columns map[string]int, row []string) models.OfferResult {
	cell := func(attribute string) string {
		ix := columns[attribute]
		if ix < 0 || ix >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[ix])
	}

	offer := models.OfferRecord{
		ExternalID:         cell("external_id"),
		Article:            cell("article"),
		Name:               cell("name"),
		Barcode:            cell("barcode"),
		Unit:               cell("unit"),
		GroupName:          cell("group"),
		LocationQuantities: map[string]int{},
	}

	if offer.ExternalID == "" && offer.Article == "" {
		return models.OfferResult{Skip: &models.SkipReason{
			Field: "external_id",
			Cause: "row carries neither identifier nor article",
		}}
	}

	quantity, err := parseQuantity(cell("quantity"))
	if err != nil {
		return models.OfferResult{Skip: &models.SkipReason{
			Field: "quantity",
			Cause: "unparseable quantity in row",
		}}
	}
	offer.TotalQuantity = quantity

	if location := cell("location"); location != "" {
		offer.LocationQuantities[location] = quantity
	}

	return models.OfferResult{Offer: offer}
}
