package decoder

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/retailops/erpsync/internal/platform/models"
)

// NamespaceExchange is the namespace of qualified exchange documents. Some
// ERP deployments export the same document with bare tags, so every lookup
// also accepts the unqualified local name.
const NamespaceExchange = "urn:retail:exchange:2"

// Field aliases observed across ERP deployments, in preference order. The
// mapping is data so the same logical attribute never needs per-deployment
// conditionals in the walking code.
var (
	externalIDAliases = []string{"Id", "ProductId", "Guid"}
	articleAliases    = []string{"Article", "VendorCode", "Sku"}
	nameAliases       = []string{"Name", "Title"}
	barcodeAliases    = []string{"Barcode", "Ean"}
	unitAliases       = []string{"BaseUnit", "Unit"}
	groupAliases      = []string{"Group", "Category"}
	quantityAliases   = []string{"Quantity", "QuantityInStock", "Amount"}

	warehouseWrapAliases = []string{"Warehouses", "Rests", "Stocks"}
	warehouseNodeAliases = []string{"Warehouse", "Rest", "Stock"}
	locationIDAliases    = []string{"WarehouseId", "LocationId", "Id"}
	locationQtyAliases   = []string{"QuantityInStock", "Quantity", "Amount"}
)

// rawElement is a generic xml subtree; offers are decoded into it first and
// resolved through the alias tables afterwards.
type rawElement struct {
	XMLName  xml.Name
	Attrs    []xml.Attr   `xml:",any,attr"`
	Value    string       `xml:",chardata"`
	Children []rawElement `xml:",any"`
}

func (e *rawElement) child(aliases []string) *rawElement {
	for _, alias := range aliases {
		for ix := range e.Children {
			if e.Children[ix].XMLName.Local == alias {
				return &e.Children[ix]
			}
		}
	}
	return nil
}

func (e *rawElement) childText(aliases []string) string {
	child := e.child(aliases)
	if child == nil {
		return ""
	}
	return strings.TrimSpace(child.Value)
}

func (e *rawElement) attr(aliases []string) string {
	for _, alias := range aliases {
		for ix := range e.Attrs {
			if e.Attrs[ix].Name.Local == alias {
				return strings.TrimSpace(e.Attrs[ix].Value)
			}
		}
	}
	return ""
}

func toOfferResult(node *rawElement) models.OfferResult {
	offer := models.OfferRecord{
		ExternalID: node.childText(externalIDAliases),
		Article:    node.childText(articleAliases),
		Name:       node.childText(nameAliases),
		Barcode:    node.childText(barcodeAliases),
		Unit:       node.childText(unitAliases),
		GroupName:  node.childText(groupAliases),
	}

	if offer.ExternalID == "" && offer.Article == "" {
		return models.OfferResult{Skip: &models.SkipReason{
			Field: "external_id",
			Cause: "offer carries neither identifier nor article",
		}}
	}

	quantities, skip := locationQuantities(node)
	if skip != nil {
		return models.OfferResult{Skip: skip}
	}

	if len(quantities) > 0 {
		offer.LocationQuantities = quantities
		for locationID := range quantities {
			offer.TotalQuantity += quantities[locationID]
		}
		return models.OfferResult{Offer: offer}
	}

	offer.LocationQuantities = map[string]int{}
	if raw := node.childText(quantityAliases); raw != "" {
		total, err := parseQuantity(raw)
		if err != nil {
			return models.OfferResult{Skip: &models.SkipReason{
				Field: "quantity",
				Cause: "unparseable quantity " + strconv.Quote(raw),
			}}
		}
		offer.TotalQuantity = total
	}

	return models.OfferResult{Offer: offer}
}

// locationQuantities scans the nested warehouse collection. Warehouse nodes
// carry the location id and quantity as attributes, not child text, and may
// sit directly under the offer or under a wrapper element.
func locationQuantities(node *rawElement) (map[string]int, *models.SkipReason) {
	warehouses := collectWarehouseNodes(node)
	if len(warehouses) == 0 {
		return nil, nil
	}

	quantities := make(map[string]int, len(warehouses))
	for _, warehouse := range warehouses {
		locationID := warehouse.attr(locationIDAliases)
		if locationID == "" {
			return nil, &models.SkipReason{
				Field: "location_id",
				Cause: "warehouse node without location identifier",
			}
		}
		quantity, err := parseQuantity(warehouse.attr(locationQtyAliases))
		if err != nil {
			return nil, &models.SkipReason{
				Field: "location_quantity",
				Cause: "unparseable quantity for location " + locationID,
			}
		}
		quantities[locationID] += quantity
	}

	return quantities, nil
}

func collectWarehouseNodes(node *rawElement) []*rawElement {
	var warehouses []*rawElement

	appendMatches := func(parent *rawElement) {
		for ix := range parent.Children {
			for _, alias := range warehouseNodeAliases {
				if parent.Children[ix].XMLName.Local == alias {
					warehouses = append(warehouses, &parent.Children[ix])
					break
				}
			}
		}
	}

	appendMatches(node)
	if wrapper := node.child(warehouseWrapAliases); wrapper != nil {
		appendMatches(wrapper)
	}

	return warehouses
}

// parseQuantity accepts integers and decimal points some exports attach to
// whole quantities ("17.000"). Empty input parses as zero.
func parseQuantity(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	if whole, err := strconv.Atoi(raw); err == nil {
		return whole, nil
	}
	fractional, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0, err
	}
	return int(fractional), nil
}
