// Package testdata holds exchange documents and their expected decoding
// results shared by decoder tests.
package testdata

import "github.com/retailops/erpsync/internal/platform/models"

// QualifiedDocument is an exchange document using the qualified tag convention.
const QualifiedDocument = `<?xml version="1.0" encoding="UTF-8"?>
<Exchange xmlns="urn:retail:exchange:2">
  <Offers>
    <Offer>
      <Id>prod-0001</Id>
      <Article>TSH-RED-M</Article>
      <Name>T-shirt red &amp; white, M</Name>
      <Barcode>4600000000017</Barcode>
      <BaseUnit>pcs</BaseUnit>
      <Group>Apparel</Group>
      <Warehouses>
        <Warehouse WarehouseId="wh-main" QuantityInStock="17"/>
        <Warehouse WarehouseId="wh-outlet" QuantityInStock="3"/>
      </Warehouses>
    </Offer>
    <Offer>
      <Id>prod-0002</Id>
      <Article>MUG-01</Article>
      <Name>Mug</Name>
      <Quantity>40</Quantity>
    </Offer>
    <Offer>
      <Name>orphan without identifier</Name>
      <Quantity>5</Quantity>
    </Offer>
  </Offers>
</Exchange>`

// UnqualifiedDocument carries the same offers as QualifiedDocument with bare
// tags and the alternative attribute spellings.
const UnqualifiedDocument = `<?xml version="1.0" encoding="UTF-8"?>
<Exchange>
  <Offers>
    <Offer>
      <ProductId>prod-0001</ProductId>
      <VendorCode>TSH-RED-M</VendorCode>
      <Title>T-shirt red &amp; white, M</Title>
      <Ean>4600000000017</Ean>
      <Unit>pcs</Unit>
      <Category>Apparel</Category>
      <Rests>
        <Rest LocationId="wh-main" Quantity="17"/>
        <Rest LocationId="wh-outlet" Quantity="3"/>
      </Rests>
    </Offer>
    <Offer>
      <ProductId>prod-0002</ProductId>
      <VendorCode>MUG-01</VendorCode>
      <Title>Mug</Title>
      <Amount>40</Amount>
    </Offer>
    <Offer>
      <Title>orphan without identifier</Title>
      <Amount>5</Amount>
    </Offer>
  </Offers>
</Exchange>`

// Offers are the offers both documents decode into, in document order. The
// third record of each document decodes into a skip.
var Offers = []models.OfferRecord{
	{
		ExternalID: "prod-0001",
		Article:    "TSH-RED-M",
		Name:       "T-shirt red & white, M",
		Barcode:    "4600000000017",
		Unit:       "pcs",
		GroupName:  "Apparel",
		LocationQuantities: map[string]int{
			"wh-main":   17,
			"wh-outlet": 3,
		},
		TotalQuantity: 20,
	},
	{
		ExternalID:         "prod-0002",
		Article:            "MUG-01",
		Name:               "Mug",
		LocationQuantities: map[string]int{},
		TotalQuantity:      40,
	},
}
