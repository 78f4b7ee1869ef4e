package storage

import (
	"github.com/retailops/erpsync/internal/platform/models"
	"github.com/shopspring/decimal"

	pgmodels "github.com/retailops/erpsync/internal/platform/storage/gen/postgres/public/model"
)

//go:generate make -C ../../../ generate-db

func toDBProduct(product *models.Product) *pgmodels.Product {
	return &pgmodels.Product{
		ID:         int32(product.ID),
		ExternalID: product.ExternalID,
		Article:    product.Article,
		Name:       product.Name,
		Barcode:    product.Barcode,
		Unit:       product.Unit,
		GroupName:  product.GroupName,
		IsActive:   product.IsActive,
		CreatedAt:  product.CreatedAt,
		UpdatedAt:  product.UpdatedAt,
	}
}

func toProduct(product *pgmodels.Product) *models.Product {
	return &models.Product{
		ID:         int(product.ID),
		ExternalID: product.ExternalID,
		Article:    product.Article,
		Name:       product.Name,
		Barcode:    product.Barcode,
		Unit:       product.Unit,
		GroupName:  product.GroupName,
		IsActive:   product.IsActive,
		CreatedAt:  product.CreatedAt,
		UpdatedAt:  product.UpdatedAt,
	}
}

func toDBSale(sale *models.Sale) *pgmodels.Sale {
	revenue, _ := sale.Revenue.Float64()

	return &pgmodels.Sale{
		ID:         int32(sale.ID),
		ExternalID: sale.ExternalID,
		CustomerID: sale.CustomerID,
		DocumentID: sale.DocumentID,
		ProductID:  sale.ProductID,
		Article:    sale.Article,
		SaleDay:    models.Day(sale.SoldAt),
		SoldAt:     sale.SoldAt,
		Quantity:   int32(sale.Quantity),
		Revenue:    revenue,
		Channel:    sale.Channel,
		CreatedAt:  sale.CreatedAt,
	}
}

func toSale(sale *pgmodels.Sale) models.Sale {
	return models.Sale{
		ID:         int(sale.ID),
		ExternalID: sale.ExternalID,
		CustomerID: sale.CustomerID,
		DocumentID: sale.DocumentID,
		ProductID:  sale.ProductID,
		Article:    sale.Article,
		SoldAt:     sale.SoldAt,
		Quantity:   int(sale.Quantity),
		Revenue:    decimal.NewFromFloat(sale.Revenue),
		Channel:    sale.Channel,
		CreatedAt:  sale.CreatedAt,
	}
}

func toDBStockLevels(productID int, quantities map[string]int, reserved map[string]int32) []pgmodels.StockLevel {
	levels := make([]pgmodels.StockLevel, 0, len(quantities))
	for locationID, quantity := range quantities {
		level := pgmodels.StockLevel{
			ProductID:        int32(productID),
			LocationID:       locationID,
			Quantity:         int32(quantity),
			ReservedQuantity: reserved[locationID],
		}
		level.AvailableQuantity = level.Quantity - level.ReservedQuantity
		levels = append(levels, level)
	}
	return levels
}
