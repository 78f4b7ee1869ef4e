package storagetesting

import (
	"database/sql"
	"errors"
	"os"
	"testing"

	pgmodels "github.com/retailops/erpsync/internal/platform/storage/gen/postgres/public/model"
	"github.com/retailops/erpsync/internal/platform/storage/gen/postgres/public/table"
	pg "github.com/go-jet/jet/v2/postgres"
	"github.com/go-jet/jet/v2/qrm"

	_ "github.com/lib/pq"
)

// Open opens connection to DB.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Fatal("please provide database URL via DATABASE_URL environment variable")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("can't open connection to %q: %s", dbURL, err)
	}

	return db
}

// InsertProducts is a helper test function to insert products.
func InsertProducts(t *testing.T, exc qrm.Executable, products ...pgmodels.Product) {
	t.Helper()

	if len(products) == 0 {
		return
	}

	toInsert := make([]pgmodels.Product, 0, len(products))
	toInsert = append(toInsert, products...)

	_, err := table.Product.INSERT(table.Product.AllColumns.Except(table.Product.ID)).MODELS(toInsert).Exec(exc)
	if err != nil {
		t.Fatal("can't insert products", err)
	}
}

// InsertSales is a helper test function to insert sales.
func InsertSales(t *testing.T, exc qrm.Executable, sales ...pgmodels.Sale) {
	t.Helper()

	if len(sales) == 0 {
		return
	}

	toInsert := make([]pgmodels.Sale, 0, len(sales))
	toInsert = append(toInsert, sales...)

	_, err := table.Sale.INSERT(table.Sale.AllColumns.Except(table.Sale.ID)).MODELS(toInsert).Exec(exc)
	if err != nil {
		t.Fatal("can't insert sales", err)
	}
}

// InsertStockLevels is a helper test function to insert stock levels.
func InsertStockLevels(t *testing.T, exc qrm.Executable, levels ...pgmodels.StockLevel) {
	t.Helper()

	if len(levels) == 0 {
		return
	}

	toInsert := make([]pgmodels.StockLevel, 0, len(levels))
	toInsert = append(toInsert, levels...)

	_, err := table.StockLevel.INSERT(table.StockLevel.AllColumns).MODELS(toInsert).Exec(exc)
	if err != nil {
		t.Fatal("can't insert stock levels", err)
	}
}

// GetProducts is a helper test function to get all products.
func GetProducts(t *testing.T, queryable qrm.Queryable) []pgmodels.Product {
	t.Helper()

	products := []pgmodels.Product{}
	err := table.Product.SELECT(table.Product.AllColumns).
		WHERE(table.Product.ID.IS_NOT_NULL()).
		Query(queryable, &products)
	if err != nil {
		t.Fatal("can't get products", err)
	}

	return products
}

// GetSales is a helper test function to get all sales.
func GetSales(t *testing.T, queryable qrm.Queryable) []pgmodels.Sale {
	t.Helper()

	sales := []pgmodels.Sale{}
	err := table.Sale.SELECT(table.Sale.AllColumns).
		WHERE(table.Sale.ID.IS_NOT_NULL()).
		Query(queryable, &sales)
	if err != nil {
		t.Fatal("can't get sales", err)
	}

	return sales
}

// GetStockLevelsByProductID is a helper test function to get stock levels of one product.
func GetStockLevelsByProductID(t *testing.T, queryable qrm.Queryable, productID int) []pgmodels.StockLevel {
	t.Helper()

	levels := []pgmodels.StockLevel{}
	err := table.StockLevel.SELECT(table.StockLevel.AllColumns).
		WHERE(table.StockLevel.ProductID.EQ(pg.Int32(int32(productID)))).
		Query(queryable, &levels)
	if err != nil {
		t.Fatal("can't get stock levels", err)
	}

	return levels
}

// GetLastSuccess is a helper test function to get sync state of one entity.
func GetLastSuccess(t *testing.T, queryable qrm.Queryable, entity string) *pgmodels.SyncState {
	t.Helper()

	var state pgmodels.SyncState
	err := table.SyncState.SELECT(table.SyncState.AllColumns).
		WHERE(table.SyncState.Entity.EQ(pg.String(entity))).
		Query(queryable, &state)

	if errors.Is(err, qrm.ErrNoRows) {
		return nil
	}
	if err != nil {
		t.Fatal("can't get sync state", err)
	}

	return &state
}

// CleanupData is a helper test function to delete all rows between test cases.
func CleanupData(t *testing.T, exc qrm.Executable) {
	t.Helper()

	_, err := table.StockLevel.DELETE().WHERE(table.StockLevel.ProductID.IS_NOT_NULL()).Exec(exc)
	if err != nil {
		t.Fatal("can't delete stock levels data", err)
	}

	_, err = table.Sale.DELETE().WHERE(table.Sale.ID.IS_NOT_NULL()).Exec(exc)
	if err != nil {
		t.Fatal("can't delete sales data", err)
	}

	_, err = table.Product.DELETE().WHERE(table.Product.ID.IS_NOT_NULL()).Exec(exc)
	if err != nil {
		t.Fatal("can't delete products data", err)
	}

	_, err = table.Location.DELETE().WHERE(table.Location.ExternalID.IS_NOT_NULL()).Exec(exc)
	if err != nil {
		t.Fatal("can't delete locations data", err)
	}

	_, err = table.SyncState.DELETE().WHERE(table.SyncState.Entity.IS_NOT_NULL()).Exec(exc)
	if err != nil {
		t.Fatal("can't delete sync state data", err)
	}
}
