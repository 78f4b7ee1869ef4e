package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/retailops/erpsync/internal/dedup"
	"github.com/retailops/erpsync/internal/platform/models"
	"github.com/retailops/erpsync/internal/platform/storage/gen/postgres/public/table"
	"github.com/retailops/erpsync/internal/upsert"
	"github.com/samber/lo"

	pg "github.com/go-jet/jet/v2/postgres"
	"github.com/go-jet/jet/v2/qrm"
	pgmodels "github.com/retailops/erpsync/internal/platform/storage/gen/postgres/public/model"
)

// Postgres is storage for products, stock levels, sales and sync state.
type Postgres struct {
	db *sql.DB
}

// NewPostgres returns new Postgres.
func NewPostgres(db *sql.DB) Postgres {
	return Postgres{db: db}
}

// FindByExternalID returns the product bound to the external id, or nil when
// no product is bound. If more than one row carries the id the catalog
// invariant is broken and upsert.ErrAmbiguousExternalID is returned.
func (p Postgres) FindByExternalID(ctx context.Context, externalID string) (*models.Product, error) {
	var products []pgmodels.Product
	err := table.Product.SELECT(table.Product.AllColumns).
		WHERE(table.Product.ExternalID.EQ(pg.String(externalID))).
		QueryContext(ctx, p.db, &products)
	if err != nil && !errors.Is(err, qrm.ErrNoRows) {
		return nil, fmt.Errorf("can't get product by external id: %w", err)
	}

	switch len(products) {
	case 0:
		return nil, nil
	case 1:
		return toProduct(&products[0]), nil
	default:
		return nil, upsert.ErrAmbiguousExternalID
	}
}

// FindByArticle returns one product with the given article, or nil when none
// exists. Rows without a bound external id win over bound ones, so the
// resolve fallback adopts an orphan row instead of touching a claimed one.
func (p Postgres) FindByArticle(ctx context.Context, article string) (*models.Product, error) {
	var product pgmodels.Product
	err := table.Product.SELECT(table.Product.AllColumns).
		WHERE(table.Product.Article.EQ(pg.String(article))).
		ORDER_BY(table.Product.ExternalID.IS_NULL().DESC(), table.Product.ID.ASC()).
		LIMIT(1).
		QueryContext(ctx, p.db, &product)

	if errors.Is(err, qrm.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("can't get product by article: %w", err)
	}

	return toProduct(&product), nil
}

// Insert adds a new product and returns its id.
func (p Postgres) Insert(ctx context.Context, product *models.Product) (int, error) {
	dbProduct := toDBProduct(product)
	if dbProduct.CreatedAt.IsZero() {
		dbProduct.CreatedAt = time.Now().UTC()
	}

	err := table.Product.INSERT(table.Product.AllColumns.Except(table.Product.ID)).
		MODEL(dbProduct).
		RETURNING(table.Product.ID).
		QueryContext(ctx, p.db, dbProduct)
	if err != nil {
		return 0, fmt.Errorf("can't insert product into database: %w", err)
	}

	product.ID = int(dbProduct.ID)

	return product.ID, nil
}

// Update overwrites the stored product with the given one.
func (p Postgres) Update(ctx context.Context, product *models.Product) error {
	product.UpdatedAt = lo.ToPtr(time.Now().UTC())
	columnList := table.Product.AllColumns.Except(table.Product.ID, table.Product.CreatedAt)

	result, err := table.Product.UPDATE(columnList).
		MODEL(toDBProduct(product)).
		WHERE(table.Product.ID.EQ(pg.Int32(int32(product.ID)))).
		ExecContext(ctx, p.db)
	if err != nil {
		return fmt.Errorf("can't update product: %w", err)
	}

	if rowsAffected, err := result.RowsAffected(); rowsAffected == 0 || err != nil {
		return fmt.Errorf("can't update product: %w", err)
	}

	return nil
}

// ReplaceStock swaps all stock rows of the product for the given quantities
// in one transaction. Reserved quantities of surviving locations are carried
// over; locations unseen so far are registered on the fly.
func (p Postgres) ReplaceStock(ctx context.Context, productID int, quantities map[string]int) error {
	return runInTransaction(ctx, p.db, func(tx *sql.Tx) error {
		reserved, err := getReservedQuantities(ctx, tx, int32(productID))
		if err != nil {
			return fmt.Errorf("can't get reserved quantities: %w", err)
		}

		if err := registerLocations(ctx, tx, lo.Keys(quantities)); err != nil {
			return fmt.Errorf("can't register locations: %w", err)
		}

		_, err = table.StockLevel.DELETE().
			WHERE(table.StockLevel.ProductID.EQ(pg.Int32(int32(productID)))).
			ExecContext(ctx, tx)
		if err != nil {
			return fmt.Errorf("can't delete outdated stock levels: %w", err)
		}

		levels := toDBStockLevels(productID, quantities, reserved)
		if len(levels) == 0 {
			return nil
		}

		_, err = table.StockLevel.INSERT(table.StockLevel.AllColumns).
			MODELS(levels).
			ExecContext(ctx, tx)
		if err != nil {
			return fmt.Errorf("can't insert stock levels into database: %w", err)
		}

		return nil
	})
}

// DeactivateMissing deactivates active products whose external id is bound
// but absent from seenExternalIDs. Products are never deleted by sync.
// Returns number of deactivated products.
func (p Postgres) DeactivateMissing(ctx context.Context, seenExternalIDs []string) (int32, error) {
	if len(seenExternalIDs) == 0 {
		return 0, nil
	}

	seen := make([]pg.Expression, 0, len(seenExternalIDs))
	for ix := range seenExternalIDs {
		seen = append(seen, pg.String(seenExternalIDs[ix]))
	}

	result, err := table.Product.UPDATE().
		SET(
			table.Product.IsActive.SET(pg.Bool(false)),
			table.Product.UpdatedAt.SET(pg.TimestampzT(time.Now().UTC())),
		).
		WHERE(pg.AND(
			table.Product.IsActive.IS_TRUE(),
			table.Product.ExternalID.IS_NOT_NULL(),
			table.Product.ExternalID.NOT_IN(seen...),
		)).
		ExecContext(ctx, p.db)
	if err != nil {
		return 0, fmt.Errorf("can't deactivate products: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("can't deactivate products: %w", err)
	}

	return int32(rowsAffected), nil
}

// QuantityByLocation returns sold quantity per selling location for the
// product since the given time. Sales without a location are skipped.
func (p Postgres) QuantityByLocation(
	ctx context.Context,
	productExternalID string,
	since time.Time,
) (map[string]int, error) {
	var rows []struct {
		Channel  string
		Quantity int64
	}
	err := table.Sale.SELECT(
		table.Sale.Channel.AS("channel"),
		pg.SUMi(table.Sale.Quantity).AS("quantity"),
	).
		WHERE(pg.AND(
			table.Sale.ProductID.EQ(pg.String(productExternalID)),
			table.Sale.SoldAt.GT_EQ(pg.TimestampzT(since)),
			table.Sale.Channel.NOT_EQ(pg.String("")),
		)).
		GROUP_BY(table.Sale.Channel).
		QueryContext(ctx, p.db, &rows)
	if err != nil && !errors.Is(err, qrm.ErrNoRows) {
		return nil, fmt.Errorf("can't get sold quantities by location: %w", err)
	}

	quantities := make(map[string]int, len(rows))
	for ix := range rows {
		quantities[rows[ix].Channel] = int(rows[ix].Quantity)
	}

	return quantities, nil
}

// UpsertSales writes the batch in one transaction. Rows are matched on the
// natural key, so replaying a chunk updates instead of duplicating. Returns
// numbers of created and updated sales.
func (p Postgres) UpsertSales(ctx context.Context, sales []models.Sale) (int32, int32, error) {
	if len(sales) == 0 {
		return 0, 0, nil
	}

	// Later occurrences of the same natural key win; a multi-row upsert
	// can't touch one row twice anyway.
	byKey := make(map[models.SaleKey]models.Sale, len(sales))
	for ix := range sales {
		byKey[sales[ix].NaturalKey()] = sales[ix]
	}

	createdNumber := lo.ToPtr(int32(0))
	updatedNumber := lo.ToPtr(int32(0))

	err := runInTransaction(ctx, p.db, func(tx *sql.Tx) error {
		existing, err := getStoredSaleKeys(ctx, tx, lo.Values(byKey))
		if err != nil {
			return fmt.Errorf("can't get existing sales: %w", err)
		}

		dbSales := make([]pgmodels.Sale, 0, len(byKey))
		now := time.Now().UTC()
		for _, sale := range byKey {
			if _, ok := existing[sale.NaturalKey()]; ok {
				*updatedNumber++
			} else {
				*createdNumber++
			}

			dbSale := toDBSale(&sale)
			if dbSale.CreatedAt.IsZero() {
				dbSale.CreatedAt = now
			}
			dbSales = append(dbSales, *dbSale)
		}

		columnList := table.Sale.AllColumns.Except(table.Sale.ID, table.Sale.CreatedAt)

		excludedExpressions := make([]pg.Expression, 0, len(columnList))
		for _, col := range table.Sale.EXCLUDED.AllColumns.Except(table.Sale.ID, table.Sale.CreatedAt) {
			excludedExpressions = append(excludedExpressions, col)
		}

		_, err = table.Sale.INSERT(table.Sale.AllColumns.Except(table.Sale.ID)).
			MODELS(dbSales).
			ON_CONFLICT(table.Sale.CustomerID, table.Sale.DocumentID, table.Sale.ProductID, table.Sale.SaleDay).
			DO_UPDATE(
				pg.SET(
					columnList.SET(pg.ROW(excludedExpressions...)),
				),
			).
			ExecContext(ctx, tx)
		if err != nil {
			return fmt.Errorf("can't upsert sales into database: %w", err)
		}

		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	return *createdNumber, *updatedNumber, nil
}

// LastSuccess returns the finish time of the last fully successful sync of
// the entity, or nil when the entity was never synced.
func (p Postgres) LastSuccess(ctx context.Context, entity string) (*time.Time, error) {
	var state pgmodels.SyncState
	err := table.SyncState.SELECT(table.SyncState.AllColumns).
		WHERE(table.SyncState.Entity.EQ(pg.String(entity))).
		QueryContext(ctx, p.db, &state)

	if errors.Is(err, qrm.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("can't get sync state: %w", err)
	}

	return &state.LastSuccess, nil
}

// SetLastSuccess stores the finish time of a fully successful sync.
func (p Postgres) SetLastSuccess(ctx context.Context, entity string, at time.Time) error {
	state := pgmodels.SyncState{
		Entity:      entity,
		LastSuccess: at,
	}

	_, err := table.SyncState.INSERT(table.SyncState.AllColumns).
		MODEL(state).
		ON_CONFLICT(table.SyncState.Entity).
		DO_UPDATE(
			pg.SET(
				table.SyncState.LastSuccess.SET(table.SyncState.EXCLUDED.LastSuccess),
			),
		).
		ExecContext(ctx, p.db)
	if err != nil {
		return fmt.Errorf("can't set sync state: %w", err)
	}

	return nil
}

// ScanDuplicates returns groups of sales sharing the strategy's grouping key.
// Only groups with more than one row are returned; rows inside a group are
// ordered by creation time, then id.
func (p Postgres) ScanDuplicates(ctx context.Context, strategy dedup.Strategy) ([][]models.Sale, error) {
	dup := table.Sale.AS("dup")

	matches := []pg.BoolExpression{
		dup.CustomerID.EQ(table.Sale.CustomerID),
		dup.SaleDay.EQ(table.Sale.SaleDay),
		dup.ID.NOT_EQ(table.Sale.ID),
	}
	if strategy == dedup.StrategyLoose {
		// Loose ignores the document id so re-exports with fresh or missing
		// document ids still collapse onto one group.
		matches = append(matches,
			dup.Article.EQ(table.Sale.Article),
			dup.Quantity.EQ(table.Sale.Quantity),
			dup.Revenue.EQ(table.Sale.Revenue),
		)
	} else {
		matches = append(matches,
			dup.DocumentID.EQ(table.Sale.DocumentID),
			dup.ProductID.EQ(table.Sale.ProductID),
		)
	}

	var rows []pgmodels.Sale
	err := table.Sale.SELECT(table.Sale.AllColumns).
		WHERE(pg.EXISTS(
			dup.SELECT(pg.Int(1)).
				WHERE(pg.AND(matches...)),
		)).
		ORDER_BY(
			table.Sale.CustomerID.ASC(),
			table.Sale.SaleDay.ASC(),
			table.Sale.CreatedAt.ASC(),
			table.Sale.ID.ASC(),
		).
		QueryContext(ctx, p.db, &rows)
	if err != nil && !errors.Is(err, qrm.ErrNoRows) {
		return nil, fmt.Errorf("can't scan for duplicated sales: %w", err)
	}

	grouped := make(map[string][]models.Sale)
	order := make([]string, 0)
	for ix := range rows {
		key := duplicateKey(&rows[ix], strategy)
		if _, ok := grouped[key]; !ok {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], toSale(&rows[ix]))
	}

	groups := make([][]models.Sale, 0, len(order))
	for _, key := range order {
		if len(grouped[key]) > 1 {
			groups = append(groups, grouped[key])
		}
	}

	return groups, nil
}

// DeleteSales removes sales by id and returns how many rows went away.
func (p Postgres) DeleteSales(ctx context.Context, ids []int) (int32, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	expressions := make([]pg.Expression, 0, len(ids))
	for _, id := range ids {
		expressions = append(expressions, pg.Int32(int32(id)))
	}

	result, err := table.Sale.DELETE().
		WHERE(table.Sale.ID.IN(expressions...)).
		ExecContext(ctx, p.db)
	if err != nil {
		return 0, fmt.Errorf("can't delete sales: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("can't delete sales: %w", err)
	}

	return int32(rowsAffected), nil
}

func duplicateKey(sale *pgmodels.Sale, strategy dedup.Strategy) string {
	day := sale.SaleDay.Format("2006-01-02")
	if strategy == dedup.StrategyLoose {
		revenue := strconv.FormatFloat(sale.Revenue, 'f', -1, 64)
		return sale.CustomerID + "\x00" + sale.Article + "\x00" + day +
			"\x00" + strconv.Itoa(int(sale.Quantity)) + "\x00" + revenue
	}
	return sale.CustomerID + "\x00" + sale.DocumentID + "\x00" + sale.ProductID + "\x00" + day
}

func getReservedQuantities(ctx context.Context, db qrm.DB, productID int32) (map[string]int32, error) {
	var levels []pgmodels.StockLevel
	err := table.StockLevel.SELECT(table.StockLevel.LocationID, table.StockLevel.ReservedQuantity).
		WHERE(table.StockLevel.ProductID.EQ(pg.Int32(productID))).
		QueryContext(ctx, db, &levels)
	if err != nil && !errors.Is(err, qrm.ErrNoRows) {
		return nil, err
	}

	reserved := make(map[string]int32, len(levels))
	for ix := range levels {
		reserved[levels[ix].LocationID] = levels[ix].ReservedQuantity
	}

	return reserved, nil
}

func registerLocations(ctx context.Context, db qrm.DB, locationIDs []string) error {
	if len(locationIDs) == 0 {
		return nil
	}

	locations := make([]pgmodels.Location, 0, len(locationIDs))
	for _, id := range locationIDs {
		locations = append(locations, pgmodels.Location{ExternalID: id})
	}

	_, err := table.Location.INSERT(table.Location.AllColumns).
		MODELS(locations).
		ON_CONFLICT(table.Location.ExternalID).
		DO_NOTHING().
		ExecContext(ctx, db)

	return err
}

func getStoredSaleKeys(ctx context.Context, db qrm.DB, sales []models.Sale) (map[models.SaleKey]struct{}, error) {
	minDay := models.Day(sales[0].SoldAt)
	maxDay := minDay
	for ix := range sales {
		day := models.Day(sales[ix].SoldAt)
		if day.Before(minDay) {
			minDay = day
		}
		if day.After(maxDay) {
			maxDay = day
		}
	}

	var stored []pgmodels.Sale
	err := table.Sale.SELECT(
		table.Sale.CustomerID,
		table.Sale.DocumentID,
		table.Sale.ProductID,
		table.Sale.SaleDay,
	).
		WHERE(table.Sale.SaleDay.BETWEEN(pg.DateT(minDay), pg.DateT(maxDay))).
		QueryContext(ctx, db, &stored)
	if err != nil && !errors.Is(err, qrm.ErrNoRows) {
		return nil, err
	}

	keys := make(map[models.SaleKey]struct{}, len(stored))
	for ix := range stored {
		keys[models.SaleKey{
			CustomerID: stored[ix].CustomerID,
			DocumentID: stored[ix].DocumentID,
			ProductID:  stored[ix].ProductID,
			Day:        models.Day(stored[ix].SaleDay),
		}] = struct{}{}
	}

	return keys, nil
}

func runInTransaction(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	var (
		tx  *sql.Tx
		err error
	)

	if tx, err = db.BeginTx(ctx, nil); err != nil {
		return fmt.Errorf("can't begin transaction: %w", err)
	}

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("can't rollback transaction: %w (rollback reason: %w)", rbErr, err)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("can't commit transaction: %w", err)
	}

	return nil
}
