package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/harborline/marketplace-backend/pkg/db/models"
	"github.com/harborline/marketplace-backend/pkg/enums"
	pkgerrors "github.com/harborline/marketplace-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	ddl := []string{
		`CREATE TABLE skus (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  price_cents INTEGER NOT NULL,
  available_qty INTEGER NOT NULL DEFAULT 0,
  reserved_qty INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE inventory_transactions (
  id TEXT PRIMARY KEY,
  sku_id TEXT NOT NULL,
  order_id TEXT,
  type TEXT NOT NULL,
  quantity_change INTEGER NOT NULL,
  resulting_qty INTEGER NOT NULL,
  created_at DATETIME
);`,
	}
	for _, stmt := range ddl {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}

func seedSKU(t *testing.T, db *gorm.DB, available int) uuid.UUID {
	t.Helper()
	sku := models.SKU{
		ID:           uuid.New(),
		ProductID:    uuid.New(),
		PriceCents:   1000,
		AvailableQty: available,
		IsActive:     true,
	}
	if err := db.Create(&sku).Error; err != nil {
		t.Fatalf("seed sku: %v", err)
	}
	return sku.ID
}

func TestReserveMovesStockAndAppendsLedger(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := NewLedger()
	ctx := context.Background()
	skuID := seedSKU(t, db, 5)
	orderID := uuid.New()

	if err := ledger.Reserve(ctx, db, Request{SKUID: skuID, OrderID: &orderID, Qty: 3}); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	var sku models.SKU
	if err := db.First(&sku, "id = ?", skuID).Error; err != nil {
		t.Fatalf("load sku: %v", err)
	}
	if sku.AvailableQty != 2 || sku.ReservedQty != 3 {
		t.Fatalf("unexpected sku state: available=%d reserved=%d", sku.AvailableQty, sku.ReservedQty)
	}

	rows, err := ledger.History(ctx, db, skuID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 ledger row, got %d", len(rows))
	}
	entry := rows[0]
	if entry.Type != enums.InventoryTransactionTypeSale || entry.QuantityChange != -3 || entry.ResultingQty != 2 {
		t.Fatalf("unexpected ledger entry: %+v", entry)
	}
	if entry.OrderID == nil || *entry.OrderID != orderID {
		t.Fatalf("ledger entry missing order id")
	}
}

func TestReserveInsufficientStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := NewLedger()
	ctx := context.Background()
	skuID := seedSKU(t, db, 2)

	err := ledger.Reserve(ctx, db, Request{SKUID: skuID, Qty: 3})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	var sku models.SKU
	if err := db.First(&sku, "id = ?", skuID).Error; err != nil {
		t.Fatalf("load sku: %v", err)
	}
	if sku.AvailableQty != 2 || sku.ReservedQty != 0 {
		t.Fatalf("failed reserve must not move stock: %+v", sku)
	}
	rows, err := ledger.History(ctx, db, skuID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("failed reserve must not write ledger rows, got %d", len(rows))
	}
}

func TestReserveInactiveSKU(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := NewLedger()
	ctx := context.Background()
	sku := models.SKU{ID: uuid.New(), ProductID: uuid.New(), PriceCents: 500, AvailableQty: 10, IsActive: false}
	if err := db.Create(&sku).Error; err != nil {
		t.Fatalf("seed sku: %v", err)
	}

	err := ledger.Reserve(ctx, db, Request{SKUID: sku.ID, Qty: 1})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for inactive sku, got %v", err)
	}
}

func TestReserveInvalidQty(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := NewLedger()
	err := ledger.Reserve(context.Background(), db, Request{SKUID: uuid.New(), Qty: 0})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReleaseReturnsReservedStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := NewLedger()
	ctx := context.Background()
	skuID := seedSKU(t, db, 5)

	if err := ledger.Reserve(ctx, db, Request{SKUID: skuID, Qty: 4}); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := ledger.Release(ctx, db, Request{SKUID: skuID, Qty: 4}); err != nil {
		t.Fatalf("release: %v", err)
	}

	var sku models.SKU
	if err := db.First(&sku, "id = ?", skuID).Error; err != nil {
		t.Fatalf("load sku: %v", err)
	}
	if sku.AvailableQty != 5 || sku.ReservedQty != 0 {
		t.Fatalf("release did not restore stock: %+v", sku)
	}

	rows, err := ledger.History(ctx, db, skuID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 ledger rows, got %d", len(rows))
	}
	if rows[1].Type != enums.InventoryTransactionTypeRelease || rows[1].QuantityChange != 4 {
		t.Fatalf("unexpected release entry: %+v", rows[1])
	}
}

func TestReleaseBeyondReservedFails(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := NewLedger()
	ctx := context.Background()
	skuID := seedSKU(t, db, 5)

	err := ledger.Release(ctx, db, Request{SKUID: skuID, Qty: 1})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRestockAddsStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := NewLedger()
	ctx := context.Background()
	skuID := seedSKU(t, db, 1)

	if err := ledger.Restock(ctx, db, Request{SKUID: skuID, Qty: 9}); err != nil {
		t.Fatalf("restock: %v", err)
	}

	var sku models.SKU
	if err := db.First(&sku, "id = ?", skuID).Error; err != nil {
		t.Fatalf("load sku: %v", err)
	}
	if sku.AvailableQty != 10 {
		t.Fatalf("expected 10 available, got %d", sku.AvailableQty)
	}
}

func TestConcurrentReservesNeverOversell(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := NewLedger()
	ctx := context.Background()
	skuID := seedSKU(t, db, 5)

	const workers = 8
	var wg sync.WaitGroup
	results := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			results[slot] = ledger.Reserve(ctx, db, Request{SKUID: skuID, Qty: 1})
		}(i)
	}
	wg.Wait()

	succeeded, short := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock):
			short++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 5 || short != 3 {
		t.Fatalf("expected 5 successes and 3 shortfalls, got %d/%d", succeeded, short)
	}

	var sku models.SKU
	if err := db.First(&sku, "id = ?", skuID).Error; err != nil {
		t.Fatalf("load sku: %v", err)
	}
	if sku.AvailableQty != 0 || sku.ReservedQty != 5 {
		t.Fatalf("oversold: available=%d reserved=%d", sku.AvailableQty, sku.ReservedQty)
	}
	if sku.AvailableQty < 0 {
		t.Fatalf("availability went negative")
	}
}
