package cron

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/harborline/marketplace-backend/internal/cart"
	"github.com/harborline/marketplace-backend/pkg/db/models"
)

func newCartDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:cron_cart_" + uuid.NewString() + "?mode=memory&cache=shared"
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
		`CREATE TABLE carts (id TEXT PRIMARY KEY, customer_id TEXT NOT NULL UNIQUE, checked_out_at DATETIME, created_at DATETIME, updated_at DATETIME);`,
		`CREATE TABLE cart_items (id TEXT PRIMARY KEY, cart_id TEXT NOT NULL, sku_id TEXT NOT NULL, qty INTEGER NOT NULL, unit_price_cents INTEGER NOT NULL, created_at DATETIME);`,
	}
	for _, stmt := range ddl {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}

func seedCartWithItem(t *testing.T, db *gorm.DB, updatedAt time.Time) uuid.UUID {
	t.Helper()
	row := models.Cart{ID: uuid.New(), CustomerID: uuid.New()}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	item := models.CartItem{ID: uuid.New(), CartID: row.ID, SKUID: uuid.New(), Qty: 1, UnitPriceCents: 1000}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	if err := db.Model(&models.Cart{}).Where("id = ?", row.ID).
		UpdateColumn("updated_at", updatedAt).Error; err != nil {
		t.Fatalf("backdate cart: %v", err)
	}
	return row.ID
}

func TestCartCleanupPrunesStaleItemsOnly(t *testing.T) {
	t.Parallel()
	db := newCartDB(t)
	now := time.Now().UTC()
	staleID := seedCartWithItem(t, db, now.Add(-120*24*time.Hour))
	freshID := seedCartWithItem(t, db, now.Add(-time.Hour))

	job, err := NewCartCleanupJob(CartCleanupJobParams{
		Logger:    testLogger(),
		Carts:     cart.NewRepository(db),
		Retention: 90,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	var staleItems, freshItems int64
	if err := db.Model(&models.CartItem{}).Where("cart_id = ?", staleID).Count(&staleItems).Error; err != nil {
		t.Fatalf("count stale items: %v", err)
	}
	if err := db.Model(&models.CartItem{}).Where("cart_id = ?", freshID).Count(&freshItems).Error; err != nil {
		t.Fatalf("count fresh items: %v", err)
	}
	if staleItems != 0 {
		t.Fatalf("expected stale cart emptied, %d items remain", staleItems)
	}
	if freshItems != 1 {
		t.Fatalf("expected fresh cart untouched, got %d items", freshItems)
	}

	var cartRows int64
	if err := db.Model(&models.Cart{}).Count(&cartRows).Error; err != nil {
		t.Fatalf("count carts: %v", err)
	}
	if cartRows != 2 {
		t.Fatalf("expected cart rows kept, got %d", cartRows)
	}
}

func TestCartCleanupRequiresRepository(t *testing.T) {
	t.Parallel()
	if _, err := NewCartCleanupJob(CartCleanupJobParams{Logger: testLogger()}); err == nil {
		t.Fatal("expected error for missing cart repository")
	}
}
