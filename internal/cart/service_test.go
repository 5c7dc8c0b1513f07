package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/harborline/marketplace-backend/internal/catalog"
	"github.com/harborline/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/harborline/marketplace-backend/pkg/errors"
)

type passthroughTx struct {
	db *gorm.DB
}

func (p passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return p.db.WithContext(ctx).Transaction(fn)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
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
		`CREATE TABLE sellers (id TEXT PRIMARY KEY, name TEXT NOT NULL, is_active INTEGER NOT NULL DEFAULT 1, created_at DATETIME, updated_at DATETIME);`,
		`CREATE TABLE products (id TEXT PRIMARY KEY, seller_id TEXT NOT NULL, name TEXT NOT NULL, primary_image_url TEXT, is_active INTEGER NOT NULL DEFAULT 1, created_at DATETIME, updated_at DATETIME);`,
		`CREATE TABLE skus (id TEXT PRIMARY KEY, product_id TEXT NOT NULL, price_cents INTEGER NOT NULL, available_qty INTEGER NOT NULL DEFAULT 0, reserved_qty INTEGER NOT NULL DEFAULT 0, is_active INTEGER NOT NULL DEFAULT 1, created_at DATETIME, updated_at DATETIME);`,
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

func seedCatalog(t *testing.T, db *gorm.DB, priceCents int64, active bool) uuid.UUID {
	t.Helper()
	seller := models.Seller{ID: uuid.New(), Name: "seller", IsActive: true}
	if err := db.Create(&seller).Error; err != nil {
		t.Fatalf("seed seller: %v", err)
	}
	product := models.Product{ID: uuid.New(), SellerID: seller.ID, Name: "widget", IsActive: true}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	sku := models.SKU{ID: uuid.New(), ProductID: product.ID, PriceCents: priceCents, AvailableQty: 10, IsActive: active}
	if err := db.Create(&sku).Error; err != nil {
		t.Fatalf("seed sku: %v", err)
	}
	return sku.ID
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(passthroughTx{db: db}, NewRepository(db), catalog.NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestReplaceCapturesUnitPrice(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	customerID := uuid.New()
	skuID := seedCatalog(t, db, 1999, true)

	cart, err := svc.Replace(ctx, customerID, []ItemInput{{SKUID: skuID, Qty: 2}})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(cart.Items))
	}
	if cart.Items[0].UnitPriceCents != 1999 {
		t.Fatalf("unit price not captured: %d", cart.Items[0].UnitPriceCents)
	}

	// Price changes after add must not alter the captured line price.
	if err := db.Model(&models.SKU{}).Where("id = ?", skuID).Update("price_cents", 2999).Error; err != nil {
		t.Fatalf("update price: %v", err)
	}
	got, err := svc.Get(ctx, customerID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Items[0].UnitPriceCents != 1999 {
		t.Fatalf("captured price drifted: %d", got.Items[0].UnitPriceCents)
	}
}

func TestReplaceSwapsExistingItems(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	customerID := uuid.New()
	first := seedCatalog(t, db, 100, true)
	second := seedCatalog(t, db, 200, true)

	if _, err := svc.Replace(ctx, customerID, []ItemInput{{SKUID: first, Qty: 1}}); err != nil {
		t.Fatalf("first replace: %v", err)
	}
	cart, err := svc.Replace(ctx, customerID, []ItemInput{{SKUID: second, Qty: 3}})
	if err != nil {
		t.Fatalf("second replace: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].SKUID != second || cart.Items[0].Qty != 3 {
		t.Fatalf("replace did not swap items: %+v", cart.Items)
	}
}

func TestReplaceRejectsInactiveSKU(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	skuID := seedCatalog(t, db, 100, false)

	_, err := svc.Replace(context.Background(), uuid.New(), []ItemInput{{SKUID: skuID, Qty: 1}})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReplaceRejectsBadInput(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	skuID := seedCatalog(t, db, 100, true)

	if _, err := svc.Replace(ctx, uuid.New(), []ItemInput{{SKUID: skuID, Qty: 0}}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for zero qty, got %v", err)
	}
	if _, err := svc.Replace(ctx, uuid.New(), []ItemInput{{SKUID: skuID, Qty: 1}, {SKUID: skuID, Qty: 2}}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for duplicate sku, got %v", err)
	}
	if _, err := svc.Replace(ctx, uuid.New(), []ItemInput{{SKUID: uuid.New(), Qty: 1}}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for unknown sku, got %v", err)
	}
}

func TestGetReturnsEmptyCartWhenNoneExists(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	cart, err := svc.Get(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("expected empty cart")
	}
}

func TestClearStampsCheckedOutAt(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	svc := newTestService(t, db)
	ctx := context.Background()
	customerID := uuid.New()
	skuID := seedCatalog(t, db, 100, true)

	cart, err := svc.Replace(ctx, customerID, []ItemInput{{SKUID: skuID, Qty: 1}})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := repo.Clear(ctx, cart.ID, time.Now()); err != nil {
		t.Fatalf("clear: %v", err)
	}

	var stored models.Cart
	if err := db.First(&stored, "id = ?", cart.ID).Error; err != nil {
		t.Fatalf("load cart: %v", err)
	}
	if stored.CheckedOutAt == nil {
		t.Fatalf("checked_out_at not stamped")
	}
	var count int64
	if err := db.Model(&models.CartItem{}).Where("cart_id = ?", cart.ID).Count(&count).Error; err != nil {
		t.Fatalf("count items: %v", err)
	}
	if count != 0 {
		t.Fatalf("items not cleared")
	}
}
