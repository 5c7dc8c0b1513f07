package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/harborline/marketplace-backend/internal/catalog"
	"github.com/harborline/marketplace-backend/internal/pricing"
	"github.com/harborline/marketplace-backend/pkg/db/models"
	"github.com/harborline/marketplace-backend/pkg/enums"
	"github.com/harborline/marketplace-backend/pkg/outbox"
	"github.com/harborline/marketplace-backend/pkg/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
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
		`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  checkout_transaction_id TEXT NOT NULL,
  customer_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  status TEXT NOT NULL,
  currency TEXT NOT NULL,
  shipping_method TEXT NOT NULL,
  subtotal_cents INTEGER NOT NULL,
  tax_cents INTEGER NOT NULL,
  shipping_cents INTEGER NOT NULL,
  total_cents INTEGER NOT NULL,
  delivery_address TEXT NOT NULL,
  payment_transaction_id TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  sku_id TEXT,
  product_name TEXT NOT NULL,
  primary_image_url TEXT,
  unit_price_cents INTEGER NOT NULL,
  qty INTEGER NOT NULL,
  line_total_cents INTEGER NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE order_status_history (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  previous_status TEXT,
  new_status TEXT NOT NULL,
  actor_id TEXT,
  is_system_generated INTEGER NOT NULL DEFAULT 0,
  reason TEXT NOT NULL DEFAULT '',
  created_at DATETIME
);`,
		`CREATE TABLE order_sequences (
  day TEXT PRIMARY KEY,
  last_value INTEGER NOT NULL DEFAULT 0
);`,
		`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
	}
	for _, stmt := range ddl {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}

func testView(sellerIDs ...uuid.UUID) (*catalog.View, []models.CartItem) {
	view := &catalog.View{
		SKUs:     map[uuid.UUID]models.SKU{},
		Products: map[uuid.UUID]models.Product{},
		Sellers:  map[uuid.UUID]models.Seller{},
	}
	items := []models.CartItem{}
	for i, sellerID := range sellerIDs {
		view.Sellers[sellerID] = models.Seller{ID: sellerID, Name: fmt.Sprintf("seller-%d", i), IsActive: true}
		product := models.Product{ID: uuid.New(), SellerID: sellerID, Name: fmt.Sprintf("product-%d", i), IsActive: true}
		view.Products[product.ID] = product
		sku := models.SKU{ID: uuid.New(), ProductID: product.ID, PriceCents: int64(1000 * (i + 1)), AvailableQty: 10, IsActive: true}
		view.SKUs[sku.ID] = sku
		items = append(items, models.CartItem{
			ID:             uuid.New(),
			CartID:         uuid.New(),
			SKUID:          sku.ID,
			Qty:            i + 1,
			UnitPriceCents: sku.PriceCents,
		})
	}
	return view, items
}

func newTestService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	publisher := outbox.NewService(outbox.NewRepository(db), nil)
	svc, err := NewService(NewRepository(db), publisher)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestSplitBySellerConservesQuantities(t *testing.T) {
	t.Parallel()

	sellerA, sellerB := uuid.New(), uuid.New()
	view, items := testView(sellerA, sellerB, sellerA)

	groups, err := SplitBySeller(items, view)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}

	var inputQty, outputQty int
	for _, item := range items {
		inputQty += item.Qty
	}
	for _, group := range groups {
		for _, item := range group.Items {
			outputQty += item.Qty
		}
	}
	if inputQty != outputQty {
		t.Fatalf("quantity not conserved: in=%d out=%d", inputQty, outputQty)
	}
}

func TestSplitBySellerDeterministicOrder(t *testing.T) {
	t.Parallel()

	sellerA, sellerB := uuid.New(), uuid.New()
	view, items := testView(sellerA, sellerB)

	first, err := SplitBySeller(items, view)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	second, err := SplitBySeller([]models.CartItem{items[1], items[0]}, view)
	if err != nil {
		t.Fatalf("split reversed: %v", err)
	}
	if first[0].SellerID != second[0].SellerID || first[1].SellerID != second[1].SellerID {
		t.Fatalf("group order depends on input order")
	}
}

func persistInput(view *catalog.View, items []models.CartItem, groups []SellerGroup) PersistInput {
	persistGroups := make([]PersistGroup, 0, len(groups))
	for _, group := range groups {
		var subtotal int64
		for _, item := range group.Items {
			subtotal += item.UnitPriceCents * int64(item.Qty)
		}
		persistGroups = append(persistGroups, PersistGroup{
			SellerID: group.SellerID,
			Items:    group.Items,
			Quote: pricing.Quote{
				SubtotalCents: subtotal,
				TaxCents:      subtotal / 10,
				ShippingCents: 500,
				TotalCents:    subtotal + subtotal/10 + 500,
			},
		})
	}
	return PersistInput{
		CheckoutTransactionID: uuid.New(),
		CustomerID:            uuid.New(),
		PaymentTransactionID:  uuid.New(),
		DeliveryAddress:       types.Address{Line1: "1 Pier Way", City: "Oakland", State: "CA", PostalCode: "94607", Country: "US"},
		ShippingMethod:        enums.ShippingMethodStandard,
		Currency:              enums.CurrencyUSD,
		Catalog:               view,
		Groups:                persistGroups,
	}
}

func TestPersistOrdersCreatesOnePerSeller(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	sellerA, sellerB := uuid.New(), uuid.New()
	view, items := testView(sellerA, sellerB)
	groups, err := SplitBySeller(items, view)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	input := persistInput(view, items, groups)

	var created []models.Order
	err = db.Transaction(func(tx *gorm.DB) error {
		var terr error
		created, terr = svc.PersistOrders(ctx, tx, input)
		return terr
	})
	if err != nil {
		t.Fatalf("persist: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(created))
	}

	day := time.Now().UTC().Format("20060102")
	for i, order := range created {
		want := fmt.Sprintf("%s-%04d", day, i+1)
		if order.OrderNumber != want {
			t.Fatalf("order number = %s, want %s", order.OrderNumber, want)
		}
		if order.CheckoutTransactionID != input.CheckoutTransactionID {
			t.Fatalf("checkout transaction id not shared")
		}
		if order.Status != enums.OrderStatusPaymentConfirmed {
			t.Fatalf("status = %s", order.Status)
		}
	}

	// Every order gets exactly one system creation history row.
	repo := NewRepository(db)
	for _, order := range created {
		history, err := repo.FindStatusHistory(ctx, order.ID)
		if err != nil {
			t.Fatalf("history: %v", err)
		}
		if len(history) != 1 {
			t.Fatalf("expected 1 history row, got %d", len(history))
		}
		entry := history[0]
		if entry.PreviousStatus != nil || entry.NewStatus != enums.OrderStatusPaymentConfirmed || !entry.IsSystemGenerated {
			t.Fatalf("unexpected creation entry: %+v", entry)
		}
	}

	// One order.created outbox row per order, committed with them.
	var outboxCount int64
	if err := db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventOrderCreated).
		Count(&outboxCount).Error; err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	if outboxCount != 2 {
		t.Fatalf("expected 2 outbox events, got %d", outboxCount)
	}
}

func TestPersistOrdersSnapshotsItems(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	seller := uuid.New()
	view, items := testView(seller)
	groups, err := SplitBySeller(items, view)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	input := persistInput(view, items, groups)

	var created []models.Order
	err = db.Transaction(func(tx *gorm.DB) error {
		var terr error
		created, terr = svc.PersistOrders(ctx, tx, input)
		return terr
	})
	if err != nil {
		t.Fatalf("persist: %v", err)
	}

	var stored []models.OrderItem
	if err := db.Where("order_id = ?", created[0].ID).Find(&stored).Error; err != nil {
		t.Fatalf("load items: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected 1 item, got %d", len(stored))
	}
	item := stored[0]
	if item.ProductName != "product-0" {
		t.Fatalf("product name not snapshotted: %s", item.ProductName)
	}
	if item.LineTotalCents != item.UnitPriceCents*int64(item.Qty) {
		t.Fatalf("line total mismatch: %+v", item)
	}
}

func TestNextOrderNumberMonotonicPerDay(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := repo.NextOrderNumber(ctx, "20260831")
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if got != want {
			t.Fatalf("sequence = %d, want %d", got, want)
		}
	}

	// A different day restarts at 1.
	got, err := repo.NextOrderNumber(ctx, "20260901")
	if err != nil {
		t.Fatalf("next new day: %v", err)
	}
	if got != 1 {
		t.Fatalf("new day sequence = %d, want 1", got)
	}
}

func TestCancelOrdersWritesHistory(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	seller := uuid.New()
	view, items := testView(seller)
	groups, err := SplitBySeller(items, view)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	input := persistInput(view, items, groups)

	var created []models.Order
	err = db.Transaction(func(tx *gorm.DB) error {
		var terr error
		created, terr = svc.PersistOrders(ctx, tx, input)
		return terr
	})
	if err != nil {
		t.Fatalf("persist: %v", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		return svc.CancelOrders(ctx, tx, []uuid.UUID{created[0].ID}, "checkout failed downstream")
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}

	var stored models.Order
	if err := db.First(&stored, "id = ?", created[0].ID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if stored.Status != enums.OrderStatusCanceled {
		t.Fatalf("status = %s, want canceled", stored.Status)
	}

	history, err := NewRepository(db).FindStatusHistory(ctx, created[0].ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(history))
	}
	last := history[1]
	if last.PreviousStatus == nil || *last.PreviousStatus != enums.OrderStatusPaymentConfirmed {
		t.Fatalf("previous status wrong: %+v", last)
	}
	if last.NewStatus != enums.OrderStatusCanceled || !last.IsSystemGenerated {
		t.Fatalf("cancellation entry wrong: %+v", last)
	}
}
