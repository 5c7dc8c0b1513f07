package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harborline/marketplace-backend/internal/catalog"
	"github.com/harborline/marketplace-backend/internal/pricing"
	dbpkg "github.com/harborline/marketplace-backend/pkg/db"
	"github.com/harborline/marketplace-backend/pkg/db/models"
	"github.com/harborline/marketplace-backend/pkg/enums"
	pkgerrors "github.com/harborline/marketplace-backend/pkg/errors"
	"github.com/harborline/marketplace-backend/pkg/outbox"
	"github.com/harborline/marketplace-backend/pkg/outbox/payloads"
	"github.com/harborline/marketplace-backend/pkg/types"
)

const orderNumberDayFormat = "20060102"

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// SellerGroup is the slice of cart lines owned by one seller.
type SellerGroup struct {
	SellerID uuid.UUID
	Items    []models.CartItem
}

// PersistGroup is one seller group with its quote, ready to become an order.
type PersistGroup struct {
	SellerID uuid.UUID
	Quote    pricing.Quote
	Items    []models.CartItem
}

// PersistInput carries everything needed to write the per-seller orders of one
// checkout inside a single transaction.
type PersistInput struct {
	CheckoutTransactionID uuid.UUID
	CustomerID            uuid.UUID
	PaymentTransactionID  uuid.UUID
	DeliveryAddress       types.Address
	ShippingMethod        enums.ShippingMethod
	Currency              enums.Currency
	Catalog               *catalog.View
	Groups                []PersistGroup
}

// Service owns the split/persist/cancel lifecycle of checkout orders.
type Service struct {
	repo   Repository
	outbox outboxPublisher
	now    func() time.Time
}

// NewService builds the orders service.
func NewService(repo Repository, publisher outboxPublisher) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &Service{repo: repo, outbox: publisher, now: time.Now}, nil
}

// SplitBySeller groups cart lines by the seller that owns each SKU. Groups are
// ordered by seller id so the split is deterministic.
func SplitBySeller(items []models.CartItem, view *catalog.View) ([]SellerGroup, error) {
	grouped := map[uuid.UUID][]models.CartItem{}
	for _, item := range items {
		seller, ok := view.SellerForSKU(item.SKUID)
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku has no resolvable seller").
				WithDetails(map[string]any{"sku_id": item.SKUID})
		}
		grouped[seller.ID] = append(grouped[seller.ID], item)
	}

	sellerIDs := make([]uuid.UUID, 0, len(grouped))
	for id := range grouped {
		sellerIDs = append(sellerIDs, id)
	}
	sort.Slice(sellerIDs, func(i, j int) bool {
		return sellerIDs[i].String() < sellerIDs[j].String()
	})

	groups := make([]SellerGroup, 0, len(sellerIDs))
	for _, id := range sellerIDs {
		groups = append(groups, SellerGroup{SellerID: id, Items: grouped[id]})
	}
	return groups, nil
}

// PersistOrders writes one order per seller group: order number from the daily
// sequence, item snapshots, the creation history row, and the order.created
// outbox event. Everything lands in the caller's transaction.
func (s *Service) PersistOrders(ctx context.Context, tx *gorm.DB, input PersistInput) ([]models.Order, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if len(input.Groups) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no seller groups to persist")
	}

	repo := s.repo.WithTx(tx)
	day := s.now().UTC().Format(orderNumberDayFormat)
	created := make([]models.Order, 0, len(input.Groups))

	for _, group := range input.Groups {
		seq, err := repo.NextOrderNumber(ctx, day)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "advancing order sequence")
		}

		order := models.Order{
			ID:                    uuid.New(),
			OrderNumber:           fmt.Sprintf("%s-%04d", day, seq),
			CheckoutTransactionID: input.CheckoutTransactionID,
			CustomerID:            input.CustomerID,
			SellerID:              group.SellerID,
			Status:                enums.OrderStatusPaymentConfirmed,
			Currency:              input.Currency,
			ShippingMethod:        input.ShippingMethod,
			SubtotalCents:         group.Quote.SubtotalCents,
			TaxCents:              group.Quote.TaxCents,
			ShippingCents:         group.Quote.ShippingCents,
			TotalCents:            group.Quote.TotalCents,
			DeliveryAddress:       input.DeliveryAddress,
			PaymentTransactionID:  input.PaymentTransactionID,
		}
		if err := repo.CreateOrder(ctx, &order); err != nil {
			if dbpkg.IsUniqueViolation(err, "uq_orders_order_number") {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "order number collision")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order")
		}

		items, err := snapshotItems(order.ID, group.Items, input.Catalog)
		if err != nil {
			return nil, err
		}
		if err := repo.CreateOrderItems(ctx, items); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order items")
		}
		order.Items = items

		history := models.OrderStatusHistory{
			ID:                uuid.New(),
			OrderID:           order.ID,
			PreviousStatus:    nil,
			NewStatus:         enums.OrderStatusPaymentConfirmed,
			IsSystemGenerated: true,
			Reason:            "order created from checkout",
		}
		if err := repo.CreateStatusHistory(ctx, &history); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating status history")
		}

		if err := s.emitOrderCreated(ctx, tx, order); err != nil {
			return nil, err
		}

		created = append(created, order)
	}

	return created, nil
}

// CancelOrders flips created orders to canceled with a system history row.
// Used by checkout compensation.
func (s *Service) CancelOrders(ctx context.Context, tx *gorm.DB, orderIDs []uuid.UUID, reason string) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	repo := s.repo.WithTx(tx)
	for _, orderID := range orderIDs {
		if err := repo.UpdateStatus(ctx, orderID, enums.OrderStatusCanceled); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "canceling order")
		}
		prev := enums.OrderStatusPaymentConfirmed
		entry := models.OrderStatusHistory{
			ID:                uuid.New(),
			OrderID:           orderID,
			PreviousStatus:    &prev,
			NewStatus:         enums.OrderStatusCanceled,
			IsSystemGenerated: true,
			Reason:            reason,
		}
		if err := repo.CreateStatusHistory(ctx, &entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording cancellation")
		}
	}
	return nil
}

// ListByCustomer returns the customer's orders, newest first.
func (s *Service) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Order, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	rows, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}
	return rows, nil
}

// FindOwned loads a single order enforcing ownership.
func (s *Service) FindOwned(ctx context.Context, orderID, customerID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOwned(ctx, orderID, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return order, nil
}

func (s *Service) emitOrderCreated(ctx context.Context, tx *gorm.DB, order models.Order) error {
	eventItems := make([]payloads.OrderCreatedItem, 0, len(order.Items))
	for _, item := range order.Items {
		eventItems = append(eventItems, payloads.OrderCreatedItem{
			SKUID:          item.SKUID,
			ProductName:    item.ProductName,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
			LineTotalCents: item.LineTotalCents,
		})
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Data: payloads.OrderCreatedEvent{
			OrderID:               order.ID,
			OrderNumber:           order.OrderNumber,
			CheckoutTransactionID: order.CheckoutTransactionID,
			CustomerID:            order.CustomerID,
			SellerID:              order.SellerID,
			Currency:              string(order.Currency),
			ShippingMethod:        string(order.ShippingMethod),
			SubtotalCents:         order.SubtotalCents,
			TaxCents:              order.TaxCents,
			ShippingCents:         order.ShippingCents,
			TotalCents:            order.TotalCents,
			Items:                 eventItems,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emitting order created event")
	}
	return nil
}

func snapshotItems(orderID uuid.UUID, lines []models.CartItem, view *catalog.View) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		sku, ok := view.SKUs[line.SKUID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "sku missing from catalog view").
				WithDetails(map[string]any{"sku_id": line.SKUID})
		}
		product, ok := view.Products[sku.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "product missing from catalog view").
				WithDetails(map[string]any{"product_id": sku.ProductID})
		}
		skuID := line.SKUID
		items = append(items, models.OrderItem{
			ID:              uuid.New(),
			OrderID:         orderID,
			SKUID:           &skuID,
			ProductName:     product.Name,
			PrimaryImageURL: product.PrimaryImageURL,
			UnitPriceCents:  line.UnitPriceCents,
			Qty:             line.Qty,
			LineTotalCents:  line.UnitPriceCents * int64(line.Qty),
		})
	}
	return items, nil
}
