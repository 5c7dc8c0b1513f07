package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/harborline/marketplace-backend/internal/addresses"
	"github.com/harborline/marketplace-backend/internal/cart"
	"github.com/harborline/marketplace-backend/internal/catalog"
	"github.com/harborline/marketplace-backend/internal/inventory"
	"github.com/harborline/marketplace-backend/internal/orders"
	"github.com/harborline/marketplace-backend/internal/paymentmethods"
	"github.com/harborline/marketplace-backend/internal/payments"
	"github.com/harborline/marketplace-backend/internal/pricing"
	"github.com/harborline/marketplace-backend/pkg/config"
	"github.com/harborline/marketplace-backend/pkg/db/models"
	"github.com/harborline/marketplace-backend/pkg/enums"
	pkgerrors "github.com/harborline/marketplace-backend/pkg/errors"
	"github.com/harborline/marketplace-backend/pkg/logger"
	"github.com/harborline/marketplace-backend/pkg/metrics"
	"github.com/harborline/marketplace-backend/pkg/outbox"
	"github.com/harborline/marketplace-backend/pkg/outbox/payloads"
	"github.com/harborline/marketplace-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type paymentCapturer interface {
	Capture(ctx context.Context, input payments.CaptureInput) (*models.PaymentTransaction, error)
}

type orderWriter interface {
	PersistOrders(ctx context.Context, tx *gorm.DB, input orders.PersistInput) ([]models.Order, error)
	CancelOrders(ctx context.Context, tx *gorm.DB, orderIDs []uuid.UUID, reason string) error
}

type stockLedger interface {
	Reserve(ctx context.Context, tx *gorm.DB, req inventory.Request) error
	Release(ctx context.Context, tx *gorm.DB, req inventory.Request) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Input is one checkout request. The customer id comes from the authenticated
// caller, everything else from the request body.
type Input struct {
	CustomerID        uuid.UUID
	DeliveryAddressID uuid.UUID
	PaymentMethodID   uuid.UUID
	ShippingMethod    enums.ShippingMethod
}

// Result summarizes a completed checkout: one order per seller, one charge for
// the whole cart.
type Result struct {
	CheckoutTransactionID uuid.UUID   `json:"checkout_transaction_id"`
	OrderIDs              []uuid.UUID `json:"order_ids"`
	OrderNumbers          []string    `json:"order_numbers"`
	TotalChargedCents     int64       `json:"total_charged_cents"`
	Currency              string      `json:"currency"`
}

// Service runs the two-phase checkout: validate everything with no side
// effects, then capture payment once and carry the money through orders,
// inventory, and the cart.
type Service interface {
	Execute(ctx context.Context, input Input) (*Result, error)
}

type service struct {
	tx        txRunner
	carts     cart.Repository
	catalog   catalog.Repository
	addresses addresses.Repository
	methods   paymentmethods.Repository
	repo      Repository
	payments  paymentCapturer
	orders    orderWriter
	ledger    stockLedger
	outbox    outboxPublisher
	calc      *pricing.Calculator
	policy    config.CheckoutConfig
	currency  enums.Currency
	metrics   *metrics.CheckoutMetrics
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires the checkout orchestrator. Metrics and logger may be nil.
func NewService(
	tx txRunner,
	carts cart.Repository,
	catalogRepo catalog.Repository,
	addressRepo addresses.Repository,
	methodRepo paymentmethods.Repository,
	repo Repository,
	paymentSvc paymentCapturer,
	orderSvc orderWriter,
	ledger stockLedger,
	publisher outboxPublisher,
	calc *pricing.Calculator,
	policy config.CheckoutConfig,
	checkoutMetrics *metrics.CheckoutMetrics,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if addressRepo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if methodRepo == nil {
		return nil, fmt.Errorf("payment method repository required")
	}
	if repo == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if paymentSvc == nil {
		return nil, fmt.Errorf("payment service required")
	}
	if orderSvc == nil {
		return nil, fmt.Errorf("order service required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if calc == nil {
		return nil, fmt.Errorf("pricing calculator required")
	}
	currency, err := enums.ParseCurrency(policy.Currency)
	if err != nil {
		return nil, fmt.Errorf("checkout currency: %w", err)
	}
	return &service{
		tx:        tx,
		carts:     carts,
		catalog:   catalogRepo,
		addresses: addressRepo,
		methods:   methodRepo,
		repo:      repo,
		payments:  paymentSvc,
		orders:    orderSvc,
		ledger:    ledger,
		outbox:    publisher,
		calc:      calc,
		policy:    policy,
		currency:  currency,
		metrics:   checkoutMetrics,
		logg:      logg,
		now:       time.Now,
	}, nil
}

// checkoutPlan is the fully validated picture of one checkout before any side
// effect runs.
type checkoutPlan struct {
	cart     *models.Cart
	address  types.Address
	method   *models.PaymentMethod
	view     *catalog.View
	groups   []orders.PersistGroup
	subtotal int64
	total    int64
}

func (s *service) Execute(ctx context.Context, input Input) (*Result, error) {
	start := time.Now()
	result, err := s.execute(ctx, input)
	if s.metrics != nil {
		s.metrics.Observe(outcomeFor(err), time.Since(start))
	}
	return result, err
}

func (s *service) execute(ctx context.Context, input Input) (*Result, error) {
	plan, err := s.plan(ctx, input)
	if err != nil {
		return nil, err
	}

	checkoutID := uuid.New()
	if s.logg != nil {
		ctx = s.logg.WithCheckoutID(ctx, checkoutID.String())
		ctx = s.logg.WithCustomerID(ctx, input.CustomerID.String())
	}

	billing := plan.address
	paymentTx, err := s.payments.Capture(ctx, payments.CaptureInput{
		CheckoutTransactionID: checkoutID,
		CartID:                plan.cart.ID,
		CustomerID:            input.CustomerID,
		Method:                plan.method,
		AmountCents:           plan.total,
		Currency:              s.currency,
		BillingAddress:        &billing,
	})
	if err != nil {
		if paymentTx != nil && paymentTx.Status == enums.PaymentTransactionStatusCaptured {
			// Money moved but the attempt row did not land. Do not retry the
			// charge; hand the checkout to reconciliation.
			s.raiseReconciliation(ctx, checkoutID, paymentTx, stepCapturePayment, err)
			return nil, pkgerrors.Wrap(pkgerrors.CodeReconciliationRequired, err, "payment captured but not recorded")
		}
		return nil, err
	}

	var created []models.Order
	var reserved []inventory.Request

	steps := []sagaStep{
		{
			name: stepPersistOrders,
			run: func(ctx context.Context) error {
				return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
					batch, err := s.orders.PersistOrders(ctx, tx, orders.PersistInput{
						CheckoutTransactionID: checkoutID,
						CustomerID:            input.CustomerID,
						PaymentTransactionID:  paymentTx.ID,
						DeliveryAddress:       plan.address,
						ShippingMethod:        input.ShippingMethod,
						Currency:              s.currency,
						Catalog:               plan.view,
						Groups:                plan.groups,
					})
					if err != nil {
						return err
					}
					created = batch
					return nil
				})
			},
			compensate: func(ctx context.Context) error {
				if len(created) == 0 {
					return nil
				}
				ids := make([]uuid.UUID, 0, len(created))
				for _, order := range created {
					ids = append(ids, order.ID)
				}
				return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
					return s.orders.CancelOrders(ctx, tx, ids, "checkout compensation")
				})
			},
		},
		{
			name: stepReserveInventory,
			run: func(ctx context.Context) error {
				return s.reserveAll(ctx, plan.groups, created, &reserved)
			},
			compensate: func(ctx context.Context) error {
				return s.releaseAll(ctx, reserved)
			},
		},
		{
			name: stepClearCart,
			run: func(ctx context.Context) error {
				return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
					return s.carts.WithTx(tx).Clear(ctx, plan.cart.ID, s.now())
				})
			},
		},
	}

	if failure := runSaga(ctx, s.logg, steps); failure != nil {
		s.raiseReconciliation(ctx, checkoutID, paymentTx, failure.step, failure.cause)
		return nil, pkgerrors.Wrap(pkgerrors.CodeReconciliationRequired, failure.cause, "checkout incomplete after payment capture")
	}

	result := &Result{
		CheckoutTransactionID: checkoutID,
		OrderIDs:              make([]uuid.UUID, 0, len(created)),
		OrderNumbers:          make([]string, 0, len(created)),
		TotalChargedCents:     plan.total,
		Currency:              s.currency.String(),
	}
	for _, order := range created {
		result.OrderIDs = append(result.OrderIDs, order.ID)
		result.OrderNumbers = append(result.OrderNumbers, order.OrderNumber)
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_count":         len(created),
			"total_charged_cents": plan.total,
		})
		s.logg.Info(logCtx, "checkout completed")
	}
	return result, nil
}

// plan runs every validation with no side effects. A checkout that fails here
// leaves no row anywhere and can be retried freely.
func (s *service) plan(ctx context.Context, input Input) (*checkoutPlan, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	activeCart, err := s.carts.FindActiveByCustomer(ctx, input.CustomerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	if len(activeCart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	address, err := s.addresses.FindOwned(ctx, input.DeliveryAddressID, input.CustomerID)
	if err != nil {
		return nil, err
	}
	if err := address.Value.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "delivery address incomplete")
	}

	method, err := s.methods.FindOwned(ctx, input.PaymentMethodID, input.CustomerID)
	if err != nil {
		return nil, err
	}
	if err := paymentmethods.ValidateUsable(method, s.now()); err != nil {
		return nil, err
	}

	skuIDs := make([]uuid.UUID, 0, len(activeCart.Items))
	for _, item := range activeCart.Items {
		skuIDs = append(skuIDs, item.SKUID)
	}
	view, err := catalog.Load(ctx, s.catalog, skuIDs)
	if err != nil {
		return nil, err
	}

	for _, item := range activeCart.Items {
		sku := view.SKUs[item.SKUID]
		if !sku.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is no longer available").
				WithDetails(map[string]any{"sku_id": item.SKUID.String()})
		}
		if sku.AvailableQty < item.Qty {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
				WithDetails(map[string]any{
					"sku_id":    item.SKUID.String(),
					"requested": item.Qty,
					"available": sku.AvailableQty,
				})
		}
	}

	sellerGroups, err := orders.SplitBySeller(activeCart.Items, view)
	if err != nil {
		return nil, err
	}

	plan := &checkoutPlan{
		cart:    activeCart,
		address: address.Value,
		method:  method,
		view:    view,
		groups:  make([]orders.PersistGroup, 0, len(sellerGroups)),
	}
	for _, group := range sellerGroups {
		lines := make([]pricing.Line, 0, len(group.Items))
		for _, item := range group.Items {
			lines = append(lines, pricing.Line{UnitPriceCents: item.UnitPriceCents, Qty: item.Qty})
		}
		quote, err := s.calc.Quote(lines, input.ShippingMethod)
		if err != nil {
			return nil, err
		}
		plan.groups = append(plan.groups, orders.PersistGroup{
			SellerID: group.SellerID,
			Quote:    quote,
			Items:    group.Items,
		})
		plan.subtotal += quote.SubtotalCents
		plan.total += quote.TotalCents
	}

	if plan.subtotal < s.policy.MinOrderCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is below the minimum order value").
			WithDetails(map[string]any{
				"min_order_cents": s.policy.MinOrderCents,
				"subtotal_cents":  plan.subtotal,
			})
	}
	return plan, nil
}

// reserveAll decrements stock one line at a time, each in its own short
// transaction so a row-level failure does not hold locks across sellers.
// Successfully reserved lines accumulate in reserved for compensation.
func (s *service) reserveAll(ctx context.Context, groups []orders.PersistGroup, created []models.Order, reserved *[]inventory.Request) error {
	orderBySeller := make(map[uuid.UUID]uuid.UUID, len(created))
	for _, order := range created {
		orderBySeller[order.SellerID] = order.ID
	}
	for _, group := range groups {
		orderID, ok := orderBySeller[group.SellerID]
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInternal, "no order persisted for seller group")
		}
		for _, item := range group.Items {
			oid := orderID
			req := inventory.Request{SKUID: item.SKUID, OrderID: &oid, Qty: item.Qty}
			if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
				return s.ledger.Reserve(ctx, tx, req)
			}); err != nil {
				return err
			}
			*reserved = append(*reserved, req)
		}
	}
	return nil
}

func (s *service) releaseAll(ctx context.Context, reqs []inventory.Request) error {
	var combined error
	for _, req := range reqs {
		req := req
		if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return s.ledger.Release(ctx, tx, req)
		}); err != nil {
			combined = multierr.Append(combined, err)
		}
	}
	return combined
}

// raiseReconciliation records that money moved without a completed checkout.
// The flag row and its event commit together; a failure here is logged and
// swallowed because the caller is already returning RECONCILIATION_REQUIRED.
func (s *service) raiseReconciliation(ctx context.Context, checkoutID uuid.UUID, paymentTx *models.PaymentTransaction, failedStep string, cause error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		flag := models.ReconciliationFlag{
			ID:                    uuid.New(),
			CheckoutTransactionID: checkoutID,
			PaymentTransactionID:  paymentTx.ID,
			Reason:                failedStep,
			Details:               types.JSONMap{"error": cause.Error()},
		}
		if err := s.repo.WithTx(tx).CreateFlag(ctx, &flag); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReconciliationRequired,
			AggregateType: enums.AggregateCheckout,
			AggregateID:   checkoutID,
			Version:       1,
			OccurredAt:    s.now(),
			Data: payloads.ReconciliationRequiredEvent{
				CheckoutTransactionID: checkoutID,
				PaymentTransactionID:  paymentTx.ID,
				CustomerID:            paymentTx.CustomerID,
				AmountCents:           paymentTx.AmountCents,
				Currency:              paymentTx.Currency.String(),
				FailedStep:            failedStep,
				Reason:                cause.Error(),
			},
		})
	})
	if err != nil && s.logg != nil {
		s.logg.Error(ctx, "recording reconciliation flag failed", err)
	}
	if s.logg != nil {
		logCtx := s.logg.WithField(ctx, "step", failedStep)
		s.logg.Error(logCtx, "checkout requires reconciliation", cause)
	}
}

func validateInput(input Input) error {
	switch {
	case input.CustomerID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	case input.DeliveryAddressID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery address id required")
	case input.PaymentMethodID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "payment method id required")
	case !input.ShippingMethod.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown shipping method").
			WithDetails(map[string]any{"shipping_method": string(input.ShippingMethod)})
	}
	return nil
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock):
		return metrics.OutcomeInsufficientStock
	case pkgerrors.IsCode(err, pkgerrors.CodePaymentDeclined):
		return metrics.OutcomePaymentDeclined
	case pkgerrors.IsCode(err, pkgerrors.CodeReconciliationRequired):
		return metrics.OutcomeReconciliationRequired
	case pkgerrors.IsCode(err, pkgerrors.CodeValidation), pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		return metrics.OutcomeValidationFailed
	default:
		return metrics.OutcomeInternal
	}
}
