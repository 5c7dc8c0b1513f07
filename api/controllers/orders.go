package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/harborline/marketplace-backend/api/middleware"
	"github.com/harborline/marketplace-backend/api/responses"
	ordersvc "github.com/harborline/marketplace-backend/internal/orders"
	"github.com/harborline/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/harborline/marketplace-backend/pkg/errors"
	"github.com/harborline/marketplace-backend/pkg/logger"
	"github.com/harborline/marketplace-backend/pkg/types"
)

// ListOrders returns the customer's orders, newest first.
func ListOrders(svc *ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		customerID := middleware.CustomerIDFromContext(r.Context())
		if customerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity required"))
			return
		}

		ownedOrders, err := svc.ListByCustomer(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list := make([]orderResponse, 0, len(ownedOrders))
		for _, order := range ownedOrders {
			list = append(list, newOrderResponse(order))
		}
		responses.WriteSuccess(w, map[string]any{"orders": list})
	}
}

// GetOrder returns a single order with its line items, scoped to the
// authenticated customer.
func GetOrder(svc *ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		customerID := middleware.CustomerIDFromContext(r.Context())
		if customerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity required"))
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}

		order, err := svc.FindOwned(r.Context(), orderID, customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(*order))
	}
}

type orderResponse struct {
	OrderID               uuid.UUID           `json:"order_id"`
	OrderNumber           string              `json:"order_number"`
	CheckoutTransactionID uuid.UUID           `json:"checkout_transaction_id"`
	SellerID              uuid.UUID           `json:"seller_id"`
	Status                string              `json:"status"`
	Currency              string              `json:"currency"`
	ShippingMethod        string              `json:"shipping_method"`
	SubtotalCents         int64               `json:"subtotal_cents"`
	TaxCents              int64               `json:"tax_cents"`
	ShippingCents         int64               `json:"shipping_cents"`
	TotalCents            int64               `json:"total_cents"`
	DeliveryAddress       types.Address       `json:"delivery_address"`
	Items                 []orderItemResponse `json:"items,omitempty"`
	CreatedAt             time.Time           `json:"created_at"`
}

type orderItemResponse struct {
	SKUID           *uuid.UUID `json:"sku_id,omitempty"`
	ProductName     string     `json:"product_name"`
	PrimaryImageURL *string    `json:"primary_image_url,omitempty"`
	UnitPriceCents  int64      `json:"unit_price_cents"`
	Qty             int        `json:"qty"`
	LineTotalCents  int64      `json:"line_total_cents"`
}

func newOrderResponse(order models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			SKUID:           item.SKUID,
			ProductName:     item.ProductName,
			PrimaryImageURL: item.PrimaryImageURL,
			UnitPriceCents:  item.UnitPriceCents,
			Qty:             item.Qty,
			LineTotalCents:  item.LineTotalCents,
		})
	}
	return orderResponse{
		OrderID:               order.ID,
		OrderNumber:           order.OrderNumber,
		CheckoutTransactionID: order.CheckoutTransactionID,
		SellerID:              order.SellerID,
		Status:                string(order.Status),
		Currency:              string(order.Currency),
		ShippingMethod:        string(order.ShippingMethod),
		SubtotalCents:         order.SubtotalCents,
		TaxCents:              order.TaxCents,
		ShippingCents:         order.ShippingCents,
		TotalCents:            order.TotalCents,
		DeliveryAddress:       order.DeliveryAddress,
		Items:                 items,
		CreatedAt:             order.CreatedAt,
	}
}
