package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/harborline/marketplace-backend/api/middleware"
	"github.com/harborline/marketplace-backend/api/responses"
	"github.com/harborline/marketplace-backend/api/validators"
	cartsvc "github.com/harborline/marketplace-backend/internal/cart"
	"github.com/harborline/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/harborline/marketplace-backend/pkg/errors"
	"github.com/harborline/marketplace-backend/pkg/logger"
)

// GetCart returns the customer's active cart, empty when none exists.
func GetCart(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		customerID := middleware.CustomerIDFromContext(r.Context())
		if customerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity required"))
			return
		}

		activeCart, err := svc.Get(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(activeCart))
	}
}

// PutCart replaces the cart contents wholesale, capturing current unit prices.
func PutCart(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		customerID := middleware.CustomerIDFromContext(r.Context())
		if customerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity required"))
			return
		}

		var payload putCartRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]cartsvc.ItemInput, 0, len(payload.Items))
		for _, item := range payload.Items {
			items = append(items, cartsvc.ItemInput{SKUID: item.SKUID, Qty: item.Qty})
		}

		updated, err := svc.Replace(r.Context(), customerID, items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(updated))
	}
}

type putCartRequest struct {
	Items []putCartItem `json:"items" validate:"required,dive"`
}

type putCartItem struct {
	SKUID uuid.UUID `json:"sku_id" validate:"required,uuid4"`
	Qty   int       `json:"qty" validate:"required,min=1"`
}

type cartResponse struct {
	CartID        *uuid.UUID         `json:"cart_id,omitempty"`
	Items         []cartItemResponse `json:"items"`
	SubtotalCents int64              `json:"subtotal_cents"`
}

type cartItemResponse struct {
	SKUID             uuid.UUID `json:"sku_id"`
	Qty               int       `json:"qty"`
	UnitPriceCents    int64     `json:"unit_price_cents"`
	LineSubtotalCents int64     `json:"line_subtotal_cents"`
}

func newCartResponse(activeCart *models.Cart) cartResponse {
	resp := cartResponse{Items: []cartItemResponse{}}
	if activeCart == nil {
		return resp
	}
	if activeCart.ID != uuid.Nil {
		id := activeCart.ID
		resp.CartID = &id
	}
	for _, item := range activeCart.Items {
		lineSubtotal := item.UnitPriceCents * int64(item.Qty)
		resp.Items = append(resp.Items, cartItemResponse{
			SKUID:             item.SKUID,
			Qty:               item.Qty,
			UnitPriceCents:    item.UnitPriceCents,
			LineSubtotalCents: lineSubtotal,
		})
		resp.SubtotalCents += lineSubtotal
	}
	return resp
}
