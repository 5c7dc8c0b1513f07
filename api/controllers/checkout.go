package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/harborline/marketplace-backend/api/middleware"
	"github.com/harborline/marketplace-backend/api/responses"
	"github.com/harborline/marketplace-backend/api/validators"
	checkoutsvc "github.com/harborline/marketplace-backend/internal/checkout"
	"github.com/harborline/marketplace-backend/pkg/enums"
	pkgerrors "github.com/harborline/marketplace-backend/pkg/errors"
	"github.com/harborline/marketplace-backend/pkg/logger"
)

// Checkout submits the customer's active cart: one charge, one order per
// seller.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		customerID := middleware.CustomerIDFromContext(r.Context())
		if customerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity required"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Execute(r.Context(), checkoutsvc.Input{
			CustomerID:        customerID,
			DeliveryAddressID: payload.DeliveryAddressID,
			PaymentMethodID:   payload.PaymentMethodID,
			ShippingMethod:    enums.ShippingMethod(payload.ShippingMethod),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

type checkoutRequest struct {
	DeliveryAddressID uuid.UUID `json:"delivery_address_id" validate:"required,uuid4"`
	PaymentMethodID   uuid.UUID `json:"payment_method_id" validate:"required,uuid4"`
	ShippingMethod    string    `json:"shipping_method" validate:"required,oneof=standard express overnight free_shipping"`
}
