package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/harborline/marketplace-backend/api/middleware"
	checkoutsvc "github.com/harborline/marketplace-backend/internal/checkout"
	pkgerrors "github.com/harborline/marketplace-backend/pkg/errors"
	"github.com/harborline/marketplace-backend/pkg/types"
)

type stubCheckout struct {
	result *checkoutsvc.Result
	err    error
	last   checkoutsvc.Input
	calls  int
}

func (s *stubCheckout) Execute(ctx context.Context, input checkoutsvc.Input) (*checkoutsvc.Result, error) {
	s.calls++
	s.last = input
	return s.result, s.err
}

func checkoutRequestBody(t *testing.T) (string, uuid.UUID, uuid.UUID) {
	t.Helper()
	addressID, methodID := uuid.New(), uuid.New()
	body, err := json.Marshal(map[string]any{
		"delivery_address_id": addressID,
		"payment_method_id":   methodID,
		"shipping_method":     "standard",
	})
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return string(body), addressID, methodID
}

func doCheckout(t *testing.T, svc checkoutsvc.Service, customerID uuid.UUID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	if customerID != uuid.Nil {
		req = req.WithContext(middleware.WithCustomerID(req.Context(), customerID))
	}
	rec := httptest.NewRecorder()
	Checkout(svc, nil)(rec, req)
	return rec
}

func TestCheckoutSuccess(t *testing.T) {
	customerID := uuid.New()
	body, addressID, methodID := checkoutRequestBody(t)
	svc := &stubCheckout{result: &checkoutsvc.Result{
		CheckoutTransactionID: uuid.New(),
		OrderIDs:              []uuid.UUID{uuid.New(), uuid.New()},
		OrderNumbers:          []string{"20260831-0001", "20260831-0002"},
		TotalChargedCents:     6500,
		Currency:              "USD",
	}}

	rec := doCheckout(t, svc, customerID, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.calls != 1 {
		t.Fatalf("expected one execute call, got %d", svc.calls)
	}
	if svc.last.CustomerID != customerID || svc.last.DeliveryAddressID != addressID || svc.last.PaymentMethodID != methodID {
		t.Fatalf("input not forwarded: %+v", svc.last)
	}

	var envelope types.SuccessEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	data, ok := envelope.Data.(map[string]any)
	if !ok || data["total_charged_cents"] != float64(6500) {
		t.Fatalf("unexpected payload: %+v", envelope.Data)
	}
}

func TestCheckoutRequiresCustomer(t *testing.T) {
	body, _, _ := checkoutRequestBody(t)
	svc := &stubCheckout{}

	rec := doCheckout(t, svc, uuid.Nil, body)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if svc.calls != 0 {
		t.Fatalf("service must not run without identity")
	}
}

func TestCheckoutRejectsUnknownShippingMethod(t *testing.T) {
	svc := &stubCheckout{}
	body := `{"delivery_address_id":"` + uuid.NewString() + `","payment_method_id":"` + uuid.NewString() + `","shipping_method":"drone"}`

	rec := doCheckout(t, svc, uuid.New(), body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.calls != 0 {
		t.Fatalf("service must not run for invalid body")
	}
}

func TestCheckoutDeclinedMapsTo402(t *testing.T) {
	body, _, _ := checkoutRequestBody(t)
	svc := &stubCheckout{err: pkgerrors.New(pkgerrors.CodePaymentDeclined, "payment was declined").
		WithDetails(map[string]any{"card_last4": "4242"})}

	rec := doCheckout(t, svc, uuid.New(), body)
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", rec.Code)
	}
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.Code != "PAYMENT_DECLINED" {
		t.Fatalf("unexpected code %s", envelope.Error.Code)
	}
}

func TestCheckoutReconciliationMapsTo502(t *testing.T) {
	body, _, _ := checkoutRequestBody(t)
	svc := &stubCheckout{err: pkgerrors.New(pkgerrors.CodeReconciliationRequired, "checkout incomplete after payment capture")}

	rec := doCheckout(t, svc, uuid.New(), body)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.Message != "order processing delayed" {
		t.Fatalf("expected public message, got %q", envelope.Error.Message)
	}
}
