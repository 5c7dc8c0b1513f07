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
	cartsvc "github.com/harborline/marketplace-backend/internal/cart"
	"github.com/harborline/marketplace-backend/pkg/db/models"
	"github.com/harborline/marketplace-backend/pkg/types"
)

type stubCart struct {
	cart  *models.Cart
	err   error
	items []cartsvc.ItemInput
}

func (s *stubCart) Get(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	return s.cart, s.err
}

func (s *stubCart) Replace(ctx context.Context, customerID uuid.UUID, items []cartsvc.ItemInput) (*models.Cart, error) {
	s.items = items
	return s.cart, s.err
}

func TestGetCartEmpty(t *testing.T) {
	svc := &stubCart{cart: &models.Cart{}}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req = req.WithContext(middleware.WithCustomerID(req.Context(), uuid.New()))
	rec := httptest.NewRecorder()

	GetCart(svc, nil)(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var envelope types.SuccessEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	data := envelope.Data.(map[string]any)
	if data["subtotal_cents"] != float64(0) {
		t.Fatalf("expected empty subtotal, got %+v", data)
	}
}

func TestPutCartForwardsItems(t *testing.T) {
	skuID := uuid.New()
	svc := &stubCart{cart: &models.Cart{
		ID: uuid.New(),
		Items: []models.CartItem{
			{SKUID: skuID, Qty: 2, UnitPriceCents: 1500},
		},
	}}

	body := `{"items":[{"sku_id":"` + skuID.String() + `","qty":2}]}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/cart", strings.NewReader(body))
	req = req.WithContext(middleware.WithCustomerID(req.Context(), uuid.New()))
	rec := httptest.NewRecorder()

	PutCart(svc, nil)(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.items) != 1 || svc.items[0].SKUID != skuID || svc.items[0].Qty != 2 {
		t.Fatalf("items not forwarded: %+v", svc.items)
	}

	var envelope types.SuccessEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	data := envelope.Data.(map[string]any)
	if data["subtotal_cents"] != float64(3000) {
		t.Fatalf("expected 3000 subtotal, got %+v", data)
	}
}

func TestPutCartRejectsZeroQty(t *testing.T) {
	svc := &stubCart{cart: &models.Cart{}}
	body := `{"items":[{"sku_id":"` + uuid.NewString() + `","qty":0}]}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/cart", strings.NewReader(body))
	req = req.WithContext(middleware.WithCustomerID(req.Context(), uuid.New()))
	rec := httptest.NewRecorder()

	PutCart(svc, nil)(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.items != nil {
		t.Fatalf("service must not run for invalid body")
	}
}

func TestGetCartRequiresCustomer(t *testing.T) {
	svc := &stubCart{cart: &models.Cart{}}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()

	GetCart(svc, nil)(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
