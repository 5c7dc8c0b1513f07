package paymentmethods

import (
	"testing"
	"time"

	"github.com/harborline/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/harborline/marketplace-backend/pkg/errors"
)

func TestValidateUsable(t *testing.T) {
	now := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)

	current := &models.PaymentMethod{CardExpMonth: 3, CardExpYear: 2026, CardLast4: "4242"}
	if err := ValidateUsable(current, now); err != nil {
		t.Fatalf("card expiring this month should still be usable: %v", err)
	}

	expired := &models.PaymentMethod{CardExpMonth: 2, CardExpYear: 2026, CardLast4: "0005"}
	err := ValidateUsable(expired, now)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for expired card, got %v", err)
	}

	if err := ValidateUsable(nil, now); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for nil method, got %v", err)
	}
}
