package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harborline/marketplace-backend/pkg/db/models"
	"github.com/harborline/marketplace-backend/pkg/enums"
	pkgerrors "github.com/harborline/marketplace-backend/pkg/errors"
	"github.com/harborline/marketplace-backend/pkg/logger"
	"github.com/harborline/marketplace-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CaptureInput describes the single capture a checkout performs.
type CaptureInput struct {
	CheckoutTransactionID uuid.UUID
	CartID                uuid.UUID
	CustomerID            uuid.UUID
	Method                *models.PaymentMethod
	AmountCents           int64
	Currency              enums.Currency
	BillingAddress        *types.Address
}

// Service captures payments and records every attempt.
type Service interface {
	Capture(ctx context.Context, input CaptureInput) (*models.PaymentTransaction, error)
}

type service struct {
	tx      txRunner
	repo    Repository
	gateway Gateway
	logg    *logger.Logger
}

// NewService builds the payment capture service.
func NewService(tx txRunner, repo Repository, gateway Gateway, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	return &service{tx: tx, repo: repo, gateway: gateway, logg: logg}, nil
}

// Capture charges the gateway once and persists the attempt. A declined charge
// still writes its row; the returned error then carries PAYMENT_DECLINED. A
// gateway transport failure writes nothing because the outcome is unknown.
func (s *service) Capture(ctx context.Context, input CaptureInput) (*models.PaymentTransaction, error) {
	if err := validateCaptureInput(input); err != nil {
		return nil, err
	}

	attempts, err := s.repo.CountAttemptsForCart(ctx, input.CartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting capture attempts")
	}

	result, err := s.gateway.Charge(ctx, ChargeInput{
		Token:          input.Method.GatewayToken,
		AmountCents:    input.AmountCents,
		Currency:       string(input.Currency),
		ReferenceID:    input.CheckoutTransactionID.String(),
		IdempotencyKey: input.CheckoutTransactionID.String(),
		Note:           "marketplace checkout",
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "charging payment gateway")
	}

	row := &models.PaymentTransaction{
		ID:                    uuid.New(),
		CheckoutTransactionID: input.CheckoutTransactionID,
		CartID:                input.CartID,
		CustomerID:            input.CustomerID,
		PaymentMethodID:       input.Method.ID,
		AmountCents:           input.AmountCents,
		Currency:              input.Currency,
		AttemptNumber:         int(attempts) + 1,
		GatewayResponse:       result.Raw,
		BillingAddress:        input.BillingAddress,
	}
	if result.Captured {
		row.Status = enums.PaymentTransactionStatusCaptured
		row.GatewayTransactionID = nonEmptyPtr(result.TransactionID)
	} else {
		row.Status = enums.PaymentTransactionStatusDeclined
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Create(ctx, row)
	}); err != nil {
		if result.Captured {
			// Money moved but the record write failed. Surface the row so the
			// caller can still flag reconciliation against it.
			return row, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording captured payment")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording declined payment")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"payment_transaction_id": row.ID.String(),
			"status":                 string(row.Status),
			"attempt_number":         row.AttemptNumber,
		})
		s.logg.Info(logCtx, "payment capture recorded")
	}

	if !result.Captured {
		return row, pkgerrors.New(pkgerrors.CodePaymentDeclined, "payment was declined").
			WithDetails(map[string]any{
				"card_last4": input.Method.CardLast4,
				"reason":     result.DeclineReason,
			})
	}
	return row, nil
}

func validateCaptureInput(input CaptureInput) error {
	switch {
	case input.CheckoutTransactionID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout transaction id required")
	case input.CartID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "cart id required")
	case input.CustomerID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	case input.Method == nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "payment method required")
	case input.AmountCents <= 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	return nil
}

func nonEmptyPtr(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
