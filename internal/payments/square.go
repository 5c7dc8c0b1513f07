package payments

import (
	"context"
	"fmt"

	"github.com/harborline/marketplace-backend/pkg/errors"
	"github.com/harborline/marketplace-backend/pkg/square"
	"github.com/harborline/marketplace-backend/pkg/types"
)

// SquareGateway adapts the Square client to the Gateway contract.
type SquareGateway struct {
	client *square.Client
}

// NewSquareGateway wraps an initialized Square client.
func NewSquareGateway(client *square.Client) (*SquareGateway, error) {
	if client == nil {
		return nil, fmt.Errorf("square client required")
	}
	return &SquareGateway{client: client}, nil
}

func (g *SquareGateway) Charge(ctx context.Context, input ChargeInput) (ChargeResult, error) {
	payment, err := g.client.CreatePayment(ctx, square.PaymentCreateParams{
		AmountCents:    input.AmountCents,
		Currency:       input.Currency,
		LocationID:     g.client.LocationID(),
		SourceID:       input.Token,
		IdempotencyKey: input.IdempotencyKey,
		Note:           input.Note,
		ReferenceID:    input.ReferenceID,
	})
	if err != nil {
		if errors.IsCode(err, errors.CodePaymentDeclined) {
			return ChargeResult{
				Captured:      false,
				DeclineReason: err.Error(),
				Raw:           types.JSONMap{"error": err.Error()},
			}, nil
		}
		return ChargeResult{}, err
	}

	raw := types.JSONMap{}
	if id := payment.GetID(); id != nil {
		raw["payment_id"] = *id
	}
	if status := payment.GetStatus(); status != nil {
		raw["status"] = *status
	}
	if ref := payment.GetReferenceID(); ref != nil {
		raw["reference_id"] = *ref
	}

	return ChargeResult{
		Captured:      true,
		TransactionID: stringValue(payment.GetID()),
		Raw:           raw,
	}, nil
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
