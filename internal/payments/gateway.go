package payments

import (
	"context"

	"github.com/harborline/marketplace-backend/pkg/types"
)

// ChargeInput carries one capture attempt to the gateway.
type ChargeInput struct {
	Token          string
	AmountCents    int64
	Currency       string
	ReferenceID    string
	IdempotencyKey string
	Note           string
}

// ChargeResult reports the gateway outcome. A decline is a result, not an
// error; errors mean the outcome is unknown.
type ChargeResult struct {
	Captured      bool
	TransactionID string
	DeclineReason string
	Raw           types.JSONMap
}

// Gateway abstracts the external payment processor.
type Gateway interface {
	Charge(ctx context.Context, input ChargeInput) (ChargeResult, error)
}
