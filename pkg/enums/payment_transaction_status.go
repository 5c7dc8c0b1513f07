package enums

import "fmt"

// PaymentTransactionStatus is the terminal outcome of a single capture attempt.
// Rows are immutable; refunds and voids get their own rows rather than edits.
type PaymentTransactionStatus string

const (
	PaymentTransactionStatusCaptured PaymentTransactionStatus = "captured"
	PaymentTransactionStatusDeclined PaymentTransactionStatus = "declined"
	PaymentTransactionStatusRefunded PaymentTransactionStatus = "refunded"
	PaymentTransactionStatusVoided   PaymentTransactionStatus = "voided"
)

var validPaymentTransactionStatuses = []PaymentTransactionStatus{
	PaymentTransactionStatusCaptured,
	PaymentTransactionStatusDeclined,
	PaymentTransactionStatusRefunded,
	PaymentTransactionStatusVoided,
}

// IsValid reports whether the value is a known PaymentTransactionStatus.
func (s PaymentTransactionStatus) IsValid() bool {
	for _, candidate := range validPaymentTransactionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePaymentTransactionStatus converts raw input into a PaymentTransactionStatus.
func ParsePaymentTransactionStatus(value string) (PaymentTransactionStatus, error) {
	for _, candidate := range validPaymentTransactionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment transaction status %q", value)
}
