package payloads

import "github.com/google/uuid"

// OrderCreatedItem is one snapshotted line inside an OrderCreatedEvent.
type OrderCreatedItem struct {
	SKUID          *uuid.UUID `json:"skuId,omitempty"`
	ProductName    string     `json:"productName"`
	Qty            int        `json:"qty"`
	UnitPriceCents int64      `json:"unitPriceCents"`
	LineTotalCents int64      `json:"lineTotalCents"`
}

// OrderCreatedEvent is published for each per-seller order a checkout produces.
type OrderCreatedEvent struct {
	OrderID               uuid.UUID           `json:"orderId"`
	OrderNumber           string              `json:"orderNumber"`
	CheckoutTransactionID uuid.UUID           `json:"checkoutTransactionId"`
	CustomerID            uuid.UUID           `json:"customerId"`
	SellerID              uuid.UUID           `json:"sellerId"`
	Currency              string              `json:"currency"`
	ShippingMethod        string              `json:"shippingMethod"`
	SubtotalCents         int64               `json:"subtotalCents"`
	TaxCents              int64               `json:"taxCents"`
	ShippingCents         int64               `json:"shippingCents"`
	TotalCents            int64               `json:"totalCents"`
	Items                 []OrderCreatedItem  `json:"items"`
}

// ReconciliationRequiredEvent is published when a captured payment could not be
// carried through to a completed checkout.
type ReconciliationRequiredEvent struct {
	CheckoutTransactionID uuid.UUID `json:"checkoutTransactionId"`
	PaymentTransactionID  uuid.UUID `json:"paymentTransactionId"`
	CustomerID            uuid.UUID `json:"customerId"`
	AmountCents           int64     `json:"amountCents"`
	Currency              string    `json:"currency"`
	FailedStep            string    `json:"failedStep"`
	Reason                string    `json:"reason"`
}
