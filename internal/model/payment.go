package model

import "time"

// PaymentStatus enumerates the states of a registration payment.
type PaymentStatus string

const (
	PaymentCreated  PaymentStatus = "created"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Payment is raised when a confirmed order carries a non-zero fee.
// Creation happens outside the booking transaction and is best-effort;
// the order remains valid even when no payment row exists.
//
// Fields:
//  ID        – primary key identifier.
//  AccountID – paying patient account.
//  OrderID   – order the payment settles (nullable for standalone fees).
//  Amount    – fee amount in the payment currency.
//  Currency  – ISO currency code, CNY by default.
//  Status    – lifecycle state, see PaymentStatus.
//  PaidAt    – settlement timestamp once paid (nullable).
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Payment struct {
	ID        uint64        `json:"id"`         // payments.id
	AccountID uint64        `json:"account_id"` // payments.account_id
	OrderID   *uint64       `json:"order_id"`   // payments.order_id (nullable)
	Amount    float64       `json:"amount"`     // payments.amount
	Currency  string        `json:"currency"`   // payments.currency
	Status    PaymentStatus `json:"status"`     // payments.status
	PaidAt    *time.Time    `json:"paid_at"`    // payments.paid_at (nullable)
	CreatedAt time.Time     `json:"created_at"` // payments.created_at
	UpdatedAt time.Time     `json:"updated_at"` // payments.updated_at
}
