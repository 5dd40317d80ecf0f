package model

import "time"

// OrderStatus enumerates the lifecycle states of a registration order.
// Allowed transitions: confirmed ⇄ cancelled, waiting → confirmed
// (promotion) or cancelled. Nothing ever leaves cancelled.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderWaiting   OrderStatus = "waiting"
	OrderCancelled OrderStatus = "cancelled"
	OrderCompleted OrderStatus = "completed"
)

// Order is a patient's registration against a doctor's daily pool.
// Orders are never physically deleted; cancellation flips the status.
//
// Fields:
//  ID             – primary key identifier.
//  AccountID      – patient account that placed the order.
//  DepartmentID   – department the doctor belongs to.
//  DoctorID       – doctor being booked.
//  AvailabilityID – slot row the order is bound to (nullable).
//  Date           – calendar day in YYYY-MM-DD form.
//  Slot           – requested time-window label.
//  Status         – lifecycle state, see OrderStatus.
//  IsWaitlist     – true while the order sits in the FIFO waitlist.
//  Note           – free-form patient note (nullable).
//  PaymentID      – linked payment once a fee has been raised (nullable).
//  CreatedAt      – creation timestamp; defines waitlist FIFO order.
//  UpdatedAt      – last update timestamp.
type Order struct {
	ID             uint64      `json:"id"`              // orders.id
	AccountID      uint64      `json:"account_id"`      // orders.account_id
	DepartmentID   uint64      `json:"department_id"`   // orders.department_id
	DoctorID       uint64      `json:"doctor_id"`       // orders.doctor_id
	AvailabilityID *uint64     `json:"availability_id"` // orders.availability_id (nullable)
	Date           string      `json:"date"`            // orders.date
	Slot           string      `json:"slot"`            // orders.slot
	Status         OrderStatus `json:"status"`          // orders.status
	IsWaitlist     bool        `json:"is_waitlist"`     // orders.is_waitlist
	Note           *string     `json:"note"`            // orders.note (nullable)
	PaymentID      *uint64     `json:"payment_id"`      // orders.payment_id (nullable)
	CreatedAt      time.Time   `json:"created_at"`      // orders.created_at
	UpdatedAt      time.Time   `json:"updated_at"`      // orders.updated_at
}
