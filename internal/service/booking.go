// Package service implements the booking transaction manager and the
// payment trigger that runs after it. All shared-counter mutations
// happen here, inside single database transactions holding the pool's
// row locks; events go out strictly after commit.
package service

import (
	"context"
	"database/sql"
	"log"

	"github.com/iliyamo/hospital-registration/internal/model"
	"github.com/iliyamo/hospital-registration/internal/queue"
	"github.com/iliyamo/hospital-registration/internal/repository"
)

// OrderEventPublisher is the slice of the queue package booking needs;
// tests substitute fakes to observe or fail publishes.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, eventType string, data any) error
}

// BookingService creates and cancels registration orders atomically
// against a doctor's daily availability pool, promoting the waitlist
// when a confirmed seat frees up. Row locks on the pool serialize all
// booking activity for one (doctor, date) while different pools
// proceed in parallel; there is no versioning scheme — the lock is the
// sole concurrency guard.
type BookingService struct {
	db     *sql.DB
	pools  *repository.AvailabilityRepo
	orders *repository.OrderRepo
	events OrderEventPublisher
}

// NewBookingService constructs a BookingService. All dependencies must
// be non-nil.
func NewBookingService(db *sql.DB, pools *repository.AvailabilityRepo, orders *repository.OrderRepo, events OrderEventPublisher) *BookingService {
	if db == nil || pools == nil || orders == nil || events == nil {
		panic("nil dependency passed to NewBookingService")
	}
	return &BookingService{db: db, pools: pools, orders: orders, events: events}
}

// CreateOrderInput carries the parameters of a registration request.
// The caller has already authenticated the account and validated
// required fields.
type CreateOrderInput struct {
	AccountID     uint64
	DepartmentID  uint64
	DoctorID      uint64
	Date          string
	Slot          string
	Note          *string
	ForceWaitlist bool
}

// Create books one seat against the doctor's daily pool, or queues the
// order when the pool is full. With ForceWaitlist set the order is
// queued unconditionally — an appointment-style request that must never
// confirm immediately regardless of free capacity — and the booked
// counter is left untouched. The pool read, counter mutation and order
// insert share one transaction; the order event is published only
// after commit and its failure never unwinds the booking.
func (s *BookingService) Create(ctx context.Context, in CreateOrderInput) (*model.Order, error) {
	date, err := model.NormalizeDate(in.Date)
	if err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	pool, err := s.pools.LockPoolTx(ctx, tx, in.DoctorID, date)
	if err != nil {
		return nil, err
	}

	order := &model.Order{
		AccountID:    in.AccountID,
		DepartmentID: in.DepartmentID,
		DoctorID:     in.DoctorID,
		Date:         date,
		Slot:         in.Slot,
		Note:         in.Note,
	}

	eventType := "waiting"
	if in.ForceWaitlist {
		// Deliberately queued request: bind to the slot row when one
		// exists, never touch booked, never confirm.
		order.Status = model.OrderWaiting
		order.IsWaitlist = true
		order.AvailabilityID = slotRowID(pool, in.Slot)
	} else {
		if len(pool) == 0 {
			// Booking against an unpublished day silently creates a
			// one-seat pool rather than failing.
			created, err := s.pools.EnsureTx(ctx, tx, in.DoctorID, date, in.Slot)
			if err != nil {
				return nil, err
			}
			pool = []model.Availability{*created}
		}
		rep := pool[0]
		if rep.Booked < rep.Capacity {
			if err := s.pools.IncrementBookedTx(ctx, tx, in.DoctorID, date); err != nil {
				return nil, err
			}
			order.Status = model.OrderConfirmed
			eventType = "created"
		} else {
			order.Status = model.OrderWaiting
			order.IsWaitlist = true
		}
		order.AvailabilityID = slotRowID(pool, in.Slot)
	}

	if err := s.orders.CreateTx(ctx, tx, order); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	if err := s.events.PublishOrderEvent(ctx, eventType, order); err != nil {
		log.Printf("booking: order.%s event for order %d not delivered: %v", eventType, order.ID, err)
	}
	return order, nil
}

// Cancel flips an order to cancelled. Cancelling an already-cancelled
// order succeeds idempotently. When the order was confirmed, the pool's
// booked counter is decremented and the earliest waiting order for the
// same (doctor, date) — slot-agnostic, FIFO by creation time — is
// promoted inside the same transaction, restoring booked to its
// pre-cancellation value. Events publish after commit only.
func (s *BookingService) Cancel(ctx context.Context, orderID uint64, cancelledBy string) (*model.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	order, err := s.orders.GetForUpdateTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == model.OrderCancelled {
		return order, nil
	}

	if err := s.orders.MarkCancelledTx(ctx, tx, orderID); err != nil {
		return nil, err
	}

	var promoted *model.Order
	if order.Status == model.OrderConfirmed {
		promoted, err = s.releaseSeatTx(ctx, tx, order.DoctorID, order.Date)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	if promoted != nil {
		if err := s.events.PublishOrderEvent(ctx, "promoted", promoted); err != nil {
			log.Printf("booking: order.promoted event for order %d not delivered: %v", promoted.ID, err)
		}
	}
	if err := s.events.PublishOrderEvent(ctx, "cancelled", queue.CancelledData{OrderID: orderID, CancelledBy: cancelledBy}); err != nil {
		log.Printf("booking: order.cancelled event for order %d not delivered: %v", orderID, err)
	}

	order.Status = model.OrderCancelled
	order.IsWaitlist = false
	return order, nil
}

// releaseSeatTx gives a confirmed seat back to the pool and hands it to
// the waitlist head when there is one. Net effect with a promotion is
// an unchanged booked counter; without one, booked stays decremented.
func (s *BookingService) releaseSeatTx(ctx context.Context, tx *sql.Tx, doctorID uint64, date string) (*model.Order, error) {
	pool, err := s.pools.LockPoolTx(ctx, tx, doctorID, date)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 || pool[0].Booked <= 0 {
		return nil, nil
	}
	if err := s.pools.DecrementBookedTx(ctx, tx, doctorID, date); err != nil {
		return nil, err
	}
	next, err := s.orders.NextWaitingTx(ctx, tx, doctorID, date)
	if err != nil || next == nil {
		return nil, err
	}
	promoted, err := s.orders.PromoteTx(ctx, tx, next.ID)
	if err != nil {
		return nil, err
	}
	if err := s.pools.IncrementBookedTx(ctx, tx, doctorID, date); err != nil {
		return nil, err
	}
	return promoted, nil
}

// slotRowID picks the pool row matching the requested slot, if any.
// Orders for a slot the admin never published stay unbound.
func slotRowID(pool []model.Availability, slot string) *uint64 {
	for i := range pool {
		if pool[i].Slot == slot {
			id := pool[i].ID
			return &id
		}
	}
	return nil
}
