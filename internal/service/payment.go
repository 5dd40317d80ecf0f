package service

import (
	"context"
	"time"

	"github.com/iliyamo/hospital-registration/internal/model"
	"github.com/iliyamo/hospital-registration/internal/repository"
)

// feeSchedule maps registration tiers to their fee in CNY. The general
// tier is free; free tiers never raise a payment.
var feeSchedule = map[model.Tier]float64{
	model.TierGeneral:    0,
	model.TierSpecialist: 20,
	model.TierSpecial:    50,
}

// FeeForTier returns the registration fee for a tier. Unknown tiers
// are treated as free.
func FeeForTier(tier model.Tier) float64 {
	return feeSchedule[tier]
}

// PaymentService raises and settles registration payments. Raising a
// payment happens after the booking transaction has committed and is
// best-effort: a failure here leaves a valid, unpaid order behind.
type PaymentService struct {
	payments *repository.PaymentRepo
	orders   *repository.OrderRepo
}

// NewPaymentService constructs a PaymentService. All dependencies must
// be non-nil.
func NewPaymentService(payments *repository.PaymentRepo, orders *repository.OrderRepo) *PaymentService {
	if payments == nil || orders == nil {
		panic("nil dependency passed to NewPaymentService")
	}
	return &PaymentService{payments: payments, orders: orders}
}

// CreateForOrder raises a payment for a freshly confirmed order whose
// tier carries a non-zero fee and links it back onto the order.
// Waiting (waitlisted) orders and free tiers yield no payment; the
// patient on a waitlist must not be asked to pay for a seat they do
// not hold yet.
func (s *PaymentService) CreateForOrder(ctx context.Context, order *model.Order, tier model.Tier) (*model.Payment, error) {
	fee := FeeForTier(tier)
	if order.Status != model.OrderConfirmed || fee <= 0 {
		return nil, nil
	}
	payment, err := s.payments.Create(ctx, order.AccountID, &order.ID, fee, "CNY")
	if err != nil {
		return nil, err
	}
	if err := s.orders.SetPaymentID(ctx, order.ID, payment.ID); err != nil {
		return nil, err
	}
	order.PaymentID = &payment.ID
	return payment, nil
}

// Pay settles a payment and, when it is linked to an order, confirms
// that order and clears any stale waitlist flag.
func (s *PaymentService) Pay(ctx context.Context, paymentID uint64) (*model.Payment, error) {
	payment, err := s.payments.MarkPaid(ctx, paymentID, time.Now())
	if err != nil {
		return nil, err
	}
	if payment.OrderID != nil {
		if err := s.orders.ConfirmPaid(ctx, *payment.OrderID); err != nil {
			return nil, err
		}
	}
	return payment, nil
}
