package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/davidorozcoq/mercadito-backend/pkg/db/models"
	"github.com/davidorozcoq/mercadito-backend/pkg/enums"
	pkgerrors "github.com/davidorozcoq/mercadito-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// callbackGuard deduplicates externally-triggered capture/refund callbacks.
type callbackGuard interface {
	CheckAndSet(ctx context.Context, scope, key string) (bool, error)
	Clear(ctx context.Context, scope, key string) error
}

const (
	captureScope = "payments:capture"
	refundScope  = "payments:refund"
)

// Service defines payment ledger operations. The tx-scoped methods are
// building blocks for the order workflow; Capture and Refund are the
// idempotent entry points for provider callbacks.
type Service interface {
	AuthorizeAndCapture(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, amountCents int64) (*models.Payment, error)
	RefundPayment(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID) error
	LatestCaptured(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	Capture(ctx context.Context, orderID uuid.UUID, providerRef string) (bool, error)
	Refund(ctx context.Context, orderID uuid.UUID, providerRef string) (bool, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	provider Provider
	guard    callbackGuard
	now      func() time.Time
}

// NewService wires a payments service with the required dependencies.
func NewService(repo Repository, tx txRunner, provider Provider, guard callbackGuard) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if provider == nil {
		return nil, fmt.Errorf("payment provider required")
	}
	if guard == nil {
		return nil, fmt.Errorf("callback guard required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		provider: provider,
		guard:    guard,
		now:      time.Now,
	}, nil
}

// AuthorizeAndCapture runs the authorize-then-capture sequence against the
// provider and records both outcomes inside the caller's transaction. The
// payment row is written as authorized first so a failed capture still leaves
// an audit trail.
func (s *service) AuthorizeAndCapture(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, amountCents int64) (*models.Payment, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if amountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	ref, err := s.provider.Authorize(ctx, orderID, amountCents)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentDeclined, err, "authorization declined")
	}

	repo := s.repo.WithTx(tx)
	payment := &models.Payment{
		OrderID:     orderID,
		Provider:    s.provider.Name(),
		ProviderRef: ref,
		AmountCents: amountCents,
		Status:      enums.PaymentStatusAuthorized,
	}
	if err := repo.Create(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record authorization")
	}

	if err := s.provider.Capture(ctx, ref); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentDeclined, err, "capture declined")
	}

	ok, err := repo.UpdateStatusCAS(ctx, payment.ID, enums.PaymentStatusAuthorized, enums.PaymentStatusCaptured, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record capture")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment state changed during capture")
	}
	payment.Status = enums.PaymentStatusCaptured
	return payment, nil
}

// RefundPayment flips a captured payment to refunded inside the caller's
// transaction. Used by cancellation and by capture compensation.
func (s *service) RefundPayment(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID) error {
	if paymentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}

	repo := s.repo.WithTx(tx)
	payment, err := repo.FindByID(ctx, paymentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment.Status == enums.PaymentStatusRefunded {
		return nil
	}
	if payment.Status != enums.PaymentStatusCaptured {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only captured payments can be refunded")
	}

	if err := s.provider.Refund(ctx, payment.ProviderRef); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "provider refund")
	}
	ok, err := repo.UpdateStatusCAS(ctx, payment.ID, enums.PaymentStatusCaptured, enums.PaymentStatusRefunded, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record refund")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payment state changed during refund")
	}
	return nil
}

// LatestCaptured returns the most recent captured payment for the order.
func (s *service) LatestCaptured(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	payment, err := s.repo.FindLatestByOrderAndStatus(ctx, orderID, enums.PaymentStatusCaptured)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no captured payment for order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load captured payment")
	}
	return payment, nil
}

// Capture is the provider callback entry point. It looks up the payment by
// (order, provider_ref) and flips it to captured. Replays inside the guard
// TTL and already-captured rows report true without a second state change.
func (s *service) Capture(ctx context.Context, orderID uuid.UUID, providerRef string) (bool, error) {
	return s.callback(ctx, orderID, providerRef, captureScope,
		enums.PaymentStatusAuthorized, enums.PaymentStatusCaptured)
}

// Refund is the provider callback entry point for refunds of captured rows.
func (s *service) Refund(ctx context.Context, orderID uuid.UUID, providerRef string) (bool, error) {
	return s.callback(ctx, orderID, providerRef, refundScope,
		enums.PaymentStatusCaptured, enums.PaymentStatusRefunded)
}

func (s *service) callback(ctx context.Context, orderID uuid.UUID, providerRef, scope string, from, to enums.PaymentStatus) (bool, error) {
	if orderID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if providerRef == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "provider ref required")
	}

	payment, err := s.repo.FindByOrderAndRef(ctx, orderID, providerRef)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment.Status == to {
		return true, nil
	}
	if payment.Status != from {
		return false, nil
	}

	guardKey := orderID.String() + ":" + providerRef
	first, err := s.guard.CheckAndSet(ctx, scope, guardKey)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency check")
	}
	if !first {
		// A concurrent or recent delivery claimed this callback.
		return payment.Status == to, nil
	}

	flipped := false
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.UpdateStatusCAS(ctx, payment.ID, from, to, s.now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}
		flipped = ok
		return nil
	})
	if err != nil {
		// Release the guard so the provider's retry can try again.
		_ = s.guard.Clear(ctx, scope, guardKey)
		return false, err
	}
	return flipped, nil
}
