package orders

import (
	"context"
	"fmt"

	"github.com/davidorozcoq/mercadito-backend/internal/escrow"
	"github.com/davidorozcoq/mercadito-backend/pkg/db/models"
	"github.com/davidorozcoq/mercadito-backend/pkg/enums"
	pkgerrors "github.com/davidorozcoq/mercadito-backend/pkg/errors"
	"github.com/davidorozcoq/mercadito-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// listingFinder resolves the listing an order points at.
type listingFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

// paymentProcessor is the payment ledger surface the workflow drives.
type paymentProcessor interface {
	AuthorizeAndCapture(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, amountCents int64) (*models.Payment, error)
	RefundPayment(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID) error
	LatestCaptured(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
}

// escrowKeeper is the escrow state machine surface the workflow drives.
type escrowKeeper interface {
	Create(ctx context.Context, tx *gorm.DB, input escrow.CreateInput) (*models.Escrow, error)
	Fund(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	Release(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	RefundHeld(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Escrow, error)
}

// Config tunes workflow policy.
type Config struct {
	// CompleteRequiresPaid restricts complete() to orders currently in paid.
	CompleteRequiresPaid bool
	// EscrowProvider names the provider recorded on new escrows.
	EscrowProvider string
}

// Service is the order workflow: the saga that drives an order from creation
// to a terminal state across the payment ledger and the escrow state machine.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Pay(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Complete(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderList, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	listings listingFinder
	payments paymentProcessor
	escrow   escrowKeeper
	cfg      Config
}

// NewService builds the order workflow with the required collaborators.
func NewService(repo Repository, tx txRunner, listings listingFinder, payments paymentProcessor, escrowSvc escrowKeeper, cfg Config) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if listings == nil {
		return nil, fmt.Errorf("listing finder required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payment processor required")
	}
	if escrowSvc == nil {
		return nil, fmt.Errorf("escrow keeper required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		listings: listings,
		payments: payments,
		escrow:   escrowSvc,
		cfg:      cfg,
	}, nil
}

// Create opens an order in status created against an active listing.
func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if input.ListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}

	listing, err := s.listings.FindByID(ctx, input.ListingID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	if !listing.Active {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not available")
	}
	if listing.SellerID == input.BuyerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot buy your own listing")
	}
	sellerID := input.SellerID
	if sellerID == uuid.Nil {
		sellerID = listing.SellerID
	} else if sellerID != listing.SellerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller does not match listing")
	}

	amount := input.AmountCents
	if amount == 0 {
		amount = listing.PriceCents
	}
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	currency := input.Currency
	if currency == "" {
		currency = listing.Currency
	}
	if !currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid currency %q", currency))
	}

	order := &models.Order{
		BuyerID:     input.BuyerID,
		SellerID:    sellerID,
		ListingID:   input.ListingID,
		AmountCents: amount,
		Currency:    currency,
		Status:      enums.OrderStatusCreated,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		return s.appendHistory(ctx, repo, order.ID, nil, enums.OrderStatusCreated, nil)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Pay drives the capture saga: authorize and capture against the payment
// ledger, then mark the order paid, then create and fund its escrow. The
// order only becomes paid after capture has succeeded; a stale writer that
// loses the status swap after capturing compensates with a refund before the
// transaction rolls back.
func (s *service) Pay(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var paid *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusCreated {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot pay order in status %s", order.Status))
		}

		payment, err := s.payments.AuthorizeAndCapture(ctx, tx, order.ID, order.AmountCents)
		if err != nil {
			return err
		}

		ok, err := repo.UpdateStatusCAS(ctx, order.ID, enums.OrderStatusPaid, order.Version)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}
		if !ok {
			// A concurrent pay won the version race after our capture went
			// through; undo the charge before rolling back.
			if refundErr := s.payments.RefundPayment(ctx, tx, payment.ID); refundErr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, refundErr, "compensate lost payment race")
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order was paid concurrently")
		}

		from := enums.OrderStatusCreated
		reason := "authorized"
		if err := s.appendHistory(ctx, repo, order.ID, &from, enums.OrderStatusPaid, &reason); err != nil {
			return err
		}

		if _, err := s.escrow.Create(ctx, tx, escrow.CreateInput{
			OrderID:     order.ID,
			Provider:    s.cfg.EscrowProvider,
			AmountCents: order.AmountCents,
			Step:        "payment_made",
		}); err != nil {
			return err
		}
		if err := s.escrow.Fund(ctx, tx, order.ID); err != nil {
			return err
		}

		order.Status = enums.OrderStatusPaid
		order.Version++
		paid = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paid, nil
}

// Complete closes a paid order and releases its escrow.
func (s *service) Complete(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var completed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, orderID)
		if err != nil {
			return err
		}
		// Permissive mode completes from any state, matching the legacy
		// behavior the flag preserves.
		if s.cfg.CompleteRequiresPaid && order.Status != enums.OrderStatusPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot complete order in status %s", order.Status))
		}

		ok, err := repo.UpdateStatusCAS(ctx, order.ID, enums.OrderStatusCompleted, order.Version)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order completed")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order was modified concurrently")
		}

		from := order.Status
		reason := "delivered"
		if err := s.appendHistory(ctx, repo, order.ID, &from, enums.OrderStatusCompleted, &reason); err != nil {
			return err
		}

		// Orders completed before payment (legacy permissive mode) have no
		// escrow to release.
		if order.Status == enums.OrderStatusPaid {
			if err := s.escrow.Release(ctx, tx, order.ID); err != nil {
				return err
			}
		}

		order.Status = enums.OrderStatusCompleted
		order.Version++
		completed = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return completed, nil
}

// Cancel marks the order cancelled, refunds its most recent captured payment
// if one exists, and refunds whatever the escrow already holds.
func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if reason == "" {
		reason = "cancelled_by_user"
	}

	var cancelled *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot cancel order in status %s", order.Status))
		}

		ok, err := repo.UpdateStatusCAS(ctx, order.ID, enums.OrderStatusCancelled, order.Version)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order cancelled")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order was modified concurrently")
		}

		from := order.Status
		if err := s.appendHistory(ctx, repo, order.ID, &from, enums.OrderStatusCancelled, &reason); err != nil {
			return err
		}

		if order.Status == enums.OrderStatusPaid {
			payment, err := s.payments.LatestCaptured(ctx, order.ID)
			switch {
			case err == nil:
				if err := s.payments.RefundPayment(ctx, tx, payment.ID); err != nil {
					return err
				}
			case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
				// Nothing captured; nothing to refund.
			default:
				return err
			}
			if err := s.escrow.RefundHeld(ctx, tx, order.ID); err != nil {
				return err
			}
		}

		order.Status = enums.OrderStatusCancelled
		order.Version++
		cancelled = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// Get returns the order with its full history, payment ledger and escrow.
func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindDetail(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	detail := &OrderDetail{
		Order:    *order,
		History:  order.History,
		Payments: order.Payments,
	}
	esc, err := s.escrow.FindByOrderID(ctx, orderID)
	if err == nil {
		detail.Escrow = esc
	} else if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return nil, err
	}
	return detail, nil
}

// ListByBuyer pages through a buyer's orders, newest first.
func (s *service) ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	list, err := s.repo.ListByBuyer(ctx, buyerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) load(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) appendHistory(ctx context.Context, repo Repository, orderID uuid.UUID, from *enums.OrderStatus, to enums.OrderStatus, reason *string) error {
	if err := repo.AppendHistory(ctx, &models.OrderStatusHistory{
		OrderID:    orderID,
		FromStatus: from,
		ToStatus:   to,
		Reason:     reason,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
	}
	return nil
}
