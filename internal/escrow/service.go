package escrow

import (
	"context"
	"fmt"

	"github.com/davidorozcoq/mercadito-backend/internal/events"
	"github.com/davidorozcoq/mercadito-backend/pkg/db/models"
	"github.com/davidorozcoq/mercadito-backend/pkg/enums"
	pkgerrors "github.com/davidorozcoq/mercadito-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultOpenStep is the audit step written when the caller does not name the
// originating action.
const DefaultOpenStep = "escrow_opened"

const (
	// ResultSuccess and ResultFailure are the audit trail's result values.
	ResultSuccess = "success"
	ResultFailure = "failure"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ledgerAppender mirrors escrow audit facts into the analytics ledger.
type ledgerAppender interface {
	AppendInTx(ctx context.Context, tx *gorm.DB, draft events.EventDraft) (uuid.UUID, error)
}

// Service drives the escrow state machine. All mutating tx-scoped methods are
// invoked by the order workflow; EmitStep is also exposed over HTTP.
type Service interface {
	Create(ctx context.Context, tx *gorm.DB, input CreateInput) (*models.Escrow, error)
	Fund(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	SetStatus(ctx context.Context, tx *gorm.DB, escrowID uuid.UUID, to enums.EscrowStatus, step, result string) error
	Release(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	RefundHeld(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	EmitStep(ctx context.Context, orderID uuid.UUID, step, result string) error
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Escrow, error)
}

// CreateInput captures the data a new escrow requires. Step names the action
// that opened the escrow and becomes its first audit fact.
type CreateInput struct {
	OrderID     uuid.UUID
	Provider    string
	AmountCents int64
	Step        string
}

type service struct {
	repo   Repository
	tx     txRunner
	ledger ledgerAppender
}

// NewService wires an escrow service with the required dependencies.
func NewService(repo Repository, tx txRunner, ledger ledgerAppender) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("escrow repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger appender required")
	}
	return &service{repo: repo, tx: tx, ledger: ledger}, nil
}

// Create inserts the order's escrow in status initiated and writes its first
// audit fact. Creating twice is a safe no-op returning the existing row.
func (s *service) Create(ctx context.Context, tx *gorm.DB, input CreateInput) (*models.Escrow, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	step := input.Step
	if step == "" {
		step = DefaultOpenStep
	}
	provider := input.Provider
	if provider == "" {
		provider = "mock"
	}

	repo := s.repo.WithTx(tx)
	if existing, err := repo.FindByOrderID(ctx, input.OrderID); err == nil {
		return existing, nil
	} else if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up escrow")
	}

	row := &models.Escrow{
		OrderID:     input.OrderID,
		Provider:    provider,
		AmountCents: input.AmountCents,
		Status:      enums.EscrowStatusInitiated,
	}
	if err := repo.Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create escrow")
	}
	if err := s.appendStep(ctx, tx, row, step, ResultSuccess); err != nil {
		return nil, err
	}
	return row, nil
}

// Fund moves the escrow to funded. Funding an already-funded escrow is a safe
// no-op so retrying callers never double-credit.
func (s *service) Fund(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	row, err := s.loadByOrder(ctx, repo, orderID)
	if err != nil {
		return err
	}
	if row.Status == enums.EscrowStatusFunded {
		return nil
	}
	return s.transition(ctx, tx, row, enums.EscrowStatusFunded, "payment_made", ResultSuccess)
}

// SetStatus applies one transition from the allowed graph and, when a step is
// given, appends the audit fact. Disallowed edges fail with a state conflict.
func (s *service) SetStatus(ctx context.Context, tx *gorm.DB, escrowID uuid.UUID, to enums.EscrowStatus, step, result string) error {
	if !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid escrow status %q", to))
	}
	repo := s.repo.WithTx(tx)
	row, err := repo.FindByID(ctx, escrowID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "escrow not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load escrow")
	}
	return s.transition(ctx, tx, row, to, step, result)
}

// Release moves a funded escrow to released when an order completes.
func (s *service) Release(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	row, err := s.loadByOrder(ctx, repo, orderID)
	if err != nil {
		return err
	}
	return s.transition(ctx, tx, row, enums.EscrowStatusReleased, "funds_released", ResultSuccess)
}

// RefundHeld moves a funded escrow to refunded during cancellation.
func (s *service) RefundHeld(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	row, err := s.loadByOrder(ctx, repo, orderID)
	if err != nil {
		return err
	}
	return s.transition(ctx, tx, row, enums.EscrowStatusRefunded, "funds_refunded", ResultSuccess)
}

// EmitStep records one audit fact against the order's escrow and mirrors it
// into the analytics ledger. Both writes commit together or not at all.
func (s *service) EmitStep(ctx context.Context, orderID uuid.UUID, step, result string) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if step == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "step required")
	}
	if result == "" {
		result = ResultSuccess
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := s.loadByOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		return s.appendStep(ctx, tx, row, step, result)
	})
}

func (s *service) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Escrow, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.loadByOrder(ctx, s.repo, orderID)
}

func (s *service) loadByOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Escrow, error) {
	row, err := repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "escrow not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load escrow")
	}
	return row, nil
}

func (s *service) transition(ctx context.Context, tx *gorm.DB, row *models.Escrow, to enums.EscrowStatus, step, result string) error {
	if !row.Status.CanTransitionTo(to) {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("escrow cannot move from %s to %s", row.Status, to))
	}

	repo := s.repo.WithTx(tx)
	ok, err := repo.UpdateStatusCAS(ctx, row.ID, to, row.Version)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update escrow status")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "escrow was modified concurrently")
	}
	row.Status = to
	row.Version++

	if step == "" {
		return nil
	}
	return s.appendStep(ctx, tx, row, step, result)
}

func (s *service) appendStep(ctx context.Context, tx *gorm.DB, row *models.Escrow, step, result string) error {
	repo := s.repo.WithTx(tx)
	if err := repo.AppendEvent(ctx, &models.EscrowEvent{
		EscrowID: row.ID,
		Step:     step,
		Result:   result,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append escrow event")
	}

	orderID := row.OrderID
	stepCopy := step
	if _, err := s.ledger.AppendInTx(ctx, tx, events.EventDraft{
		EventType:  "escrow.step",
		OrderID:    &orderID,
		Step:       &stepCopy,
		Properties: map[string]any{"result": result},
	}); err != nil {
		return err
	}
	return nil
}
