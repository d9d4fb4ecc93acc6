package escrow

import (
	"context"
	"testing"

	"github.com/davidorozcoq/mercadito-backend/internal/events"
	"github.com/davidorozcoq/mercadito-backend/pkg/db/models"
	"github.com/davidorozcoq/mercadito-backend/pkg/enums"
	pkgerrors "github.com/davidorozcoq/mercadito-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeRepository struct {
	escrows map[uuid.UUID]*models.Escrow
	events  []models.EscrowEvent
	casFail bool
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{escrows: map[uuid.UUID]*models.Escrow{}}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, escrow *models.Escrow) error {
	if escrow.ID == uuid.Nil {
		escrow.ID = uuid.New()
	}
	clone := *escrow
	f.escrows[escrow.ID] = &clone
	return nil
}

func (f *fakeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Escrow, error) {
	row, ok := f.escrows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *row
	return &clone, nil
}

func (f *fakeRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Escrow, error) {
	for _, row := range f.escrows {
		if row.OrderID == orderID {
			clone := *row
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) UpdateStatusCAS(ctx context.Context, id uuid.UUID, to enums.EscrowStatus, version int64) (bool, error) {
	row, ok := f.escrows[id]
	if f.casFail || !ok || row.Version != version {
		return false, nil
	}
	row.Status = to
	row.Version++
	return true, nil
}

func (f *fakeRepository) AppendEvent(ctx context.Context, event *models.EscrowEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeRepository) ListEvents(ctx context.Context, escrowID uuid.UUID) ([]models.EscrowEvent, error) {
	var out []models.EscrowEvent
	for _, e := range f.events {
		if e.EscrowID == escrowID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeLedger struct {
	drafts []events.EventDraft
}

func (f *fakeLedger) AppendInTx(ctx context.Context, tx *gorm.DB, draft events.EventDraft) (uuid.UUID, error) {
	f.drafts = append(f.drafts, draft)
	return uuid.New(), nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newTestService(t *testing.T, repo *fakeRepository, ledger *fakeLedger) Service {
	t.Helper()
	svc, err := NewService(repo, fakeTxRunner{}, ledger)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestCreateWritesFirstAuditFact(t *testing.T) {
	repo := newFakeRepository()
	ledger := &fakeLedger{}
	svc := newTestService(t, repo, ledger)
	orderID := uuid.New()

	row, err := svc.Create(context.Background(), nil, CreateInput{OrderID: orderID, AmountCents: 50000})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if row.Status != enums.EscrowStatusInitiated {
		t.Fatalf("expected initiated, got %s", row.Status)
	}

	facts, _ := repo.ListEvents(context.Background(), row.ID)
	if len(facts) != 1 {
		t.Fatalf("expected one audit fact, got %d", len(facts))
	}
	if facts[0].Step != DefaultOpenStep || facts[0].Result != ResultSuccess {
		t.Fatalf("unexpected first fact: %+v", facts[0])
	}
	if len(ledger.drafts) != 1 || ledger.drafts[0].EventType != "escrow.step" {
		t.Fatalf("first fact must be mirrored into the ledger: %+v", ledger.drafts)
	}
}

func TestCreateTwiceIsANoOp(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo, &fakeLedger{})
	orderID := uuid.New()

	first, err := svc.Create(context.Background(), nil, CreateInput{OrderID: orderID, AmountCents: 100})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	second, err := svc.Create(context.Background(), nil, CreateInput{OrderID: orderID, AmountCents: 100})
	if err != nil {
		t.Fatalf("second Create error: %v", err)
	}
	if first.ID != second.ID {
		t.Fatal("duplicate create must return the existing escrow")
	}
	if len(repo.escrows) != 1 {
		t.Fatalf("exactly one escrow per order, got %d", len(repo.escrows))
	}
}

func TestFundTransitionsAndIsIdempotent(t *testing.T) {
	repo := newFakeRepository()
	ledger := &fakeLedger{}
	svc := newTestService(t, repo, ledger)
	orderID := uuid.New()

	row, _ := svc.Create(context.Background(), nil, CreateInput{OrderID: orderID, AmountCents: 100})

	if err := svc.Fund(context.Background(), nil, orderID); err != nil {
		t.Fatalf("Fund error: %v", err)
	}
	if repo.escrows[row.ID].Status != enums.EscrowStatusFunded {
		t.Fatalf("expected funded, got %s", repo.escrows[row.ID].Status)
	}

	factsBefore := len(repo.events)
	if err := svc.Fund(context.Background(), nil, orderID); err != nil {
		t.Fatalf("re-funding a funded escrow must be a no-op, got %v", err)
	}
	if len(repo.events) != factsBefore {
		t.Fatal("no-op fund must not append audit facts")
	}
}

func TestTransitionGraphIsEnforced(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo, &fakeLedger{})
	orderID := uuid.New()

	row, _ := svc.Create(context.Background(), nil, CreateInput{OrderID: orderID, AmountCents: 100})

	// initiated cannot release
	err := svc.Release(context.Background(), nil, orderID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}

	_ = svc.Fund(context.Background(), nil, orderID)
	if err := svc.Release(context.Background(), nil, orderID); err != nil {
		t.Fatalf("funded escrow should release: %v", err)
	}

	// released cannot move back to funded
	err = svc.SetStatus(context.Background(), nil, row.ID, enums.EscrowStatusFunded, "", "")
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("backward move must be rejected, got %v", err)
	}
}

func TestStaleVersionIsRejected(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo, &fakeLedger{})
	orderID := uuid.New()

	_, _ = svc.Create(context.Background(), nil, CreateInput{OrderID: orderID, AmountCents: 100})

	// a concurrent writer wins the compare-and-swap
	repo.casFail = true
	err := svc.Fund(context.Background(), nil, orderID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("stale writer must be rejected, got %v", err)
	}
}

func TestEmitStepDualWrites(t *testing.T) {
	repo := newFakeRepository()
	ledger := &fakeLedger{}
	svc := newTestService(t, repo, ledger)
	orderID := uuid.New()

	row, _ := svc.Create(context.Background(), nil, CreateInput{OrderID: orderID, AmountCents: 100})
	factsBefore := len(repo.events)
	draftsBefore := len(ledger.drafts)

	if err := svc.EmitStep(context.Background(), orderID, "payment_made", ResultSuccess); err != nil {
		t.Fatalf("EmitStep error: %v", err)
	}

	facts, _ := repo.ListEvents(context.Background(), row.ID)
	if len(facts) != factsBefore+1 {
		t.Fatalf("expected one new audit fact, got %d", len(facts)-factsBefore)
	}
	if len(ledger.drafts) != draftsBefore+1 {
		t.Fatal("step must be mirrored into the analytics ledger")
	}
	mirrored := ledger.drafts[len(ledger.drafts)-1]
	if mirrored.OrderID == nil || *mirrored.OrderID != orderID {
		t.Fatal("mirrored event must be keyed by order id")
	}
	if mirrored.Properties["result"] != ResultSuccess {
		t.Fatalf("mirrored event must carry the result: %+v", mirrored.Properties)
	}
}

func TestEmitStepUnknownEscrow(t *testing.T) {
	svc := newTestService(t, newFakeRepository(), &fakeLedger{})
	err := svc.EmitStep(context.Background(), uuid.New(), "payment_made", ResultSuccess)
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
