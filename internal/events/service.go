package events

import (
	"context"
	"fmt"
	"time"

	"github.com/davidorozcoq/mercadito-backend/pkg/db/models"
	pkgerrors "github.com/davidorozcoq/mercadito-backend/pkg/errors"
	"github.com/davidorozcoq/mercadito-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultSessionID marks rows produced by the server itself rather than a
// client session.
const DefaultSessionID = "srv"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines ledger ingestion operations.
type Service interface {
	InsertBatch(ctx context.Context, drafts []EventDraft) ([]uuid.UUID, error)
	AppendInTx(ctx context.Context, tx *gorm.DB, draft EventDraft) (uuid.UUID, error)
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.Event, error)
}

// EventDraft is one producer-supplied ledger entry before normalization.
type EventDraft struct {
	EventType  string        `json:"event_type"`
	UserID     *uuid.UUID    `json:"user_id"`
	SessionID  string        `json:"session_id"`
	ListingID  *uuid.UUID    `json:"listing_id"`
	OrderID    *uuid.UUID    `json:"order_id"`
	ChatID     *uuid.UUID    `json:"chat_id"`
	Step       *string       `json:"step"`
	Properties types.JSONMap `json:"properties"`
	OccurredAt *time.Time    `json:"occurred_at"`
}

type service struct {
	repo         Repository
	tx           txRunner
	maxBatchSize int
	now          func() time.Time
}

// NewService wires an events service with the provided repository and runner.
func NewService(repo Repository, tx txRunner, maxBatchSize int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("events repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if maxBatchSize <= 0 {
		maxBatchSize = 500
	}
	return &service{
		repo:         repo,
		tx:           tx,
		maxBatchSize: maxBatchSize,
		now:          time.Now,
	}, nil
}

// InsertBatch validates and appends a batch of drafts in one transaction. The
// whole batch fails if any draft is invalid; partial inserts never happen.
func (s *service) InsertBatch(ctx context.Context, drafts []EventDraft) ([]uuid.UUID, error) {
	if len(drafts) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch must not be empty")
	}
	if len(drafts) > s.maxBatchSize {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("batch exceeds maximum size of %d", s.maxBatchSize))
	}

	rows := make([]*models.Event, 0, len(drafts))
	for i, draft := range drafts {
		row, err := s.normalize(draft)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("event %d", i))
		}
		rows = append(rows, row)
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateBatch(ctx, rows); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert event batch")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return ids, nil
}

// AppendInTx writes one event inside the caller's transaction. Used for dual
// writes where a domain mutation and its ledger fact must commit together.
func (s *service) AppendInTx(ctx context.Context, tx *gorm.DB, draft EventDraft) (uuid.UUID, error) {
	row, err := s.normalize(draft)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "event draft")
	}
	if err := s.repo.WithTx(tx).CreateBatch(ctx, []*models.Event{row}); err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append event")
	}
	return row.ID, nil
}

func (s *service) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.Event, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	rows, err := s.repo.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list events")
	}
	return rows, nil
}

func (s *service) normalize(draft EventDraft) (*models.Event, error) {
	if draft.EventType == "" {
		return nil, fmt.Errorf("event_type is required")
	}
	if err := validateProperties(draft.EventType, draft.Properties); err != nil {
		return nil, err
	}

	sessionID := draft.SessionID
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	// occurred_at defaults to ingestion time; producer timestamps are
	// normalized to UTC because they are the authoritative ordering key.
	occurredAt := s.now().UTC()
	if draft.OccurredAt != nil {
		occurredAt = draft.OccurredAt.UTC()
	}

	row := &models.Event{
		ID:         uuid.New(),
		EventType:  draft.EventType,
		UserID:     draft.UserID,
		SessionID:  sessionID,
		ListingID:  draft.ListingID,
		OrderID:    draft.OrderID,
		ChatID:     draft.ChatID,
		Step:       draft.Step,
		OccurredAt: occurredAt,
	}
	if draft.Properties != nil {
		props := draft.Properties
		row.Properties = &props
	}
	return row, nil
}
