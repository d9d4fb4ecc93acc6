package escrow

import (
	"context"

	"github.com/davidorozcoq/mercadito-backend/pkg/db/models"
	"github.com/davidorozcoq/mercadito-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistence for escrows and their audit events. Status
// writes are guarded by the optimistic version column.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, escrow *models.Escrow) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Escrow, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Escrow, error)
	UpdateStatusCAS(ctx context.Context, id uuid.UUID, to enums.EscrowStatus, version int64) (bool, error)
	AppendEvent(ctx context.Context, event *models.EscrowEvent) error
	ListEvents(ctx context.Context, escrowID uuid.UUID) ([]models.EscrowEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an escrow repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, escrow *models.Escrow) error {
	return r.db.WithContext(ctx).Create(escrow).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Escrow, error) {
	var row models.Escrow
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Escrow, error) {
	var row models.Escrow
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) UpdateStatusCAS(ctx context.Context, id uuid.UUID, to enums.EscrowStatus, version int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Escrow{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]any{
			"status":  to,
			"version": version + 1,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) AppendEvent(ctx context.Context, event *models.EscrowEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListEvents(ctx context.Context, escrowID uuid.UUID) ([]models.EscrowEvent, error) {
	var rows []models.EscrowEvent
	if err := r.db.WithContext(ctx).
		Where("escrow_id = ?", escrowID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
