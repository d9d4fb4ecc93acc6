package orders

import (
	"context"

	"github.com/davidorozcoq/mercadito-backend/pkg/db/models"
	"github.com/davidorozcoq/mercadito-backend/pkg/enums"
	"github.com/davidorozcoq/mercadito-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for orders and their history.
// Status writes go through the optimistic version column; a plain update to
// the status field does not exist on purpose.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindDetail(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderList, error)
	UpdateStatusCAS(ctx context.Context, id uuid.UUID, to enums.OrderStatus, version int64) (bool, error)
	AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error
	ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error)
}
