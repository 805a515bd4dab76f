package twitch

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/memalerts/memalerts-backend/pkg/db/models"
)

// RedemptionRepository persists legacy redemption audit rows.
type RedemptionRepository interface {
	WithTx(tx *gorm.DB) RedemptionRepository
	Create(ctx context.Context, redemption *models.Redemption) error
}

type redemptionRepository struct {
	db *gorm.DB
}

// NewRedemptionRepository returns a redemption repository bound to the provided database.
func NewRedemptionRepository(db *gorm.DB) RedemptionRepository {
	return &redemptionRepository{db: db}
}

func (r *redemptionRepository) WithTx(tx *gorm.DB) RedemptionRepository {
	if tx == nil {
		return r
	}
	return &redemptionRepository{db: tx}
}

func (r *redemptionRepository) Create(ctx context.Context, redemption *models.Redemption) error {
	if redemption.ID == uuid.Nil {
		redemption.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(redemption).Error
}
