package rewards

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/memalerts/memalerts-backend/pkg/db/models"
	"github.com/memalerts/memalerts-backend/pkg/enums"
)

// GrantRepository manages persistence for escrowed coin grants.
type GrantRepository interface {
	WithTx(tx *gorm.DB) GrantRepository
	Create(ctx context.Context, grant *models.PendingCoinGrant) error
	ListUnclaimed(ctx context.Context, provider enums.Provider, providerAccountID string, limit int) ([]models.PendingCoinGrant, error)
	Claim(ctx context.Context, id uuid.UUID, userID uuid.UUID, at time.Time) (bool, error)
	CountUnclaimedOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type grantRepository struct {
	db *gorm.DB
}

// NewGrantRepository returns a grant repository bound to the provided database.
func NewGrantRepository(db *gorm.DB) GrantRepository {
	return &grantRepository{db: db}
}

func (r *grantRepository) WithTx(tx *gorm.DB) GrantRepository {
	if tx == nil {
		return r
	}
	return &grantRepository{db: tx}
}

func (r *grantRepository) Create(ctx context.Context, grant *models.PendingCoinGrant) error {
	if grant.ID == uuid.Nil {
		grant.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(grant).Error
}

func (r *grantRepository) ListUnclaimed(ctx context.Context, provider enums.Provider, providerAccountID string, limit int) ([]models.PendingCoinGrant, error) {
	var grants []models.PendingCoinGrant
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_account_id = ? AND claimed_at IS NULL", provider, providerAccountID).
		Order("created_at ASC").
		Limit(limit).
		Find(&grants).Error
	if err != nil {
		return nil, err
	}
	return grants, nil
}

// Claim stamps claimed_at only while the grant is still unclaimed. Returns
// false when a concurrent claimer won the race.
func (r *grantRepository) Claim(ctx context.Context, id uuid.UUID, userID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PendingCoinGrant{}).
		Where("id = ? AND claimed_at IS NULL", id).
		Updates(map[string]any{
			"claimed_at":         at,
			"claimed_by_user_id": userID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *grantRepository) CountUnclaimedOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PendingCoinGrant{}).
		Where("claimed_at IS NULL AND created_at < ?", cutoff).
		Count(&count).Error
	return count, err
}
