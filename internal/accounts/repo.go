package accounts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/memalerts/memalerts-backend/pkg/db/models"
	"github.com/memalerts/memalerts-backend/pkg/enums"
)

// LinkRepository manages provider-account-to-user links.
type LinkRepository interface {
	WithTx(tx *gorm.DB) LinkRepository
	Upsert(ctx context.Context, link *models.AccountLink) error
	FindUserID(ctx context.Context, provider enums.Provider, providerAccountID string) (*uuid.UUID, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.AccountLink, error)
}

type linkRepository struct {
	db *gorm.DB
}

// NewLinkRepository returns a link repository bound to the provided database.
func NewLinkRepository(db *gorm.DB) LinkRepository {
	return &linkRepository{db: db}
}

func (r *linkRepository) WithTx(tx *gorm.DB) LinkRepository {
	if tx == nil {
		return r
	}
	return &linkRepository{db: tx}
}

func (r *linkRepository) Upsert(ctx context.Context, link *models.AccountLink) error {
	if link.ID == uuid.Nil {
		link.ID = uuid.New()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_account_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "updated_at"}),
		}).
		Create(link).Error
}

// FindUserID resolves the linked memalerts user for a provider account, or
// nil when the account has not been linked yet.
func (r *linkRepository) FindUserID(ctx context.Context, provider enums.Provider, providerAccountID string) (*uuid.UUID, error) {
	var link models.AccountLink
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_account_id = ?", provider, providerAccountID).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	userID := link.UserID
	return &userID, nil
}

func (r *linkRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.AccountLink, error) {
	var links []models.AccountLink
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	return links, nil
}
