package rewards

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/memalerts/memalerts-backend/pkg/db/models"
	"github.com/memalerts/memalerts-backend/pkg/enums"
)

// EventRepository manages persistence for the external reward ledger.
type EventRepository interface {
	WithTx(tx *gorm.DB) EventRepository
	InsertIfAbsent(ctx context.Context, event *models.ExternalRewardEvent) (bool, error)
	FindByProviderEvent(ctx context.Context, provider enums.Provider, providerEventID string) (*models.ExternalRewardEvent, error)
	MarkClaimed(ctx context.Context, id uuid.UUID, userID uuid.UUID) error
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository returns a ledger repository bound to the provided database.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) WithTx(tx *gorm.DB) EventRepository {
	if tx == nil {
		return r
	}
	return &eventRepository{db: tx}
}

// InsertIfAbsent writes the ledger row unless the (provider, provider_event_id)
// pair already exists. Returns false when the row was a re-delivery.
func (r *eventRepository) InsertIfAbsent(ctx context.Context, event *models.ExternalRewardEvent) (bool, error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_event_id"}},
			DoNothing: true,
		}).
		Create(event)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *eventRepository) FindByProviderEvent(ctx context.Context, provider enums.Provider, providerEventID string) (*models.ExternalRewardEvent, error) {
	var event models.ExternalRewardEvent
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_event_id = ?", provider, providerEventID).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) MarkClaimed(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.ExternalRewardEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":         enums.RewardStatusClaimed,
			"linked_user_id": userID,
		}).Error
}
