package rewards

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/memalerts/memalerts-backend/pkg/db/models"
)

// WalletRepository manages per-channel coin balances.
type WalletRepository interface {
	WithTx(tx *gorm.DB) WalletRepository
	Credit(ctx context.Context, userID, channelID uuid.UUID, delta int64) (int64, error)
	Balance(ctx context.Context, userID, channelID uuid.UUID) (int64, error)
}

type walletRepository struct {
	db *gorm.DB
}

// NewWalletRepository returns a wallet repository bound to the provided database.
func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{db: db}
}

func (r *walletRepository) WithTx(tx *gorm.DB) WalletRepository {
	if tx == nil {
		return r
	}
	return &walletRepository{db: tx}
}

// Credit upsert-increments the wallet balance and returns the new balance.
// The increment happens in the database so concurrent reward bursts for the
// same wallet never lose updates.
func (r *walletRepository) Credit(ctx context.Context, userID, channelID uuid.UUID, delta int64) (int64, error) {
	wallet := models.Wallet{
		ID:        uuid.New(),
		UserID:    userID,
		ChannelID: channelID,
		Balance:   delta,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "channel_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"balance": gorm.Expr("wallets.balance + ?", delta),
			}),
		}).
		Create(&wallet)
	if err.Error != nil {
		return 0, err.Error
	}
	return r.Balance(ctx, userID, channelID)
}

func (r *walletRepository) Balance(ctx context.Context, userID, channelID uuid.UUID) (int64, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND channel_id = ?", userID, channelID).
		First(&wallet).Error
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}
