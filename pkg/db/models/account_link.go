package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/memalerts/memalerts-backend/pkg/enums"
)

// AccountLink ties an external provider account id to a memalerts user. Rows
// are written by the OAuth link flow; the reward core only reads them and
// reacts to new links by sweeping escrowed grants.
type AccountLink struct {
	ID                uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID            uuid.UUID      `gorm:"column:user_id;type:uuid;not null;index"`
	Provider          enums.Provider `gorm:"column:provider;type:provider_enum;not null;uniqueIndex:ux_account_links_provider_account"`
	ProviderAccountID string         `gorm:"column:provider_account_id;not null;uniqueIndex:ux_account_links_provider_account"`
	CreatedAt         time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (AccountLink) TableName() string { return "account_links" }
