package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Insert reports false when the authorization code is already stored.
	Insert(ctx context.Context, db *gorm.DB, card *Card) (bool, error)
	ListActive(ctx context.Context, db *gorm.DB, entityID snowflake.ID) ([]Card, error)
	CountActive(ctx context.Context, db *gorm.DB, entityID snowflake.ID) (int64, error)
	FindActive(ctx context.Context, db *gorm.DB, entityID, cardID snowflake.ID) (*Card, error)
	FindDefault(ctx context.Context, db *gorm.DB, entityID snowflake.ID) (*Card, error)
	// FindPromotable returns the oldest active card other than excludeID.
	FindPromotable(ctx context.Context, db *gorm.DB, entityID, excludeID snowflake.ID) (*Card, error)
	ClearDefault(ctx context.Context, db *gorm.DB, entityID snowflake.ID, now time.Time) error
	MarkDefault(ctx context.Context, db *gorm.DB, entityID, cardID snowflake.ID, now time.Time) (bool, error)
	Deactivate(ctx context.Context, db *gorm.DB, entityID, cardID snowflake.ID, now time.Time) (bool, error)
}
