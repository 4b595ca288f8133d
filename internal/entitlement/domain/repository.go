package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// LoadSnapshot joins the entity with its active plan, resolving an unset
	// plan to the free plan. Returns nil when the entity does not exist.
	LoadSnapshot(ctx context.Context, db *gorm.DB, entityID snowflake.ID) (*SnapshotRow, error)
}
