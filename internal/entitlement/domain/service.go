package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Service interface {
	Snapshot(ctx context.Context, entityID snowflake.ID) (*Snapshot, error)
	// SnapshotTx reads through the caller's transaction.
	SnapshotTx(ctx context.Context, tx *gorm.DB, entityID snowflake.ID) (*Snapshot, error)
	CanCreate(ctx context.Context, entityID snowflake.ID, resource Resource) (bool, error)
	IncrementUsage(ctx context.Context, entityID snowflake.ID, resource Resource, amount int64) (*Usage, error)
	BatchIncrementUsage(ctx context.Context, updates []UsageUpdate) (*BatchResult, error)
	// Reserve checks the ceiling and increments in one conditional write
	// inside tx. It fails with a LimitExceededError when the plan is full.
	Reserve(ctx context.Context, tx *gorm.DB, entityID snowflake.ID, resource Resource, amount int64) error
}

var (
	ErrInvalidResource = errors.New("invalid_resource")
	ErrNegativeAmount  = errors.New("negative_amount")
	ErrLimitExceeded   = errors.New("limit_exceeded")
)
