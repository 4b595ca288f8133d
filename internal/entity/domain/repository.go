package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entity *Entity) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Entity, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*Entity, error)
	LockByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Entity, error)

	// InitializeSubscription assigns a plan only when none is set.
	InitializeSubscription(ctx context.Context, db *gorm.DB, id snowflake.ID, sub Subscription, now time.Time) (bool, error)
	UpdateSubscription(ctx context.Context, db *gorm.DB, id snowflake.ID, sub Subscription, now time.Time) (bool, error)
	// ExpireIfLapsed moves an entity to the fallback plan when its expiry is at or before now.
	ExpireIfLapsed(ctx context.Context, db *gorm.DB, id snowflake.ID, fallbackPlan string, now time.Time) (bool, error)

	IncrementCounter(ctx context.Context, db *gorm.DB, id snowflake.ID, column UsageColumn, amount int64) (bool, error)
	// IncrementCounterWithin increments only while the result stays within limit.
	IncrementCounterWithin(ctx context.Context, db *gorm.DB, id snowflake.ID, column UsageColumn, amount, limit int64) (bool, error)
	GetCounters(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Counters, error)

	ListRenewalDue(ctx context.Context, db *gorm.DB, after, until time.Time) ([]Entity, error)
	ListLapsed(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]Entity, error)
}
