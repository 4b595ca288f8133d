package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, account *BankAccount) error
	FindActive(ctx context.Context, db *gorm.DB, entityID snowflake.ID) (*BankAccount, error)
	List(ctx context.Context, db *gorm.DB, entityID snowflake.ID) ([]BankAccount, error)
	DeactivateAll(ctx context.Context, db *gorm.DB, entityID snowflake.ID, updatedAt time.Time) error
}
