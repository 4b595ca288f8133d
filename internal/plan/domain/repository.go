package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	ListActive(ctx context.Context, db *gorm.DB) ([]Plan, error)
	FindActiveByName(ctx context.Context, db *gorm.DB, name string) (*Plan, error)
	DeleteAll(ctx context.Context, db *gorm.DB) error
	Insert(ctx context.Context, db *gorm.DB, plan *Plan) error
	SetActive(ctx context.Context, db *gorm.DB, name string, active bool) (bool, error)
}
