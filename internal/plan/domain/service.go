package domain

import (
	"context"
	"errors"
)

type FeatureFlag struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// Comparison is one plan row of the upgrade screen.
type Comparison struct {
	Plan      Plan          `json:"plan"`
	Features  []FeatureFlag `json:"features"`
	IsCurrent bool          `json:"is_current"`
	IsUpgrade bool          `json:"is_upgrade"`
}

type Service interface {
	ListActivePlans(ctx context.Context) ([]Plan, error)
	GetPlanByName(ctx context.Context, name string) (*Plan, error)
	Invalidate(name string)
	Reseed(ctx context.Context, defs []Definition) ([]Plan, error)
	SetActive(ctx context.Context, name string, active bool) error
	Compare(ctx context.Context, currentPlan string) ([]Comparison, error)
}

var (
	ErrPlanNotFound    = errors.New("plan_not_found")
	ErrInvalidPlanName = errors.New("invalid_plan_name")
	ErrEmptyCatalog    = errors.New("empty_plan_catalog")
)
