package repository

import (
	"context"

	plandomain "github.com/smallbiznis/invoicepadi/internal/plan/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() plandomain.Repository {
	return &repo{}
}

const planColumns = `id, name, display_name, description, price, currency, billing_cycle,
	max_invoices, max_customers, max_team_members, features, benefits,
	is_popular, is_active, created_at, updated_at`

func (r *repo) ListActive(ctx context.Context, db *gorm.DB) ([]plandomain.Plan, error) {
	var plans []plandomain.Plan
	err := db.WithContext(ctx).Raw(
		`SELECT `+planColumns+`
		 FROM plans
		 WHERE is_active = TRUE
		 ORDER BY price ASC, name ASC`,
	).Scan(&plans).Error
	if err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *repo) FindActiveByName(ctx context.Context, db *gorm.DB, name string) (*plandomain.Plan, error) {
	var plan plandomain.Plan
	err := db.WithContext(ctx).Raw(
		`SELECT `+planColumns+`
		 FROM plans
		 WHERE name = ? AND is_active = TRUE
		 LIMIT 1`,
		name,
	).Scan(&plan).Error
	if err != nil {
		return nil, err
	}
	if plan.ID == 0 {
		return nil, nil
	}
	return &plan, nil
}

func (r *repo) DeleteAll(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Exec(`DELETE FROM plans`).Error
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, plan *plandomain.Plan) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO plans (`+planColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		plan.ID,
		plan.Name,
		plan.DisplayName,
		plan.Description,
		plan.Price,
		plan.Currency,
		plan.BillingCycle,
		plan.MaxInvoices,
		plan.MaxCustomers,
		plan.MaxTeamMembers,
		plan.Features,
		plan.Benefits,
		plan.IsPopular,
		plan.IsActive,
		plan.CreatedAt,
		plan.UpdatedAt,
	).Error
}

func (r *repo) SetActive(ctx context.Context, db *gorm.DB, name string, active bool) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE plans SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE name = ?`,
		active,
		name,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
