package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	entitlementdomain "github.com/smallbiznis/invoicepadi/internal/entitlement/domain"
	plandomain "github.com/smallbiznis/invoicepadi/internal/plan/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() entitlementdomain.Repository {
	return &repo{}
}

func (r *repo) LoadSnapshot(ctx context.Context, db *gorm.DB, entityID snowflake.ID) (*entitlementdomain.SnapshotRow, error) {
	var row entitlementdomain.SnapshotRow
	err := db.WithContext(ctx).Raw(
		`SELECT e.id, e.email, e.subscription_plan, e.subscription_status,
		        e.subscription_start_date, e.subscription_expiry,
		        e.invoices_created, e.customers_created, e.team_members_count,
		        p.id AS plan_id, p.name AS plan_name, p.display_name AS plan_display_name,
		        p.description AS plan_description, p.price AS plan_price,
		        p.currency AS plan_currency, p.billing_cycle AS plan_billing_cycle,
		        p.max_invoices AS plan_max_invoices, p.max_customers AS plan_max_customers,
		        p.max_team_members AS plan_max_team_members, p.features AS plan_features,
		        p.benefits AS plan_benefits, p.is_popular AS plan_is_popular
		 FROM entities e
		 LEFT JOIN plans p
		   ON p.name = COALESCE(NULLIF(e.subscription_plan, ''), ?)
		  AND p.is_active = TRUE
		 WHERE e.id = ?
		 LIMIT 1`,
		plandomain.PlanFree,
		entityID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}
