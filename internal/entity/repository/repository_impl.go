package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	entitydomain "github.com/smallbiznis/invoicepadi/internal/entity/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() entitydomain.Repository {
	return &repo{}
}

const entityColumns = `id, name, slug, email, phone, password_hash, business_type, address, vat_rate,
	subscription_plan, subscription_status, subscription_start_date, subscription_expiry,
	invoices_created, customers_created, team_members_count, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entity *entitydomain.Entity) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO entities (`+entityColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entity.ID,
		entity.Name,
		entity.Slug,
		entity.Email,
		entity.Phone,
		entity.PasswordHash,
		entity.BusinessType,
		entity.Address,
		entity.VATRate,
		entity.SubscriptionPlan,
		entity.SubscriptionStatus,
		entity.SubscriptionStartDate,
		entity.SubscriptionExpiry,
		entity.InvoicesCreated,
		entity.CustomersCreated,
		entity.TeamMembersCount,
		entity.CreatedAt,
		entity.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*entitydomain.Entity, error) {
	var entity entitydomain.Entity
	err := db.WithContext(ctx).Raw(
		`SELECT `+entityColumns+` FROM entities WHERE id = ? LIMIT 1`,
		id,
	).Scan(&entity).Error
	if err != nil {
		return nil, err
	}
	if entity.ID == 0 {
		return nil, nil
	}
	return &entity, nil
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*entitydomain.Entity, error) {
	var entity entitydomain.Entity
	err := db.WithContext(ctx).Raw(
		`SELECT `+entityColumns+` FROM entities WHERE email = ? LIMIT 1`,
		email,
	).Scan(&entity).Error
	if err != nil {
		return nil, err
	}
	if entity.ID == 0 {
		return nil, nil
	}
	return &entity, nil
}

// LockByID takes a row lock for the rest of the transaction. sqlite drops
// the FOR UPDATE clause and relies on its single writer instead.
func (r *repo) LockByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*entitydomain.Entity, error) {
	var entity entitydomain.Entity
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Limit(1).
		Find(&entity).Error
	if err != nil {
		return nil, err
	}
	if entity.ID == 0 {
		return nil, nil
	}
	return &entity, nil
}

func (r *repo) InitializeSubscription(ctx context.Context, db *gorm.DB, id snowflake.ID, sub entitydomain.Subscription, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE entities
		 SET subscription_plan = ?, subscription_status = ?, subscription_start_date = ?,
		     subscription_expiry = ?, updated_at = ?
		 WHERE id = ? AND subscription_plan = ''`,
		sub.Plan,
		sub.Status,
		sub.StartDate,
		sub.Expiry,
		now,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) UpdateSubscription(ctx context.Context, db *gorm.DB, id snowflake.ID, sub entitydomain.Subscription, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE entities
		 SET subscription_plan = ?, subscription_status = ?, subscription_start_date = ?,
		     subscription_expiry = ?, updated_at = ?
		 WHERE id = ?`,
		sub.Plan,
		sub.Status,
		sub.StartDate,
		sub.Expiry,
		now,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ExpireIfLapsed(ctx context.Context, db *gorm.DB, id snowflake.ID, fallbackPlan string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE entities
		 SET subscription_plan = ?, subscription_status = ?, subscription_expiry = NULL, updated_at = ?
		 WHERE id = ? AND subscription_expiry IS NOT NULL AND subscription_expiry <= ?`,
		fallbackPlan,
		entitydomain.StatusExpired,
		now,
		id,
		now,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) IncrementCounter(ctx context.Context, db *gorm.DB, id snowflake.ID, column entitydomain.UsageColumn, amount int64) (bool, error) {
	if !column.Valid() {
		return false, fmt.Errorf("invalid usage column %q", column)
	}
	res := db.WithContext(ctx).Exec(
		`UPDATE entities SET `+string(column)+` = `+string(column)+` + ? WHERE id = ?`,
		amount,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) IncrementCounterWithin(ctx context.Context, db *gorm.DB, id snowflake.ID, column entitydomain.UsageColumn, amount, limit int64) (bool, error) {
	if !column.Valid() {
		return false, fmt.Errorf("invalid usage column %q", column)
	}
	res := db.WithContext(ctx).Exec(
		`UPDATE entities SET `+string(column)+` = `+string(column)+` + ?
		 WHERE id = ? AND `+string(column)+` + ? <= ?`,
		amount,
		id,
		amount,
		limit,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) GetCounters(ctx context.Context, db *gorm.DB, id snowflake.ID) (*entitydomain.Counters, error) {
	var row struct {
		ID               snowflake.ID
		InvoicesCreated  int64
		CustomersCreated int64
		TeamMembersCount int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT id, invoices_created, customers_created, team_members_count
		 FROM entities WHERE id = ? LIMIT 1`,
		id,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &entitydomain.Counters{
		InvoicesCreated:  row.InvoicesCreated,
		CustomersCreated: row.CustomersCreated,
		TeamMembersCount: row.TeamMembersCount,
	}, nil
}

func (r *repo) ListRenewalDue(ctx context.Context, db *gorm.DB, after, until time.Time) ([]entitydomain.Entity, error) {
	var entities []entitydomain.Entity
	err := db.WithContext(ctx).Raw(
		`SELECT `+entityColumns+`
		 FROM entities
		 WHERE subscription_status = ?
		   AND subscription_expiry IS NOT NULL
		   AND subscription_expiry > ?
		   AND subscription_expiry <= ?
		 ORDER BY subscription_expiry ASC, id ASC`,
		entitydomain.StatusActive,
		after,
		until,
	).Scan(&entities).Error
	if err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *repo) ListLapsed(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]entitydomain.Entity, error) {
	if limit <= 0 {
		limit = 100
	}
	var entities []entitydomain.Entity
	err := db.WithContext(ctx).Raw(
		`SELECT `+entityColumns+`
		 FROM entities
		 WHERE subscription_expiry IS NOT NULL
		   AND subscription_expiry <= ?
		 ORDER BY subscription_expiry ASC, id ASC
		 LIMIT ?`,
		now,
		limit,
	).Scan(&entities).Error
	if err != nil {
		return nil, err
	}
	return entities, nil
}
