package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	carddomain "github.com/smallbiznis/invoicepadi/internal/card/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() carddomain.Repository {
	return &repo{}
}

const cardColumns = `id, entity_id, authorization_code, card_type, last4, exp_month, exp_year, bin, bank,
	country_code, brand, is_default, is_active, card_name, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, card *carddomain.Card) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO cards (`+cardColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (authorization_code) DO NOTHING`,
		card.ID,
		card.EntityID,
		card.AuthorizationCode,
		card.CardType,
		card.Last4,
		card.ExpMonth,
		card.ExpYear,
		card.Bin,
		card.Bank,
		card.CountryCode,
		card.Brand,
		card.IsDefault,
		card.IsActive,
		card.CardName,
		card.CreatedAt,
		card.UpdatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB, entityID snowflake.ID) ([]carddomain.Card, error) {
	var items []carddomain.Card
	err := db.WithContext(ctx).Raw(
		`SELECT `+cardColumns+`
		 FROM cards
		 WHERE entity_id = ? AND is_active = TRUE
		 ORDER BY is_default DESC, created_at DESC`,
		entityID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CountActive(ctx context.Context, db *gorm.DB, entityID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM cards WHERE entity_id = ? AND is_active = TRUE`,
		entityID,
	).Scan(&count).Error
	return count, err
}

func (r *repo) FindActive(ctx context.Context, db *gorm.DB, entityID, cardID snowflake.ID) (*carddomain.Card, error) {
	return r.findOne(ctx, db,
		`WHERE id = ? AND entity_id = ? AND is_active = TRUE`,
		cardID, entityID,
	)
}

func (r *repo) FindDefault(ctx context.Context, db *gorm.DB, entityID snowflake.ID) (*carddomain.Card, error) {
	return r.findOne(ctx, db,
		`WHERE entity_id = ? AND is_default = TRUE AND is_active = TRUE`,
		entityID,
	)
}

func (r *repo) FindPromotable(ctx context.Context, db *gorm.DB, entityID, excludeID snowflake.ID) (*carddomain.Card, error) {
	return r.findOne(ctx, db,
		`WHERE entity_id = ? AND id <> ? AND is_active = TRUE ORDER BY created_at ASC`,
		entityID, excludeID,
	)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, where string, args ...any) (*carddomain.Card, error) {
	var item carddomain.Card
	err := db.WithContext(ctx).Raw(
		`SELECT `+cardColumns+` FROM cards `+where+` LIMIT 1`,
		args...,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ClearDefault(ctx context.Context, db *gorm.DB, entityID snowflake.ID, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE cards
		 SET is_default = FALSE, updated_at = ?
		 WHERE entity_id = ? AND is_default = TRUE`,
		now,
		entityID,
	).Error
}

func (r *repo) MarkDefault(ctx context.Context, db *gorm.DB, entityID, cardID snowflake.ID, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE cards
		 SET is_default = TRUE, updated_at = ?
		 WHERE id = ? AND entity_id = ? AND is_active = TRUE`,
		now,
		cardID,
		entityID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) Deactivate(ctx context.Context, db *gorm.DB, entityID, cardID snowflake.ID, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE cards
		 SET is_active = FALSE, is_default = FALSE, updated_at = ?
		 WHERE id = ? AND entity_id = ? AND is_active = TRUE`,
		now,
		cardID,
		entityID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
