package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicepadi/internal/bankaccount/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, account *domain.BankAccount) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO bank_accounts (id, entity_id, bank_code, bank_name, account_number, account_name,
			subaccount_code, percentage_charge, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.EntityID,
		account.BankCode,
		account.BankName,
		account.AccountNumber,
		account.AccountName,
		account.SubaccountCode,
		account.PercentageCharge,
		account.IsActive,
		account.CreatedAt,
		account.UpdatedAt,
	).Error
}

func (r *repo) FindActive(ctx context.Context, db *gorm.DB, entityID snowflake.ID) (*domain.BankAccount, error) {
	var account domain.BankAccount
	err := db.WithContext(ctx).Raw(
		`SELECT id, entity_id, bank_code, bank_name, account_number, account_name,
			subaccount_code, percentage_charge, is_active, created_at, updated_at
		 FROM bank_accounts
		 WHERE entity_id = ? AND is_active = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		entityID,
		true,
	).Scan(&account).Error
	if err != nil {
		return nil, err
	}
	if account.ID == 0 {
		return nil, nil
	}
	return &account, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, entityID snowflake.ID) ([]domain.BankAccount, error) {
	var accounts []domain.BankAccount
	err := db.WithContext(ctx).Raw(
		`SELECT id, entity_id, bank_code, bank_name, account_number, account_name,
			subaccount_code, percentage_charge, is_active, created_at, updated_at
		 FROM bank_accounts
		 WHERE entity_id = ?
		 ORDER BY created_at DESC, id DESC`,
		entityID,
	).Scan(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *repo) DeactivateAll(ctx context.Context, db *gorm.DB, entityID snowflake.ID, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE bank_accounts SET is_active = ?, updated_at = ? WHERE entity_id = ? AND is_active = ?`,
		false,
		updatedAt,
		entityID,
		true,
	).Error
}
