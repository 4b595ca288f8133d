package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicepadi/internal/customer/domain"
	"github.com/smallbiznis/invoicepadi/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO customers (id, code, entity_id, name, email, phone, address, company_name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		customer.ID,
		customer.Code,
		customer.EntityID,
		customer.Name,
		customer.Email,
		customer.Phone,
		customer.Address,
		customer.CompanyName,
		customer.CreatedAt,
		customer.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, entityID, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, entity_id, name, email, phone, address, company_name, created_at, updated_at
		 FROM customers WHERE entity_id = ? AND id = ?`,
		entityID,
		id,
	).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, entityID snowflake.ID, filter domain.ListCustomerFilter, page pagination.Pagination) ([]domain.Customer, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Customer{}).
		Where("entity_id = ?", entityID)
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		like := "%" + search + "%"
		stmt = stmt.Where("(LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR code = ?)", like, like, search)
	}

	stmt, err := pagination.Apply(stmt, page)
	if err != nil {
		return nil, err
	}

	var customers []domain.Customer
	if err := stmt.Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}
