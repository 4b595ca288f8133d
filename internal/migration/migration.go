package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	bankaccountdomain "github.com/smallbiznis/invoicepadi/internal/bankaccount/domain"
	carddomain "github.com/smallbiznis/invoicepadi/internal/card/domain"
	customerdomain "github.com/smallbiznis/invoicepadi/internal/customer/domain"
	entitydomain "github.com/smallbiznis/invoicepadi/internal/entity/domain"
	invoicedomain "github.com/smallbiznis/invoicepadi/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/invoicepadi/internal/payment/domain"
	plandomain "github.com/smallbiznis/invoicepadi/internal/plan/domain"
	"gorm.io/gorm"
)

// Models lists every table the services read and write. It backs the
// non-postgres path, which has no SQL migrations.
func Models() []any {
	return []any{
		&plandomain.Plan{},
		&entitydomain.Entity{},
		&customerdomain.Customer{},
		&carddomain.Card{},
		&bankaccountdomain.BankAccount{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceItem{},
		&paymentdomain.Transaction{},
		&paymentdomain.EventRecord{},
	}
}

// AutoMigrate creates the schema from the gorm models.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// RunMigrations applies the embedded postgres schema. Already applied
// versions are skipped.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}
