package postgres

import (
	"fmt"
	"strings"

	"github.com/dom/foodorder-backend/internal/domain"
	"github.com/dom/foodorder-backend/internal/repository"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqliteScheme = "sqlite://"

// NewConnection opens the store named by databaseURL. postgres:// URLs (and
// plain DSNs) use PostgreSQL; sqlite://<path> opens a local SQLite file.
func NewConnection(databaseURL string, logLevel logger.LogLevel) (*gorm.DB, error) {
	dialector, err := Dialector(databaseURL)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Dialector(databaseURL string) (gorm.Dialector, error) {
	switch {
	case databaseURL == "":
		return nil, fmt.Errorf("database url is empty")
	case strings.HasPrefix(databaseURL, sqliteScheme):
		path := strings.TrimPrefix(databaseURL, sqliteScheme)
		if path == "" {
			return nil, fmt.Errorf("sqlite url has no path")
		}
		return sqlite.Open(path), nil
	default:
		return postgres.Open(databaseURL), nil
	}
}

// Migrate creates or updates the tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Transaction{},
	)
}

func NewRepositories(db *gorm.DB) *repository.Repositories {
	return &repository.Repositories{
		User:        NewUserRepository(db),
		Transaction: NewTransactionRepository(db),
	}
}
