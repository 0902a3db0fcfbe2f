package db

import (
	"fmt"
	"inkwell/internal/config"
	"inkwell/internal/models"
	"inkwell/internal/utils"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Open connects to the configured database. TranslateError is on so that unique and
// foreign-key violations come back as gorm.ErrDuplicatedKey / gorm.ErrForeignKeyViolated.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseURL)
	case "sqlite":
		dialector = sqlite.Open(sqliteDSN(cfg.DatabaseURL))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:         utils.GormLogger(200 * time.Millisecond),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.DatabaseDriver == "sqlite" {
		// SQLite allows a single writer; one connection avoids "database is locked".
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return gdb, nil
}

// sqliteDSN turns on foreign key enforcement, which SQLite leaves off by default.
func sqliteDSN(path string) string {
	return "file:" + path + "?_foreign_keys=on&_busy_timeout=5000"
}

// Migrate creates or updates the schema.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.CommentLike{},
		&models.Notification{},
	)
}

// Init opens the database, migrates it, and stores the handle in DB.
func Init(cfg *config.Config) error {
	gdb, err := Open(cfg)
	if err != nil {
		return err
	}
	utils.Logger.Info("Database connection established", zap.String("driver", cfg.DatabaseDriver))

	if err := Migrate(gdb); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	utils.Logger.Info("Database migration completed")

	DB = gdb
	return nil
}
