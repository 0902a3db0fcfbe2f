package db

import (
	"inkwell/internal/config"
	"inkwell/internal/models"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWithSQLite(t *testing.T) {
	cfg := &config.Config{
		DatabaseDriver: "sqlite",
		DatabaseURL:    filepath.Join(t.TempDir(), "inkwell.db"),
	}

	require.NoError(t, Init(cfg))
	t.Cleanup(func() {
		if sqlDB, err := DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
		DB = nil
	})

	for _, model := range []interface{}{&models.User{}, &models.Post{}, &models.Comment{}, &models.CommentLike{}, &models.Notification{}} {
		assert.True(t, DB.Migrator().HasTable(model))
	}
	assert.True(t, DB.Migrator().HasIndex(&models.CommentLike{}, "idx_comment_user_like"))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(&config.Config{DatabaseDriver: "oracle"})
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestSQLiteDSNEnablesForeignKeys(t *testing.T) {
	assert.Contains(t, sqliteDSN("x.db"), "_foreign_keys=on")
}
