package testutils

import (
	"inkwell/internal/db"
	"inkwell/internal/models"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens a private in-memory SQLite database with the full schema.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB))
	return gormDB
}

// SetupMockDB returns a postgres-dialect gorm handle backed by sqlmock.
func SetupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	dialector := postgres.New(postgres.Config{
		Conn:       sqlDB,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	return gormDB, mock
}

func SetupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func CreateUser(t *testing.T, gormDB *gorm.DB, username, fullName string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Email: username + "@example.com", FullName: fullName}
	require.NoError(t, gormDB.Create(user).Error)
	return user
}

func CreateAdmin(t *testing.T, gormDB *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Email: username + "@example.com", IsAdmin: true}
	require.NoError(t, gormDB.Create(user).Error)
	return user
}

func CreatePost(t *testing.T, gormDB *gorm.DB, slug string) *models.Post {
	t.Helper()
	post := &models.Post{Title: slug, Slug: slug, IsPublished: true}
	require.NoError(t, gormDB.Create(post).Error)
	return post
}
