// Package testutil provides in-memory stores for package tests.
package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/go-redis/redis/v8"
	"github.com/leadscout/backend/internal/database"
	"github.com/leadscout/backend/internal/models"
	"github.com/leadscout/backend/pkg/utils"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewTestDB opens a migrated in-memory SQLite database. A single connection
// keeps every query on the same in-memory database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), database.GormConfig(utils.NewNopLogger(), "info"))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// NewTestRedis starts a miniredis server and returns a client for it.
func NewTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

// CreateUser inserts a user with a placeholder password hash.
func CreateUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	return user
}
