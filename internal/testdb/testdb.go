// Package testdb opens throwaway SQLite databases with the club schema for tests.
// Production runs on PostgreSQL with SQL migrations; tests use AutoMigrate on the same
// models so they exercise the real GORM queries without a database server.
package testdb

import (
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/trentd187/badminton-club/internal/database"
	"github.com/trentd187/badminton-club/internal/models"
)

// Open creates a fresh database file in t.TempDir and migrates every model into it.
// The pool is limited to one connection so concurrent test goroutines queue instead of
// failing with "database is locked".
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "club.db") + "?_busy_timeout=5000&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), database.Config())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}
