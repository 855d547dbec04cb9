package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/mhorbach/weather-reminder/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SetupDB opens an in-memory sqlite database with the full schema migrated.
// Each call gets its own named database so concurrent handles never alias.
func SetupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	if err := gdb.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Subscription{},
		&models.City{},
		&models.SystemLog{},
	); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to access underlying DB: %v", err)
	}

	t.Cleanup(func() {
		if err := sqlDB.Close(); err != nil {
			t.Fatalf("failed to close database: %v", err)
		}
	})

	return gdb
}
