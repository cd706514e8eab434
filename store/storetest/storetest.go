// Package storetest builds throwaway stores for tests.
package storetest

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/jenkinph/procedure-passport/database"
	"github.com/jenkinph/procedure-passport/logger"
	"github.com/jenkinph/procedure-passport/store"
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	return logger.Nop()
}

// DB opens a private in-memory sqlite database with the schema migrated.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(tb, err)
	sqlDB, err := db.DB()
	require.NoError(tb, err)
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(tb, database.Migrate(db))
	return db
}

func Gorm(tb testing.TB) store.Store {
	tb.Helper()
	return store.NewGormStore(DB(tb), Logger(tb))
}

func Sheet(tb testing.TB) store.Store {
	tb.Helper()
	table, err := store.NewFileTable(tb.TempDir())
	require.NoError(tb, err)
	return store.NewSheetStore(table, Logger(tb))
}

// Seeded returns s with the built-in catalog loaded.
func Seeded(tb testing.TB, s store.Store) store.Store {
	tb.Helper()
	seed, err := database.LoadCatalogSeed("")
	require.NoError(tb, err)
	_, err = database.Seed(context.Background(), s, seed, Logger(tb))
	require.NoError(tb, err)
	return s
}

// Backends lists every store implementation under a name usable in t.Run.
func Backends() map[string]func(testing.TB) store.Store {
	return map[string]func(testing.TB) store.Store{
		"gorm":  Gorm,
		"sheet": Sheet,
	}
}
