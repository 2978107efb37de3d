package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/wellslab/s4m-api/internal/logger"
	"github.com/wellslab/s4m-api/internal/types"
)

var (
	dbOnce sync.Once
	db     *gorm.DB
	dbErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	return logger.NewNop()
}

// DB returns a process-wide in-memory SQLite database with the metadata
// schema migrated. Tests isolate themselves by running inside Tx.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dbOnce.Do(func() {
		db, dbErr = gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
			Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
		})
		if dbErr != nil {
			return
		}
		dbErr = db.AutoMigrate(
			&types.Dataset{},
			&types.Sample{},
			&types.User{},
		)
	})

	if dbErr != nil {
		tb.Fatalf("failed to init test db: %v", dbErr)
	}
	return db
}

func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}

// SeedDataset inserts a dataset record, filling name and title from the id
// when they are empty.
func SeedDataset(tb testing.TB, ctx context.Context, tx *gorm.DB, d *types.Dataset) *types.Dataset {
	tb.Helper()
	if d.Name == "" {
		d.Name = fmt.Sprintf("dataset-%d", d.DatasetID)
	}
	if d.Title == "" {
		d.Title = fmt.Sprintf("Dataset %d", d.DatasetID)
	}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed dataset: %v", err)
	}
	return d
}

// SeedSample inserts a sample record, deriving the sample id from the
// dataset id when it is empty.
func SeedSample(tb testing.TB, ctx context.Context, tx *gorm.DB, s *types.Sample, n int) *types.Sample {
	tb.Helper()
	if s.SampleID == "" {
		s.SampleID = fmt.Sprintf("%d_%d", s.DatasetID, n)
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed sample: %v", err)
	}
	return s
}

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, username, passwordHash string) *types.User {
	tb.Helper()
	u := &types.User{Username: username, Password: passwordHash}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}
