package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestOpenAppliesMigrations(t *testing.T) {
	client, err := Open(context.Background(), Config{Path: filepath.Join(t.TempDir(), "scg.db"), Migrate: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	for _, table := range []string{"sessions", "month_inputs", "results", "monthly_published_price", "consolidation"} {
		assert.True(t, client.DB().Migrator().HasTable(table), table)
	}
	require.NoError(t, client.Ping(context.Background()))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	client, err := Open(context.Background(), Config{Path: filepath.Join(t.TempDir(), "scg.db"), Migrate: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	boom := errors.New("boom")
	err = client.WithTx(context.Background(), func(tx *gorm.DB) error {
		require.NoError(t, tx.Exec(`INSERT INTO consolidation (period, notes, created_at, updated_at) VALUES ('Q1', '', datetime('now'), datetime('now'))`).Error)
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, client.DB().Table("consolidation").Count(&count).Error)
	assert.Zero(t, count)
}

func TestUniquePeriodConstraint(t *testing.T) {
	client, err := Open(context.Background(), Config{Path: filepath.Join(t.TempDir(), "scg.db"), Migrate: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	insert := `INSERT INTO consolidation (period, notes, created_at, updated_at) VALUES ('Q1', '', datetime('now'), datetime('now'))`
	require.NoError(t, client.DB().Exec(insert).Error)
	err = client.DB().Exec(insert).Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(context.Background(), Config{}, nil)
	assert.Error(t, err)
}
