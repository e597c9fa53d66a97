package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pharmanet/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func pingMonitoredDatabase(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return &Database{DB: gdb}, mock
}

func TestDatabase_Ping(t *testing.T) {
	db, mock := pingMonitoredDatabase(t)

	mock.ExpectPing()
	assert.NoError(t, db.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.EqualError(t, db.Ping(context.Background()), "connection refused")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_PoolStatsAndClose(t *testing.T) {
	db, mock := pingMonitoredDatabase(t)

	stats, err := db.PoolStats()
	require.NoError(t, err)
	assert.Zero(t, stats.InUse)

	mock.ExpectClose()
	require.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_ConfigurePool(t *testing.T) {
	db, _ := pingMonitoredDatabase(t)

	require.NoError(t, db.configurePool(&config.DatabaseConfig{MaxOpenConns: 7, MaxIdleConns: 2}))
	stats, err := db.PoolStats()
	require.NoError(t, err)
	assert.Equal(t, 7, stats.MaxOpenConnections)
}

func unreachableConfig() *config.DatabaseConfig {
	return &config.DatabaseConfig{
		Host:         "127.0.0.1",
		Port:         1,
		User:         "pharmanet",
		Password:     "pharmanet",
		DBName:       "pharmanet",
		SSLMode:      "disable",
		MaxOpenConns: 2,
		MaxIdleConns: 1,
	}
}

func TestConnect_GivesUpAfterAttempts(t *testing.T) {
	start := time.Now()
	_, err := Connect(context.Background(), unreachableConfig(), ConnectOptions{
		Attempts: 2,
		Backoff:  10 * time.Millisecond,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable after 2 attempts")
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond, "waited between attempts")
}

func TestConnect_StopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := Connect(ctx, unreachableConfig(), ConnectOptions{Attempts: 100, Backoff: time.Second})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
