package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

const reserveSQL = `UPDATE "stock_items" SET "quantity_on_hand"=quantity_on_hand - 5 WHERE id = 'a' AND quantity_on_hand >= 5`

func newObservedGorm(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), logs
}

func sqlFn(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestGormLogger_Options(t *testing.T) {
	l, _ := newObservedGorm(gormlogger.Warn, WithSlowThreshold(time.Second), WithIgnoreRecordNotFoundError(false))
	assert.Equal(t, time.Second, l.slowThreshold)
	assert.False(t, l.skipNotFound)

	changed, ok := l.LogMode(gormlogger.Info).(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Info, changed.level)
	assert.Equal(t, gormlogger.Warn, l.level)
}

func TestGormLogger_Trace(t *testing.T) {
	ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-7")
	ctx = WithCaller(ctx, "seller-1", "SELLER")

	t.Run("error is logged with request fields", func(t *testing.T) {
		l, logs := newObservedGorm(gormlogger.Warn)
		l.Trace(ctx, time.Now(), sqlFn(reserveSQL, 0), errors.New("deadlock detected"))

		entries := logs.FilterMessage("SQL error").All()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, reserveSQL, fields["sql"])
		assert.Equal(t, "req-7", fields["request_id"])
		assert.Equal(t, "seller-1", fields["caller_id"])
		assert.Equal(t, "deadlock detected", fields["error"])
	})

	t.Run("record not found is skipped by default", func(t *testing.T) {
		l, logs := newObservedGorm(gormlogger.Warn)
		l.Trace(ctx, time.Now(), sqlFn("SELECT 1", 0), gormlogger.ErrRecordNotFound)
		assert.Zero(t, logs.Len())

		l, logs = newObservedGorm(gormlogger.Warn, WithIgnoreRecordNotFoundError(false))
		l.Trace(ctx, time.Now(), sqlFn("SELECT 1", 0), gormlogger.ErrRecordNotFound)
		assert.Equal(t, 1, logs.Len())
	})

	t.Run("slow query warns", func(t *testing.T) {
		l, logs := newObservedGorm(gormlogger.Warn, WithSlowThreshold(time.Millisecond))
		l.Trace(ctx, time.Now().Add(-50*time.Millisecond), sqlFn(reserveSQL, 1), nil)

		entries := logs.FilterMessage("Slow SQL").All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		assert.Equal(t, int64(1), entries[0].ContextMap()["rows"])
	})

	t.Run("statements only at info", func(t *testing.T) {
		l, logs := newObservedGorm(gormlogger.Warn)
		l.Trace(ctx, time.Now(), sqlFn("SELECT 1", 1), nil)
		assert.Zero(t, logs.Len())

		l, logs = newObservedGorm(gormlogger.Info)
		l.Trace(ctx, time.Now(), sqlFn("SELECT 1", 1), nil)
		require.Equal(t, 1, logs.FilterMessage("SQL").Len())
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		l, logs := newObservedGorm(gormlogger.Silent)
		l.Trace(ctx, time.Now(), sqlFn("SELECT 1", 0), errors.New("boom"))
		l.Error(ctx, "boom %d", 1)
		assert.Zero(t, logs.Len())
	})
}

func TestGormLogger_Printf(t *testing.T) {
	l, logs := newObservedGorm(gormlogger.Info)
	l.Info(context.Background(), "migrated %d tables", 7)
	l.Warn(context.Background(), "slow %s", "startup")

	all := logs.All()
	require.Len(t, all, 2)
	assert.Equal(t, "migrated 7 tables", all[0].Message)
	assert.Equal(t, zapcore.WarnLevel, all[1].Level)
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel(""))
}
