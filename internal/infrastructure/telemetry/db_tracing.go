package telemetry

import (
	"errors"
	"time"

	"github.com/pharmanet/backend/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const queryStartKey = "pharma:query_start"

// DBInstrumentation adds otelgorm spans plus a duration histogram and a
// slow query warning to a gorm.DB.
type DBInstrumentation struct {
	slowThreshold time.Duration
	logFullSQL    bool
	tracing       bool
	duration      *Histogram
	logger        *zap.Logger
}

// NewDBInstrumentation builds the instrumentation from telemetry config
func NewDBInstrumentation(cfg config.TelemetryConfig, meter metric.Meter, logger *zap.Logger) (*DBInstrumentation, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "pharma_db_query_duration_seconds",
		Description: "Duration of database statements",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	threshold := cfg.DBSlowQueryThresh
	if threshold <= 0 {
		threshold = 200 * time.Millisecond
	}
	return &DBInstrumentation{
		slowThreshold: threshold,
		logFullSQL:    cfg.DBLogFullSQL,
		tracing:       cfg.Enabled && cfg.DBTraceEnabled,
		duration:      duration,
		logger:        logger,
	}, nil
}

// Register installs the plugin and the timing callbacks on db
func (d *DBInstrumentation) Register(db *gorm.DB) error {
	if d.tracing {
		opts := []otelgorm.Option{otelgorm.WithDBName("postgresql")}
		if !d.logFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return err
		}
	}

	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("pharma:before_create", d.before),
		cb.Query().Before("gorm:query").Register("pharma:before_query", d.before),
		cb.Update().Before("gorm:update").Register("pharma:before_update", d.before),
		cb.Delete().Before("gorm:delete").Register("pharma:before_delete", d.before),
		cb.Row().Before("gorm:row").Register("pharma:before_row", d.before),
		cb.Raw().Before("gorm:raw").Register("pharma:before_raw", d.before),
		cb.Create().After("gorm:create").Register("pharma:after_create", d.after("create")),
		cb.Query().After("gorm:query").Register("pharma:after_query", d.after("select")),
		cb.Update().After("gorm:update").Register("pharma:after_update", d.after("update")),
		cb.Delete().After("gorm:delete").Register("pharma:after_delete", d.after("delete")),
		cb.Row().After("gorm:row").Register("pharma:after_row", d.after("row")),
		cb.Raw().After("gorm:raw").Register("pharma:after_raw", d.after("raw")),
	)
}

func (d *DBInstrumentation) before(db *gorm.DB) {
	db.InstanceSet(queryStartKey, time.Now())
}

func (d *DBInstrumentation) after(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(queryStartKey)
		if !ok {
			return
		}
		start, ok := v.(time.Time)
		if !ok {
			return
		}
		elapsed := time.Since(start)
		ctx := db.Statement.Context

		d.duration.RecordDuration(ctx, elapsed,
			AttrDBOperation.String(operation),
			AttrDBTable.String(db.Statement.Table),
		)
		if elapsed < d.slowThreshold {
			return
		}

		span := trace.SpanFromContext(ctx)
		if span.IsRecording() {
			span.SetAttributes(attribute.Bool("db.slow_query", true))
			span.AddEvent("slow_query", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
			))
		}
		fields := []zap.Field{
			zap.String("operation", operation),
			zap.String("table", db.Statement.Table),
			zap.Duration("elapsed", elapsed),
			zap.Int64("rows", db.Statement.RowsAffected),
		}
		if d.logFullSQL {
			fields = append(fields, zap.String("sql", db.Statement.SQL.String()))
		}
		d.logger.Warn("Slow query", fields...)
	}
}
