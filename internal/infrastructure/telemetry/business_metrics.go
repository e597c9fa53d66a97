package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when a nil meter is passed to NewBusinessMetrics
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// SnapshotSource reports point-in-time counts read at collection time
type SnapshotSource interface {
	CountOrdersByStatus(ctx context.Context) (map[string]int64, error)
	CountOpenCarts(ctx context.Context) (int64, error)
}

// BusinessMetrics counts stock ledger and order workflow activity.
// It satisfies the workflow and low-stock recorder interfaces of the
// inventory application package.
type BusinessMetrics struct {
	logger *zap.Logger

	reservations *Counter
	reservedQty  *Counter
	releases     *Counter
	releasedQty  *Counter
	rejections   *Counter
	merges       *Counter
	transitions  *Counter
	lowStock     *Counter

	registration metric.Registration
}

// NewBusinessMetrics registers the pharma_* instruments on meter. When
// source is non-nil, order and cart gauges are observed on every collection.
func NewBusinessMetrics(meter metric.Meter, source SnapshotSource, logger *zap.Logger) (*BusinessMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	bm := &BusinessMetrics{logger: logger}

	counters := []struct {
		dst        **Counter
		name, desc string
		unit       string
	}{
		{&bm.reservations, "pharma_stock_reservations_total", "Successful stock reservations", "{reservation}"},
		{&bm.reservedQty, "pharma_stock_reserved_units_total", "Units taken from stock", "{unit}"},
		{&bm.releases, "pharma_stock_releases_total", "Stock releases back to sellers", "{release}"},
		{&bm.releasedQty, "pharma_stock_released_units_total", "Units returned to stock", "{unit}"},
		{&bm.rejections, "pharma_stock_rejections_total", "Reservations refused for insufficient stock", "{rejection}"},
		{&bm.merges, "pharma_stock_merges_total", "Buyer stock merges on delivery", "{merge}"},
		{&bm.transitions, "pharma_order_transitions_total", "Order status transitions", "{transition}"},
		{&bm.lowStock, "pharma_low_stock_alerts_total", "Low-stock alert thresholds crossed", "{alert}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(meter, c.name, c.desc, c.unit)
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	if source != nil {
		if err := bm.observe(meter, source); err != nil {
			return nil, err
		}
	}
	return bm, nil
}

func (bm *BusinessMetrics) observe(meter metric.Meter, source SnapshotSource) error {
	orders, err := meter.Int64ObservableGauge("pharma_orders",
		metric.WithDescription("Orders by status"),
		metric.WithUnit("{order}"))
	if err != nil {
		return err
	}
	carts, err := meter.Int64ObservableGauge("pharma_open_carts",
		metric.WithDescription("Carts that are still open"),
		metric.WithUnit("{cart}"))
	if err != nil {
		return err
	}

	bm.registration, err = meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		byStatus, err := source.CountOrdersByStatus(ctx)
		if err != nil {
			bm.logger.Warn("Failed to collect order counts", zap.Error(err))
		}
		for status, n := range byStatus {
			o.ObserveInt64(orders, n, metric.WithAttributes(AttrToStatus.String(status)))
		}
		open, err := source.CountOpenCarts(ctx)
		if err != nil {
			bm.logger.Warn("Failed to collect open cart count", zap.Error(err))
			return nil
		}
		o.ObserveInt64(carts, open)
		return nil
	}, orders, carts)
	return err
}

// RecordOrderTransition counts an order moving from one status to another
func (bm *BusinessMetrics) RecordOrderTransition(ctx context.Context, from, to string) {
	bm.transitions.Inc(ctx, AttrFromStatus.String(from), AttrToStatus.String(to))
}

// RecordStockReservation counts a successful reservation and its units
func (bm *BusinessMetrics) RecordStockReservation(ctx context.Context, source string, quantity int) {
	bm.reservations.Inc(ctx, AttrSource.String(source))
	bm.reservedQty.Add(ctx, int64(quantity), AttrSource.String(source))
}

// RecordStockRelease counts a release and its units
func (bm *BusinessMetrics) RecordStockRelease(ctx context.Context, source string, quantity int) {
	bm.releases.Inc(ctx, AttrSource.String(source))
	bm.releasedQty.Add(ctx, int64(quantity), AttrSource.String(source))
}

// RecordStockRejection counts a reservation refused for lack of stock
func (bm *BusinessMetrics) RecordStockRejection(ctx context.Context, source string) {
	bm.rejections.Inc(ctx, AttrSource.String(source))
}

// RecordStockMerge counts a delivered line landing in the buyer's stock
func (bm *BusinessMetrics) RecordStockMerge(ctx context.Context, created bool, quantity int) {
	result := "merged"
	if created {
		result = "created"
	}
	bm.merges.Add(ctx, 1, AttrMergeResult.String(result))
}

// RecordLowStockAlert counts an alert whose threshold was crossed
func (bm *BusinessMetrics) RecordLowStockAlert(ctx context.Context, ownerID string) {
	bm.lowStock.Inc(ctx, AttrOwnerID.String(ownerID))
}

// Stop unregisters the gauge callback
func (bm *BusinessMetrics) Stop() error {
	if bm.registration == nil {
		return nil
	}
	return bm.registration.Unregister()
}
