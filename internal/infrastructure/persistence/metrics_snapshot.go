package persistence

import (
	"context"

	"github.com/pharmanet/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormMetricsSnapshot answers the point-in-time counts behind the order and
// cart gauges
type GormMetricsSnapshot struct {
	db *gorm.DB
}

// NewGormMetricsSnapshot creates a new GormMetricsSnapshot
func NewGormMetricsSnapshot(db *gorm.DB) *GormMetricsSnapshot {
	return &GormMetricsSnapshot{db: db}
}

// CountOrdersByStatus groups every order by status
func (s *GormMetricsSnapshot) CountOrdersByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := s.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}

// CountOpenCarts counts carts that have not been checked out or cancelled
func (s *GormMetricsSnapshot) CountOpenCarts(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.CartModel{}).Where("closed = ?", false).Count(&n).Error
	return n, err
}
