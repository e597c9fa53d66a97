package persistence

import (
	"testing"

	"github.com/pharmanet/backend/internal/domain/shared"
	"github.com/pharmanet/backend/internal/infrastructure/persistence/models"
	"github.com/pharmanet/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestSortable_Resolve(t *testing.T) {
	tests := []struct {
		name       string
		field, dir string
		column     string
		desc       bool
	}{
		{"empty defaults to newest first", "", "", "created_at", true},
		{"whitelisted column", "quantity_on_hand", "asc", "quantity_on_hand", false},
		{"direction is case insensitive", "name", "  ASC ", "name", false},
		{"unknown direction is descending", "name", "sideways", "name", true},
		{"common column", "updated_at", "desc", "updated_at", true},
		{"trimmed column", "  expiry_date ", "asc", "expiry_date", false},
		{"column of another table", "closed_at", "asc", "created_at", false},
		{"column names are case sensitive", "NAME", "", "created_at", true},
		{"injection in field", "name; DROP TABLE stock_items;--", "asc", "created_at", false},
		{"injection in direction", "name", "ASC; DROP TABLE orders", "name", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			column, desc := stockItemSort.resolve(tt.field, tt.dir)
			assert.Equal(t, tt.column, column)
			assert.Equal(t, tt.desc, desc)
		})
	}
}

func TestSortable_ListBuildsQuotedOrder(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	dry := db.Session(&gorm.Session{DryRun: true})

	stmt := cartSort.list(dry.Model(&models.CartModel{}), shared.Filter{
		OrderBy: "total_amount", OrderDir: "asc", Page: 3, PageSize: 20,
	}).Find(&[]models.CartModel{}).Statement

	sql := stmt.SQL.String()
	assert.Contains(t, sql, "ORDER BY `total_amount`,`id` LIMIT ? OFFSET ?")
	assert.Subset(t, stmt.Vars, []any{20, 40})
}

func TestSortable_ListWithoutPaging(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	dry := db.Session(&gorm.Session{DryRun: true})

	stmt := orderSort.list(dry.Model(&models.OrderModel{}), shared.Filter{OrderBy: "id"}).
		Find(&[]models.OrderModel{}).Statement

	sql := stmt.SQL.String()
	assert.Contains(t, sql, "ORDER BY `id` DESC")
	assert.NotContains(t, sql, "LIMIT")
}
