package persistence

import (
	"slices"
	"strings"

	"github.com/pharmanet/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sortable whitelists the columns a listing may be ordered by. Anything
// else, including injection attempts, falls back to created_at DESC.
type sortable []string

var (
	stockItemSort = sortable{"name", "quantity_on_hand", "public_price", "hospital_price", "expiry_date", "atc_code"}
	orderSort     = sortable{"status", "submitted_at", "shipped_at", "delivered_at"}
	cartSort      = sortable{"closed_at", "total_amount", "mode"}
)

var alwaysSortable = sortable{"id", "created_at", "updated_at"}

// resolve maps a requested field and direction to a safe column. Direction
// defaults to descending.
func (s sortable) resolve(field, dir string) (column string, desc bool) {
	column = strings.TrimSpace(field)
	if !slices.Contains(s, column) && !slices.Contains(alwaysSortable, column) {
		column = "created_at"
	}
	return column, !strings.EqualFold(strings.TrimSpace(dir), "asc")
}

// list applies ordering, then offset and limit when the filter is paginated.
// id breaks ties so pages never overlap.
func (s sortable) list(query *gorm.DB, filter shared.Filter) *gorm.DB {
	column, desc := s.resolve(filter.OrderBy, filter.OrderDir)
	query = query.Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: desc})
	if column != "id" {
		query = query.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: desc})
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query
}
