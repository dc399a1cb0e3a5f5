package pagination

import (
	"github.com/SscSPs/bank_ledger/internal/core/domain"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize clamps a requested page and page size to usable values.
// Page numbers start at 1.
func Normalize(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// Offset returns the number of rows to skip for a normalized page.
func Offset(page, pageSize int) int {
	return (page - 1) * pageSize
}

// NewPagination builds the pagination block for a page over total rows.
func NewPagination(page, pageSize int, total int64) domain.Pagination {
	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return domain.Pagination{
		CurrentPage:       page,
		PageSize:          pageSize,
		TotalPages:        totalPages,
		TotalTransactions: total,
		HasNextPage:       page < totalPages,
		HasPrevPage:       page > 1,
	}
}
