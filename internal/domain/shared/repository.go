package shared

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the base interface for all persistence accessors
type Repository[T any] interface {
	Get(ctx context.Context, id uuid.UUID) (*T, error)
	List(ctx context.Context, opts ListOptions) ([]T, error)
	Count(ctx context.Context, filters map[string]any) (int64, error)
	Create(ctx context.Context, entity *T) error
	Save(ctx context.Context, entity *T) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ListOptions represents query options for list operations. Filters combine
// with AND; a slice value becomes an IN clause. Field names that do not
// exist on the model are ignored, so the remaining criteria still apply.
type ListOptions struct {
	Offset    int
	Limit     int
	OrderBy   string
	OrderDesc bool
	Filters   map[string]any
}

// DefaultListOptions returns list options with default values
func DefaultListOptions() ListOptions {
	return ListOptions{
		Limit:     20,
		OrderBy:   "created_at",
		OrderDesc: true,
		Filters:   make(map[string]any),
	}
}

// BulkUpdate addresses a single record within a batch update.
type BulkUpdate struct {
	ID      uuid.UUID
	Changes map[string]any
}

// Paginated is one page of results plus the totals needed to page further.
type Paginated[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginated assembles a page and derives the total page count.
func NewPaginated[T any](items []T, total int64, page, pageSize int) Paginated[T] {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (int(total) + pageSize - 1) / pageSize
	}
	return Paginated[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
