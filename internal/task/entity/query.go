package entity

import "math"

// Sortable fields, by their JSON name.
const (
	SortCreatedAt = "createdAt"
	SortUpdatedAt = "updatedAt"
	SortDueDate   = "dueDate"
	SortTitle     = "title"
	SortStatus    = "status"
	SortPriority  = "priority"
)

// SortKey is one ordering criterion.
type SortKey struct {
	Field string
	Desc  bool
}

// ListQuery selects one page of a user's tasks. All filters are AND-ed; Tags
// matches tasks carrying at least one of the listed tags.
type ListQuery struct {
	UserID   string
	Search   string
	Status   Status
	Priority Priority
	Tags     []string
	Sort     []SortKey
	Page     int
	Limit    int
}

// Skip is the number of matching tasks before the requested page. A page too
// far out to be represented saturates at math.MaxInt, which lies past the end
// of every result.
func (q ListQuery) Skip() int {
	if q.Page < 1 || q.Limit < 1 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}

// Pagination describes where a page sits in the full result.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// NewPagination computes the page count as ceil(total/limit).
func NewPagination(page, limit int, total int64) Pagination {
	var pages int64
	if limit > 0 {
		pages = (total + int64(limit) - 1) / int64(limit)
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

// TaskPage is the list result.
type TaskPage struct {
	Tasks      []Task     `json:"tasks"`
	Pagination Pagination `json:"pagination"`
}
