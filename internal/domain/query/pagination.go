package query

// Pagination carries 1-indexed offset pagination parameters for list queries.
type Pagination struct {
	Page  int
	Limit int
}

// Offset returns the number of rows to skip for the current page.
func (p Pagination) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// PageInfo describes the page a paginated response belongs to.
type PageInfo struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// NewPageInfo computes page metadata for a total row count.
// total_pages is ceil(total/limit); page 1 never has a previous page and the
// last page never has a next one.
func NewPageInfo(p Pagination, total int64) PageInfo {
	totalPages := 0
	if p.Limit > 0 {
		totalPages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return PageInfo{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
		HasPrev:    p.Page > 1,
	}
}
