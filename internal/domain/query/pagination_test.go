package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPageInfo(t *testing.T) {
	tests := []struct {
		name           string
		page           int
		limit          int
		total          int64
		wantTotalPages int
		wantHasNext    bool
		wantHasPrev    bool
	}{
		{
			name:           "first page of several",
			page:           1,
			limit:          10,
			total:          35,
			wantTotalPages: 4,
			wantHasNext:    true,
			wantHasPrev:    false,
		},
		{
			name:           "middle page",
			page:           2,
			limit:          10,
			total:          35,
			wantTotalPages: 4,
			wantHasNext:    true,
			wantHasPrev:    true,
		},
		{
			name:           "last page exactly full",
			page:           2,
			limit:          10,
			total:          20,
			wantTotalPages: 2,
			wantHasNext:    false,
			wantHasPrev:    true,
		},
		{
			name:           "last partial page",
			page:           2,
			limit:          10,
			total:          15,
			wantTotalPages: 2,
			wantHasNext:    false,
			wantHasPrev:    true,
		},
		{
			name:           "no rows",
			page:           1,
			limit:          10,
			total:          0,
			wantTotalPages: 0,
			wantHasNext:    false,
			wantHasPrev:    false,
		},
		{
			name:           "single page",
			page:           1,
			limit:          100,
			total:          3,
			wantTotalPages: 1,
			wantHasNext:    false,
			wantHasPrev:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := NewPageInfo(Pagination{Page: tt.page, Limit: tt.limit}, tt.total)
			assert.Equal(t, tt.page, info.Page)
			assert.Equal(t, tt.limit, info.Limit)
			assert.Equal(t, tt.total, info.Total)
			assert.Equal(t, tt.wantTotalPages, info.TotalPages)
			assert.Equal(t, tt.wantHasNext, info.HasNext)
			assert.Equal(t, tt.wantHasPrev, info.HasPrev)
		})
	}
}

func TestPaginationOffset(t *testing.T) {
	assert.Equal(t, 0, Pagination{Page: 1, Limit: 10}.Offset())
	assert.Equal(t, 10, Pagination{Page: 2, Limit: 10}.Offset())
	assert.Equal(t, 40, Pagination{Page: 5, Limit: 10}.Offset())
	assert.Equal(t, 0, Pagination{Page: 0, Limit: 10}.Offset())
}
