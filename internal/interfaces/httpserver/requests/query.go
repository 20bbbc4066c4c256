package requests

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"chat-insights-server/internal/domain/query"
	"chat-insights-server/internal/utils/platformerrors"
)

// DefaultDateWindow is how far back a list query reaches when the caller
// supplies no start date.
const DefaultDateWindow = 30 * 24 * time.Hour

// GetPaginationFromQuery parses page and limit query parameters. Page
// defaults to 1, limit to defaultLimit; limit outside [1, maxLimit] and
// non-numeric values are validation errors.
func GetPaginationFromQuery(reqCtx *gin.Context, defaultLimit, maxLimit int) (query.Pagination, error) {
	pagination := query.Pagination{Page: 1, Limit: defaultLimit}

	if pageStr := reqCtx.Query("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil || page < 1 {
			return query.Pagination{}, platformerrors.NewError(reqCtx.Request.Context(), platformerrors.LayerHandler, platformerrors.ErrorTypeValidation, "invalid page number", err)
		}
		pagination.Page = page
	}

	if limitStr := reqCtx.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > maxLimit {
			return query.Pagination{}, platformerrors.NewError(reqCtx.Request.Context(), platformerrors.LayerHandler, platformerrors.ErrorTypeValidation, "invalid limit number", err)
		}
		pagination.Limit = limit
	}

	return pagination, nil
}

// GetDateRangeFromQuery parses the optional start_date and end_date query
// parameters as RFC 3339 timestamps. end_date defaults to now and start_date
// to end_date minus the default window.
func GetDateRangeFromQuery(reqCtx *gin.Context) (time.Time, time.Time, error) {
	end := time.Now().UTC()
	if endStr := reqCtx.Query("end_date"); endStr != "" {
		parsed, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return time.Time{}, time.Time{}, platformerrors.NewError(reqCtx.Request.Context(), platformerrors.LayerHandler, platformerrors.ErrorTypeValidation, "invalid end_date, expected RFC 3339", err)
		}
		end = parsed
	}

	start := end.Add(-DefaultDateWindow)
	if startStr := reqCtx.Query("start_date"); startStr != "" {
		parsed, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return time.Time{}, time.Time{}, platformerrors.NewError(reqCtx.Request.Context(), platformerrors.LayerHandler, platformerrors.ErrorTypeValidation, "invalid start_date, expected RFC 3339", err)
		}
		start = parsed
	}

	return start, end, nil
}
