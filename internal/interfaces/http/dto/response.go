package dto

import (
	"strings"
	"time"

	"github.com/apibase/backend/internal/domain/shared"
)

// Response is the envelope every JSON endpoint answers with. Success
// carries data and optional paging meta; failure carries ErrorInfo.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

// ErrorInfo is the error half of the envelope.
type ErrorInfo struct {
	Code      string             `json:"code"`
	Message   string             `json:"message"`
	Details   []ValidationDetail `json:"details,omitempty"`
	RequestID string             `json:"request_id,omitempty"`
	Help      string             `json:"help,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// ValidationDetail describes a single field validation failure
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Meta carries the paging counters for list responses.
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewSuccessResponse wraps data in a success envelope.
func NewSuccessResponse(data any) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

// NewSuccessResponseWithMeta wraps one page of a listing together with
// its paging counters.
func NewSuccessResponseWithMeta(data any, total int64, page, pageSize int) Response {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	totalPages := (int(total) + pageSize - 1) / pageSize
	return Response{
		Success: true,
		Data:    data,
		Meta: &Meta{
			Total:      total,
			Page:       page,
			PageSize:   pageSize,
			TotalPages: totalPages,
		},
	}
}

// NewErrorResponse creates an error response. The code is normalized to the
// standardized ERR_ form.
func NewErrorResponse(code, message string) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      NormalizeErrorCode(code),
			Message:   message,
			Timestamp: time.Now(),
		},
	}
}

// NewErrorResponseWithRequestID creates an error response carrying the
// request ID for correlation with logs
func NewErrorResponseWithRequestID(code, message, requestID string) Response {
	resp := NewErrorResponse(code, message)
	resp.Error.RequestID = requestID
	return resp
}

// NewValidationErrorResponse creates a validation error response with
// per-field details
func NewValidationErrorResponse(message, requestID string, details []ValidationDetail) Response {
	resp := NewErrorResponseWithRequestID(ErrCodeValidation, message, requestID)
	resp.Error.Details = details
	return resp
}

// NewErrorResponseWithHelp creates an error response with a link to
// further documentation
func NewErrorResponseWithHelp(code, message, requestID, help string) Response {
	resp := NewErrorResponseWithRequestID(code, message, requestID)
	resp.Error.Help = help
	return resp
}

// Pagination defaults applied when a list request leaves them unset.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListRequest is the query string shared by list endpoints.
type ListRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Search   string `form:"search"`
}

// DefaultListRequest is the listing a bare query string resolves to.
func DefaultListRequest() ListRequest {
	return ListRequest{
		Page:     DefaultPage,
		PageSize: DefaultPageSize,
		OrderBy:  "created_at",
		OrderDir: "desc",
	}
}

// Normalize clamps page and page_size into their valid ranges
func (r *ListRequest) Normalize() {
	if r.Page < 1 {
		r.Page = DefaultPage
	}
	if r.PageSize < 1 {
		r.PageSize = DefaultPageSize
	}
	if r.PageSize > MaxPageSize {
		r.PageSize = MaxPageSize
	}
}

// ToListOptions converts page-based request parameters into the offset-based
// options the repository layer takes. Ordering defaults to descending unless
// order_dir is explicitly "asc".
func (r ListRequest) ToListOptions() shared.ListOptions {
	r.Normalize()
	return shared.ListOptions{
		Offset:    (r.Page - 1) * r.PageSize,
		Limit:     r.PageSize,
		OrderBy:   r.OrderBy,
		OrderDesc: !strings.EqualFold(r.OrderDir, "asc"),
		Filters:   make(map[string]any),
	}
}

// IDRequest binds a UUID path parameter.
type IDRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// TimestampResponse embeds the audit timestamps models expose.
type TimestampResponse struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
