package handler

import "github.com/apibase/backend/internal/interfaces/http/dto"

// APIResponse is the envelope every JSON endpoint returns. The generic
// parameter names the payload type so swag can emit a per-endpoint schema.
// @Description Response envelope with a typed data field
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse is the envelope with no data, as produced for failed
// requests and by the panic recovery middleware.
// @Description Error response envelope
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}
