package handler

import "github.com/pharmanet/backend/internal/interfaces/http/dto"

// The types below only describe the dto.Response envelope to swag. Handlers
// write dto.Response directly.

// APIResponse is the envelope of a successful call carrying T
// @Description Envelope with a typed data field; meta is set on paginated lists
type APIResponse[T any] struct {
	Success bool           `json:"success" example:"true"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse is the envelope of a failed call
// @Description Envelope with error.code set to one of the documented error codes
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error"`
}
