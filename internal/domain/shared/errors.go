package shared

import (
	"fmt"

	"github.com/google/uuid"
)

// Error codes carried by DomainError. The HTTP layer maps these to status codes.
const (
	CodeNotFound            = "NOT_FOUND"
	CodeAlreadyExists       = "ALREADY_EXISTS"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeInsufficientStock   = "INSUFFICIENT_STOCK"
	CodeOwnershipMismatch   = "OWNERSHIP_MISMATCH"
	CodeFeatureDisabled     = "FEATURE_DISABLED"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code, so callers can
// match the sentinels below with errors.Is regardless of message or details.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail returns a copy of the error carrying an extra detail entry
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Code: e.Code, Message: e.Message, Details: details}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrInvalidTransition   = NewDomainError(CodeInvalidTransition, "Status transition not allowed")
	ErrInsufficientStock   = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrOwnershipMismatch   = NewDomainError(CodeOwnershipMismatch, "Stock item is not owned by the expected account")
	ErrFeatureDisabled     = NewDomainError(CodeFeatureDisabled, "Feature is not configured")
)

// NewNotFoundError reports a missing resource by kind and id
func NewNotFoundError(resource string, id uuid.UUID) *DomainError {
	return &DomainError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %s not found", resource, id),
		Details: map[string]any{"resource": resource, "id": id.String()},
	}
}

// NewUnauthorizedError reports a caller acting outside its party role
func NewUnauthorizedError(action string, callerID uuid.UUID) *DomainError {
	return &DomainError{
		Code:    CodeUnauthorized,
		Message: fmt.Sprintf("caller %s is not allowed to %s", callerID, action),
		Details: map[string]any{"action": action, "caller_id": callerID.String()},
	}
}

// NewInvalidTransitionError reports a status change that the state machine rejects
func NewInvalidTransitionError(current, requested string) *DomainError {
	return &DomainError{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("cannot move from %s to %s", current, requested),
		Details: map[string]any{"current": current, "requested": requested},
	}
}

// NewInsufficientStockError reports a reservation that would drive stock negative
func NewInsufficientStockError(stockItemID uuid.UUID, available, requested int) *DomainError {
	return &DomainError{
		Code:    CodeInsufficientStock,
		Message: fmt.Sprintf("insufficient stock for item %s: available %d, requested %d", stockItemID, available, requested),
		Details: map[string]any{
			"stock_item_id": stockItemID.String(),
			"available":     available,
			"requested":     requested,
		},
	}
}

// NewOwnershipMismatchError reports a stock item owned by someone other than expected
func NewOwnershipMismatchError(stockItemID, expectedOwnerID, actualOwnerID uuid.UUID) *DomainError {
	return &DomainError{
		Code:    CodeOwnershipMismatch,
		Message: fmt.Sprintf("stock item %s belongs to %s, expected %s", stockItemID, actualOwnerID, expectedOwnerID),
		Details: map[string]any{
			"stock_item_id":     stockItemID.String(),
			"expected_owner_id": expectedOwnerID.String(),
			"actual_owner_id":   actualOwnerID.String(),
		},
	}
}

// NewInvalidInputError reports a rejected field value
func NewInvalidInputError(field, message string) *DomainError {
	return &DomainError{
		Code:    CodeInvalidInput,
		Message: message,
		Details: map[string]any{"field": field},
	}
}
