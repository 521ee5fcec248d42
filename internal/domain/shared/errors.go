package shared

// DomainError is an error carrying a stable machine-readable code. Services
// return these directly or wrapped; the HTTP layer recovers the code with
// errors.As and maps it to a status and response body.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string { return e.Message }

// NewDomainError builds a DomainError from a code and a human-readable
// message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// Sentinel errors shared by every domain.
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "The requested resource does not exist")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "A resource with the same identity already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "The provided input is invalid")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "The resource was changed by a concurrent update")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Authentication is required for this action")
	ErrForbidden           = NewDomainError("FORBIDDEN", "You do not have access to this resource")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "The operation is not allowed in the current state")
)
