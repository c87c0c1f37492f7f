package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidState is returned when an operation targets an unknown project or user.
	ErrInvalidState = errors.New("invalid state: unknown project or user")
	// ErrStorageUnavailable is returned when the storage backend cannot be reached or timed out.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrLogNotFound is returned when a log entry does not exist.
	ErrLogNotFound = errors.New("log entry not found")
	// ErrProjectNotFound is returned when a project does not exist.
	ErrProjectNotFound = errors.New("project not found")
	// ErrProjectInactive is returned when starting a timer on a deactivated project.
	ErrProjectInactive = errors.New("project is not active")
	// ErrUserNotFound is returned when a user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidDuration is returned when a log duration is not positive.
	ErrInvalidDuration = errors.New("duration must be positive")
	// ErrInvalidDate is returned when a date key is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")
	// ErrInvalidKind is returned when a direct log entry is not MANUAL or PRESET.
	ErrInvalidKind = errors.New("log kind must be MANUAL or PRESET")
	// ErrForbidden is returned when the caller may not touch another user's data.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized is returned by clients when the server rejects the credentials.
	ErrUnauthorized = errors.New("unauthorized")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

var httpMappings = []struct {
	err    error
	status int
	code   string
}{
	{ErrInvalidState, http.StatusBadRequest, "INVALID_STATE"},
	{ErrStorageUnavailable, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE"},
	{ErrLogNotFound, http.StatusNotFound, "LOG_NOT_FOUND"},
	{ErrProjectNotFound, http.StatusNotFound, "PROJECT_NOT_FOUND"},
	{ErrProjectInactive, http.StatusConflict, "PROJECT_INACTIVE"},
	{ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{ErrInvalidDuration, http.StatusBadRequest, "INVALID_DURATION"},
	{ErrInvalidDate, http.StatusBadRequest, "INVALID_DATE"},
	{ErrInvalidKind, http.StatusBadRequest, "INVALID_KIND"},
	{ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
}

// MapErrorToHTTP maps domain errors to HTTP errors. Wrapped errors are matched with errors.Is.
func MapErrorToHTTP(err error) *HTTPError {
	for _, m := range httpMappings {
		if errors.Is(err, m.err) {
			return NewHTTPError(m.status, m.err.Error(), m.code)
		}
	}
	return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
}

// FromCode returns the sentinel behind a machine code produced by MapErrorToHTTP, or nil
// for codes it does not know.
func FromCode(code string) error {
	for _, m := range httpMappings {
		if m.code == code {
			return m.err
		}
	}
	return nil
}
