package errors

import "errors"

var (
	// Profile errors
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidUserID   = errors.New("invalid user ID")

	// Validation errors
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrInvalidLatitude    = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude   = errors.New("longitude must be between -180 and 180")
	ErrInvalidRadius      = errors.New("radius must be between 1 and 10 kilometers")

	// Location errors
	ErrUnparseableLocation = errors.New("stored location could not be parsed")
	ErrNoLocation          = errors.New("no location available")

	// Rate limit errors
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrTooManyRequests   = errors.New("too many requests")

	// Refresh errors
	ErrRefreshThrottled = errors.New("refresh throttled")

	// WebSocket errors
	ErrWebSocketClosed    = errors.New("websocket connection closed")
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrViewNotAttached    = errors.New("no map view attached for user")

	// Storage errors
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrDataNotFound       = errors.New("data not found")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(err error, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: statusCode,
	}
}
