package errors

import "errors"

func HTTPStatusCode(err error) int {
	if err == nil {
		return StatusInternalServerError
	}

	if GetErrorType(err) == ErrorTypeInvalidRequest {
		return StatusBadRequest
	}

	return StatusInternalServerError
}

// GetHumanReadableMessage returns the message that is safe to show an API client.
// Client errors carry their own message; persistence failures collapse to "DB error"
// and everything else to "Server error".
func GetHumanReadableMessage(err error) string {
	if err == nil {
		return MessageServerError
	}

	switch GetErrorType(err) {
	case ErrorTypeDatabaseError:
		return MessageDatabaseError
	case ErrorTypeInternalServerError, ErrorTypeUnknown:
		// Internal error strings never reach the client.
		return MessageServerError
	}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}

	return MessageServerError
}
