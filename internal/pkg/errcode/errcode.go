package errcode

import "net/http"

const (
	ErrUnknown = 10000000 + iota
	ErrUnauthorized
	ErrNotFound
	ErrInvalid
	ErrConflict
	ErrTooMany
	ErrInternal
	ErrInvalidFile
	ErrUploadFailed
	ErrTooLarge
	ErrNotReady
	ErrAIUnavailable
	ErrRenderFailed
)

var httpStatus = map[int]int{
	ErrUnauthorized:  http.StatusForbidden,
	ErrNotFound:      http.StatusNotFound,
	ErrInvalid:       http.StatusBadRequest,
	ErrConflict:      http.StatusConflict,
	ErrTooMany:       http.StatusTooManyRequests,
	ErrInternal:      http.StatusInternalServerError,
	ErrInvalidFile:   http.StatusBadRequest,
	ErrUploadFailed:  http.StatusInternalServerError,
	ErrTooLarge:      http.StatusRequestEntityTooLarge,
	ErrNotReady:      http.StatusConflict,
	ErrAIUnavailable: http.StatusServiceUnavailable,
	ErrRenderFailed:  http.StatusInternalServerError,
}

// HTTPStatus maps an error code to the HTTP status it is served with.
func HTTPStatus(code int) int {
	if status, ok := httpStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
