package ai

import "errors"

var (
	ErrUnavailable     = errors.New("ai provider unavailable")
	ErrMalformedOutput = errors.New("malformed model output")
	ErrEmptyResponse   = errors.New("empty ai response")
)
