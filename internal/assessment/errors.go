package assessment

import "errors"

var (
	ErrScorer    = errors.New("dimension scoring failed")
	ErrSynthesis = errors.New("synthesis failed")
)
