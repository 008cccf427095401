package ai

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeJSON extracts the JSON payload from model output, decodes it into out
// and validates it against out's `validate` tags. Every failure wraps
// ErrMalformedOutput.
func DecodeJSON(output string, out interface{}) error {
	payload, err := extractJSON(output)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrMalformedOutput, err)
	}
	v := reflect.ValueOf(out)
	for v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() == reflect.Struct {
		if err := validate.Struct(out); err != nil {
			return fmt.Errorf("%w: validate: %v", ErrMalformedOutput, err)
		}
	}
	return nil
}

// Validate checks v against its `validate` tags.
func Validate(v interface{}) error {
	return validate.Struct(v)
}

func extractJSON(output string) (string, error) {
	clean := strings.TrimSpace(output)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return "", ErrEmptyResponse
	}
	start := strings.IndexAny(clean, "{[")
	if start < 0 {
		return "", fmt.Errorf("no json value found")
	}
	closer := "}"
	if clean[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(clean, closer)
	if end <= start {
		return "", fmt.Errorf("unterminated json value")
	}
	return clean[start : end+1], nil
}
