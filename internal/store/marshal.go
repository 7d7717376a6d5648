package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/rstate/internal/value"
)

// marshalValue converts v to canonical JSON TEXT for storage. A nil value
// is stored as null.
func marshalValue(v value.Value) (string, error) {
	if v == nil {
		return "null", nil
	}
	data, err := value.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}
	return string(data), nil
}

// unmarshalValue parses stored TEXT back into a value tree.
func unmarshalValue(data string) (value.Value, error) {
	if data == "" {
		return value.Null{}, nil
	}
	v, err := value.ParseJSON([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return v, nil
}

func marshalFailures(failures []string) (string, error) {
	if len(failures) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(failures)
	if err != nil {
		return "", fmt.Errorf("marshal failures: %w", err)
	}
	return string(data), nil
}

func unmarshalFailures(data string) ([]string, error) {
	var failures []string
	if data == "" {
		return failures, nil
	}
	if err := json.Unmarshal([]byte(data), &failures); err != nil {
		return nil, fmt.Errorf("unmarshal failures: %w", err)
	}
	return failures, nil
}
