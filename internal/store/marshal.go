package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/shoal/internal/schema"
)

// marshalPayload converts an operation payload to canonical JSON TEXT for
// storage, so stored bytes are stable across runs and directly comparable.
func marshalPayload(payload map[string]any) (string, error) {
	data, err := schema.MarshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload parses stored canonical JSON TEXT back into a payload.
func unmarshalPayload(data string) (map[string]any, error) {
	if data == "" || data == "{}" {
		return map[string]any{}, nil
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return payload, nil
}
