package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// listKeys are the envelope fields list endpoints have been seen to use.
var listKeys = []string{"items", "formulas", "posts", "comments", "chats", "users", "data"}

// decodeList accepts a bare array, an envelope object holding the array
// under one of listKeys, or null, and returns a non-nil slice.
func decodeList[T any](body []byte) ([]T, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return []T{}, nil
	}

	if body[0] == '[' {
		var out []T
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		if out == nil {
			out = []T{}
		}
		return out, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode list envelope: %w", err)
	}
	for _, k := range listKeys {
		raw, ok := envelope[k]
		if !ok {
			continue
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '[' {
			continue
		}
		return decodeList[T](raw)
	}
	return []T{}, nil
}

// unwrap returns the value under key when body is an object that has it,
// otherwise body itself. /profile/me answers either {user: {...}} or the
// user object directly.
func unwrap(body []byte, key string) []byte {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return body
	}
	if raw, ok := envelope[key]; ok {
		raw = bytes.TrimSpace(raw)
		if len(raw) > 0 && raw[0] == '{' {
			return raw
		}
	}
	return body
}
