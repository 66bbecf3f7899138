// Package pagination folds the list shapes backends return into one Page.
package pagination

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Page is the uniform list envelope handed to callers.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// Empty returns a page with no results; Results is non-nil so it encodes as [].
func Empty[T any]() Page[T] {
	return Page[T]{Results: []T{}}
}

// envelope is the already-paginated upstream shape. Results stays raw because
// some backends put a single object there.
type envelope struct {
	Count    *int            `json:"count"`
	Next     *string         `json:"next"`
	Previous *string         `json:"previous"`
	Results  json.RawMessage `json:"results"`
}

// Normalize accepts a paginated envelope, a bare array or a single object.
// Absent, null and empty scalar input ("", false, 0) yield an empty page,
// never an error.
func Normalize[T any](raw json.RawMessage) (Page[T], error) {
	raw = bytes.TrimSpace(raw)
	if isNull(raw) || isEmptyScalar(raw) {
		return Empty[T](), nil
	}

	switch raw[0] {
	case '[':
		items, err := decodeSlice[T](raw)
		if err != nil {
			return Page[T]{}, err
		}
		return Page[T]{Count: len(items), Results: items}, nil

	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return Page[T]{}, fmt.Errorf("pagination: %w", err)
		}
		_, hasResults := fields["results"]
		_, hasCount := fields["count"]
		if hasResults || hasCount {
			return fromEnvelope[T](raw)
		}

		var one T
		if err := json.Unmarshal(raw, &one); err != nil {
			return Page[T]{}, fmt.Errorf("pagination: %w", err)
		}
		return Page[T]{Count: 1, Results: []T{one}}, nil
	}

	return Page[T]{}, fmt.Errorf("pagination: unsupported payload starting with %q", raw[0])
}

func fromEnvelope[T any](raw json.RawMessage) (Page[T], error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Page[T]{}, fmt.Errorf("pagination: %w", err)
	}

	items, err := EnsureSlice[T](env.Results)
	if err != nil {
		return Page[T]{}, err
	}

	page := Page[T]{
		Next:     nonEmpty(env.Next),
		Previous: nonEmpty(env.Previous),
		Results:  items,
	}
	// A zero or missing count falls back to what was actually returned.
	if env.Count != nil && *env.Count > 0 {
		page.Count = *env.Count
	} else {
		page.Count = len(items)
	}
	return page, nil
}

// EnsureSlice decodes raw into a slice: arrays as-is, a single value as a
// one-element slice, null or absent as an empty slice.
func EnsureSlice[T any](raw json.RawMessage) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if isNull(raw) {
		return []T{}, nil
	}
	if raw[0] == '[' {
		return decodeSlice[T](raw)
	}

	var one T
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, fmt.Errorf("pagination: %w", err)
	}
	return []T{one}, nil
}

func decodeSlice[T any](raw json.RawMessage) ([]T, error) {
	items := []T{}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("pagination: %w", err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func isNull(raw []byte) bool {
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// isEmptyScalar matches the JSON scalars that carry no value: "", false and zero.
func isEmptyScalar(raw []byte) bool {
	switch string(raw) {
	case `""`, "false":
		return true
	}
	if c := raw[0]; c != '-' && (c < '0' || c > '9') {
		return false
	}
	var n float64
	return json.Unmarshal(raw, &n) == nil && n == 0
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
