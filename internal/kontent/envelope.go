package kontent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// envelopeKeys are the generic wrapper keys tried, in order, before the
// resource-named key.
var envelopeKeys = []string{"data", "items", "elements"}

type pagination struct {
	ContinuationToken string `json:"continuation_token"`
}

// Normalize decodes a list payload that may be a bare array or an array
// wrapped under data, items, elements, or the resource name (users,
// workflows, languages, types). Any other shape yields a *ShapeError.
func Normalize[T any](body []byte, resource string) ([]T, error) {
	items, _, err := normalizePage[T](body, resource)
	return items, err
}

func normalizePage[T any](body []byte, resource string) ([]T, string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, "", &ShapeError{Resource: resource, Got: "empty body"}
	}

	switch trimmed[0] {
	case '[':
		items, err := decodeList[T](trimmed, resource)
		return items, "", err
	case '{':
	default:
		return nil, "", &ShapeError{Resource: resource, Got: jsonKind(trimmed)}
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", ErrMalformedResponse, resource, err)
	}

	var token string
	if raw, ok := envelope["pagination"]; ok {
		var p pagination
		if err := json.Unmarshal(raw, &p); err == nil {
			token = p.ContinuationToken
		}
	}

	for _, key := range append(slices.Clone(envelopeKeys), resource) {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '[' {
			continue
		}
		items, err := decodeList[T](raw, resource)
		return items, token, err
	}

	keys := make([]string, 0, len(envelope))
	for k := range envelope {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return nil, "", &ShapeError{Resource: resource, Got: fmt.Sprintf("object with keys %v", keys)}
}

func decodeList[T any](raw []byte, resource string) ([]T, error) {
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, resource, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func jsonKind(raw []byte) string {
	switch raw[0] {
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}
