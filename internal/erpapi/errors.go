package erpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNotFound matches 404 responses.
	ErrNotFound = errors.New("erpapi: not found")
	// ErrUnauthorized matches 401 responses.
	ErrUnauthorized = errors.New("erpapi: unauthorized")
	// ErrValidation matches 400 and 422 responses.
	ErrValidation = errors.New("erpapi: validation rejected")
)

// Error describes a failed remote call. StatusCode is zero for transport failures.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Detail     string
	Raw        json.RawMessage
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("erpapi: %s %s: %v", e.Method, e.Path, e.Err)
	}
	if e.Detail != "" {
		return fmt.Sprintf("erpapi: %s %s: %d: %s", e.Method, e.Path, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("erpapi: %s %s: %d", e.Method, e.Path, e.StatusCode)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is maps status codes onto the package sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrValidation:
		return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity
	}
	return false
}

// DecodeDetail normalizes the detail member of an error body into one message.
// It returns "" when the body carries nothing usable.
func DecodeDetail(body []byte) (string, json.RawMessage) {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", nil
	}
	return detailMessage(envelope.Detail), envelope.Detail
}

func detailMessage(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err == nil {
		parts := make([]string, 0, len(entries))
		for _, entry := range entries {
			parts = append(parts, entryMessage(entry))
		}
		return strings.Join(parts, ", ")
	}
	return trimmed
}

func entryMessage(entry json.RawMessage) string {
	var text string
	if err := json.Unmarshal(entry, &text); err == nil {
		return text
	}
	var item map[string]json.RawMessage
	if err := json.Unmarshal(entry, &item); err == nil {
		if msg, ok := item["msg"]; ok {
			if err := json.Unmarshal(msg, &text); err == nil {
				return text
			}
			return strings.TrimSpace(string(msg))
		}
	}
	return strings.TrimSpace(string(entry))
}

// ExtractMessage turns any error into one user-facing line. Remote errors yield
// their normalized detail; anything else yields fallback.
func ExtractMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}
