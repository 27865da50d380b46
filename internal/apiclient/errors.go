package apiclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"clevermock-web/internal/domain"
)

// maxErrorBody bounds how much of an error response is read for its message.
const maxErrorBody = 64 << 10

// APIError is returned by every typed call, for non-2xx responses and for
// network failures alike. StatusCode is 0 when no response was received.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("api: %s", e.Message)
	}
	return fmt.Sprintf("api: %d: %s", e.StatusCode, e.Message)
}

// Kind maps the status code onto the domain error taxonomy.
func (e *APIError) Kind() error {
	switch e.StatusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.ErrValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrAuth
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		return domain.ErrConflict
	default:
		return domain.ErrUnknown
	}
}

// Unwrap exposes both the taxonomy class and the underlying cause.
func (e *APIError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind(), e.Err}
	}
	return []error{e.Kind()}
}

// errorBody covers the shapes the backend uses for error payloads.
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

// newResponseError builds an APIError from a non-2xx response, preferring the
// server's message and falling back to the caller's generic one.
func newResponseError(resp *http.Response, fallback string) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := extractMessage(body)
	if msg == "" {
		msg = fallback
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

func newNetworkError(err error, fallback string) *APIError {
	return &APIError{Message: fallback, Err: err}
}

func extractMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}

	if len(eb.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(eb.Detail, &detail); err == nil && strings.TrimSpace(detail) != "" {
			return detail
		}

		// FastAPI validation errors: [{"loc": [...], "msg": "...", "type": "..."}]
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(eb.Detail, &items); err == nil {
			for _, it := range items {
				if it.Msg != "" {
					return it.Msg
				}
			}
		}
	}

	if eb.Message != "" {
		return eb.Message
	}
	return eb.Error
}
