package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNoLabel means the service answered but gave nothing usable as a label.
var ErrNoLabel = errors.New("prediction response has no label")

var ErrUnsupportedModality = errors.New("modality has no prediction endpoint")

type HTTPError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "http error"
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if msg == "" {
		msg = "http error"
	}
	return fmt.Sprintf("http error: status=%d message=%s", e.StatusCode, msg)
}

// Retryable reports whether another attempt could succeed.
func (e *HTTPError) Retryable() bool {
	return e != nil && e.StatusCode >= 500
}

// parseHTTPError understands {"error": "..."}, {"error": {"message": "..."}}
// and FastAPI's {"detail": ...}.
func parseHTTPError(status int, raw []byte) error {
	body := strings.TrimSpace(string(raw))
	herr := &HTTPError{StatusCode: status, Body: body}

	var env map[string]json.RawMessage
	if err := json.Unmarshal(raw, &env); err != nil {
		return herr
	}
	for _, key := range []string{"error", "detail"} {
		if msg := messageOf(env[key]); msg != "" {
			herr.Message = msg
			break
		}
	}
	return herr
}

func messageOf(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Message string `json:"message"`
		Msg     string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if m := strings.TrimSpace(obj.Message); m != "" {
			return m
		}
		return strings.TrimSpace(obj.Msg)
	}
	// FastAPI validation errors: [{"loc": [...], "msg": "...", ...}]
	var list []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return strings.TrimSpace(list[0].Msg)
	}
	return ""
}
