package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	MaxResponseBytes      = 1 << 20
	DefaultRequestTimeout = 30 * time.Second
)

// BuildURL resolves path against baseURL. The base is treated as a directory
// so "https://host/api" and "https://host/api/" resolve "devices/" the same way.
func BuildURL(baseURL string, path string) (*url.URL, error) {
	if baseURL == "" {
		return nil, errors.New("api base url is required")
	}
	if path == "" {
		return nil, errors.New("api path is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.New("api base url must use http or https")
	}
	if parsed.Host == "" {
		return nil, errors.New("api base url host is required")
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}

	endpoint, err := parsed.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api path: %w", err)
	}
	return endpoint, nil
}

// ReadBody drains at most MaxResponseBytes of resp.
func ReadBody(resp *http.Response) ([]byte, error) {
	return io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
}

func IsSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}

// ErrorMessage pulls an operator-facing message out of an error body. It
// understands the common {detail}, {message}, {error} and field-error shapes.
func ErrorMessage(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		text := strings.TrimSpace(string(body))
		if len(text) > 200 || strings.HasPrefix(text, "<") {
			return ""
		}
		return text
	}

	for _, key := range []string{"detail", "message", "error_description", "error", "non_field_errors"} {
		if msg := flatten(payload[key]); msg != "" {
			return msg
		}
	}
	return ""
}

func flatten(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s := flatten(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	case map[string]any:
		return flatten(v["message"])
	default:
		return ""
	}
}
