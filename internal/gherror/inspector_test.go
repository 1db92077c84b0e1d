package gherror

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsRateLimitMessage(t *testing.T) {
	inspector := NewInspector()

	tests := []struct {
		msg  string
		want bool
	}{
		{"API rate limit exceeded for user ID 12345.", true},
		{"You have exceeded a secondary rate limit.", true},
		{"RATE LIMIT reached", true},
		{"Field 'bogus' doesn't exist on type 'Query'", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := inspector.IsRateLimitMessage(tt.msg); got != tt.want {
			t.Errorf("IsRateLimitMessage(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}

func TestIsRetryableStatus(t *testing.T) {
	inspector := NewInspector()

	tests := []struct {
		code int
		want bool
	}{
		{502, true},
		{503, true},
		{200, false},
		{401, false},
		{404, false},
		{500, false},
		{429, false},
	}

	for _, tt := range tests {
		if got := inspector.IsRetryableStatus(tt.code); got != tt.want {
			t.Errorf("IsRetryableStatus(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestIsNetworkError(t *testing.T) {
	inspector := NewInspector()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection refused", errors.New("dial tcp 127.0.0.1:443: connection refused"), true},
		{"timeout", fmt.Errorf("request failed: context deadline exceeded"), true},
		{"dns failure", errors.New("no such host"), true},
		{"unrelated", errors.New("invalid argument"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inspector.IsNetworkError(tt.err); got != tt.want {
				t.Errorf("IsNetworkError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsAuthError(t *testing.T) {
	inspector := NewInspector()

	if !inspector.IsAuthError(errors.New("401 Unauthorized")) {
		t.Error("IsAuthError(401) = false, want true")
	}
	if !inspector.IsAuthError(errors.New("Bad credentials")) {
		t.Error("IsAuthError(bad credentials) = false, want true")
	}
	if inspector.IsAuthError(errors.New("500 internal error")) {
		t.Error("IsAuthError(500) = true, want false")
	}
	if inspector.IsAuthError(nil) {
		t.Error("IsAuthError(nil) = true, want false")
	}
}

func TestIsNotFoundError(t *testing.T) {
	inspector := NewInspector()

	if !inspector.IsNotFoundError(errors.New("Could not resolve to a Repository with the name 'acme/gone'")) {
		t.Error("IsNotFoundError(unresolved repository) = false, want true")
	}
	if !inspector.IsNotFoundError(errors.New("404 Not Found")) {
		t.Error("IsNotFoundError(404) = false, want true")
	}
	if inspector.IsNotFoundError(errors.New("403 Forbidden")) {
		t.Error("IsNotFoundError(403) = true, want false")
	}
}
