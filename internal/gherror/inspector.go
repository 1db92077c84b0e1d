package gherror

import (
	"net/http"
	"strings"
)

// Inspector classifies GitHub API failures. The GraphQL API reports most
// application-level conditions as message strings, so classification is
// string-based by necessity.
type Inspector interface {
	// IsRateLimitMessage returns true if a GraphQL error message reports
	// rate limit exhaustion.
	IsRateLimitMessage(msg string) bool

	// IsRetryableStatus returns true if an HTTP status code represents a
	// transient server-side failure worth retrying.
	IsRetryableStatus(code int) bool

	// IsNetworkError returns true if the error represents a timeout or
	// connection-level failure.
	IsNetworkError(err error) bool

	// IsAuthError returns true if the error represents an authentication or authorization failure.
	IsAuthError(err error) bool

	// IsNotFoundError returns true if the error represents a resource not found error.
	IsNotFoundError(err error) bool
}

// GitHubErrorInspector implements the Inspector interface for GitHub API errors.
type GitHubErrorInspector struct{}

// NewInspector creates a new GitHubErrorInspector.
func NewInspector() Inspector {
	return &GitHubErrorInspector{}
}

// IsRateLimitMessage checks whether a GraphQL error message is a rate limit report.
func (i *GitHubErrorInspector) IsRateLimitMessage(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "rate limit") ||
		strings.Contains(m, "api rate limit exceeded")
}

// IsRetryableStatus checks whether an HTTP status code should trigger a retry.
func (i *GitHubErrorInspector) IsRetryableStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return true
	default:
		return false
	}
}

// IsNetworkError checks if the error is a timeout or connectivity error.
func (i *GitHubErrorInspector) IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "temporary failure") ||
		strings.Contains(errStr, "dial tcp") ||
		strings.Contains(errStr, "tls handshake") ||
		strings.Contains(errStr, "network is unreachable") ||
		strings.Contains(errStr, "eof")
}

// IsAuthError checks if the error is an authentication or authorization error.
func (i *GitHubErrorInspector) IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "401") ||
		strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "bad credentials") ||
		strings.Contains(errStr, "authentication")
}

// IsNotFoundError checks if the error is a not found error.
func (i *GitHubErrorInspector) IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "404") ||
		strings.Contains(errStr, "not found") ||
		strings.Contains(errStr, "could not resolve to a repository")
}
