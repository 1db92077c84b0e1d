// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package errors defines sentinel errors for consistent error handling across the application.
// These errors map to specific exit codes in the CLI for proper scripting support.
package errors

import "errors"

// Sentinel errors for consistent error handling and exit code mapping
var (
	// ErrMissingToken indicates no GitHub token was provided.
	// Maps to exit code 2. Checked at startup, before any request is made.
	ErrMissingToken = errors.New("github token not found")

	// ErrInvalidToken indicates GitHub authentication failed.
	// Maps to exit code 2.
	ErrInvalidToken = errors.New("invalid github token")

	// ErrRepoNotFound indicates the specified repository does not exist or is not accessible.
	// Maps to exit code 2.
	ErrRepoNotFound = errors.New("repository not found")

	// ErrNetworkFailure indicates a network problem that persisted through
	// the bounded retry budget. Maps to exit code 3.
	ErrNetworkFailure = errors.New("network connection failed")

	// ErrRateLimit indicates the rate-limit wait budget for a single call
	// was exhausted. Maps to exit code 2.
	ErrRateLimit = errors.New("github rate limit exceeded")

	// ErrInvalidResponse indicates the API returned a payload whose shape
	// could not be interpreted, even after the outer one-shot retry. The
	// raw payload has been persisted to a diagnostic file. The scheduler
	// skips the affected window rather than aborting the run.
	ErrInvalidResponse = errors.New("invalid api response")

	// ErrQueryRejected indicates the API returned application-level errors
	// other than a rate limit. These point at a malformed query, not a
	// transient condition, so the run aborts. Maps to exit code 1.
	ErrQueryRejected = errors.New("search query rejected by api")
)
