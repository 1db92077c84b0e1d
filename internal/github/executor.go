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

package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	sweeperrors "github.com/sirseerhq/prsweep/internal/errors"
	"github.com/sirseerhq/prsweep/internal/gherror"
)

// ExecutorConfig configures the retry behavior of the query executor.
type ExecutorConfig struct {
	// MaxAttempts is the total number of attempts per call, including the first.
	MaxAttempts int
	// BackoffBase is the backoff unit; attempt n waits BackoffBase * 2^(n-1).
	BackoffBase time.Duration
	// RateLimitSlack is added on top of the reported quota reset time.
	RateLimitSlack time.Duration
	// RateLimitFallback is the sleep used when no reset time is reported.
	RateLimitFallback time.Duration
	// MaxRateLimitWaits bounds how many rate-limit sleeps a single call may
	// perform. Rate-limit sleeps do not consume retry attempts, so without
	// this cap a persistently rate-limited endpoint would stall forever.
	MaxRateLimitWaits int
	// LowQuotaThreshold is the remaining-quota level below which a warning
	// is logged. Informational only.
	LowQuotaThreshold int
}

// DefaultExecutorConfig returns the default executor configuration.
func DefaultExecutorConfig() *ExecutorConfig {
	return &ExecutorConfig{
		MaxAttempts:       5,
		BackoffBase:       1 * time.Second,
		RateLimitSlack:    5 * time.Second,
		RateLimitFallback: 60 * time.Second,
		MaxRateLimitWaits: 3,
		LowQuotaThreshold: 100,
	}
}

// Executor issues a single GraphQL query per call and classifies the raw
// response, retrying transient failures with exponential backoff. It keeps
// no state across calls; all waiting blocks the calling goroutine and
// honors context cancellation.
//
// Classification:
//   - timeout or connection-level failure: backoff, retry
//   - HTTP 502/503: backoff, retry
//   - rate-limit error embedded in a 200 body: sleep until the reported
//     reset time plus slack (fallback sleep when none reported), then
//     re-enter without consuming an attempt, up to MaxRateLimitWaits
//   - any other non-200 status: terminal failure, not retried
//   - 200 with a parseable body: success; application-level errors in the
//     body are returned to the caller unfiltered
type Executor struct {
	httpClient *http.Client
	endpoint   string
	config     *ExecutorConfig
	inspector  gherror.Inspector
}

// NewExecutor creates an executor for the given endpoint. A nil config uses
// the defaults.
func NewExecutor(token, endpoint string, config *ExecutorConfig) *Executor {
	if config == nil {
		config = DefaultExecutorConfig()
	}
	return &Executor{
		httpClient: newHTTPClient(token),
		endpoint:   endpoint,
		config:     config,
		inspector:  gherror.NewInspector(),
	}
}

// Execute runs one query/variables pair to completion: a parsed response,
// or a terminal error once the retry budget is exhausted. A 200 whose body
// is not valid JSON is returned without error; callers detect it via
// Response.WellFormed.
func (e *Executor) Execute(ctx context.Context, query string, variables map[string]interface{}) (*Response, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	var (
		attempt        = 0
		rateLimitWaits = 0
		lastErr        error
	)

	for attempt < e.config.MaxAttempts {
		attempt++

		status, header, body, err := e.do(ctx, payload)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			if attempt == e.config.MaxAttempts {
				break
			}
			wait := e.backoff(attempt)
			fmt.Fprintf(os.Stderr, "[retry %d/%d] request failed: %v. Waiting %s...\n",
				attempt, e.config.MaxAttempts, err, wait)
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		e.logQuotaHeader(header)

		resp := decodeResponse(body)

		// The API reports rate limit exhaustion as a 200 with errors in the
		// body, so scan before looking at the status code.
		if msg, limited := e.rateLimitError(resp); limited {
			if rateLimitWaits >= e.config.MaxRateLimitWaits {
				return nil, fmt.Errorf("gave up after %d rate limit waits: %w",
					rateLimitWaits, sweeperrors.ErrRateLimit)
			}
			rateLimitWaits++

			wait := e.rateLimitWait(resp)
			fmt.Fprintf(os.Stderr, "[rate limit] %s. Sleeping %s...\n", msg, wait.Round(time.Second))
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}
			// Sleeping out a rate limit does not consume a retry slot.
			attempt--
			continue
		}

		if status == http.StatusOK {
			return resp, nil
		}

		if e.inspector.IsRetryableStatus(status) {
			lastErr = fmt.Errorf("received status %d", status)
			if attempt == e.config.MaxAttempts {
				break
			}
			wait := e.backoff(attempt)
			fmt.Fprintf(os.Stderr, "[retry %d/%d] HTTP %d. Waiting %s...\n",
				attempt, e.config.MaxAttempts, status, wait)
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		// Unexpected status codes indicate a request problem, not a
		// transient condition. Fail immediately.
		return nil, fmt.Errorf("unexpected status %d: %s", status, truncate(body, 200))
	}

	return nil, fmt.Errorf("no successful response after %d attempts (%v): %w",
		e.config.MaxAttempts, lastErr, sweeperrors.ErrNetworkFailure)
}

// do performs a single POST and drains the body. Transport-level failures
// (timeouts, resets) surface as errors; everything else is returned raw for
// classification by the caller.
func (e *Executor) do(ctx context.Context, payload []byte) (int, http.Header, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return resp.StatusCode, resp.Header, body, nil
}

// rateLimitError scans the body's error list for a rate limit report.
func (e *Executor) rateLimitError(resp *Response) (string, bool) {
	for _, qe := range resp.Errors {
		if e.inspector.IsRateLimitMessage(qe.Message) || qe.Type == "RATE_LIMITED" {
			return qe.Message, true
		}
	}
	return "", false
}

// rateLimitWait picks the sleep duration for a rate-limited response: time
// until the reported reset plus slack, or the fallback when the body
// carries no usable reset timestamp.
func (e *Executor) rateLimitWait(resp *Response) time.Duration {
	if resp.Data != nil {
		if reset, ok := resp.Data.RateLimit.ResetTime(); ok {
			wait := time.Until(reset) + e.config.RateLimitSlack
			if wait < time.Second {
				wait = time.Second
			}
			return wait
		}
	}
	return e.config.RateLimitFallback
}

// backoff returns the exponential backoff for the given 1-based attempt.
func (e *Executor) backoff(attempt int) time.Duration {
	return e.config.BackoffBase << (attempt - 1)
}

// logQuotaHeader warns when the remaining-quota header drops below the
// threshold. Telemetry only; no behavior depends on it.
func (e *Executor) logQuotaHeader(header http.Header) {
	v := header.Get("X-RateLimit-Remaining")
	if v == "" {
		return
	}
	remaining, err := strconv.Atoi(v)
	if err != nil {
		return
	}
	if remaining < e.config.LowQuotaThreshold {
		fmt.Fprintf(os.Stderr, "[warn] rate limit low (%d remaining). Consider slowing requests.\n", remaining)
	}
}

// decodeResponse parses a body, keeping the raw bytes. A body that is not a
// GraphQL response decodes to a shape with neither data nor errors, which
// callers detect via WellFormed.
func decodeResponse(body []byte) *Response {
	resp := &Response{raw: body}
	// Decode errors are deliberately swallowed; the zero shape marks the
	// response as uninterpretable while preserving the raw payload.
	_ = json.Unmarshal(body, resp)
	return resp
}

// sleepCtx blocks for the given duration or until the context is canceled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
