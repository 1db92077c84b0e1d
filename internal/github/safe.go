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
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	sweeperrors "github.com/sirseerhq/prsweep/internal/errors"
)

// RawExecutor is the executor contract the safe wrapper builds on.
type RawExecutor interface {
	Execute(ctx context.Context, query string, variables map[string]interface{}) (*Response, error)
}

// DiagnosticSink persists raw offending payloads for offline inspection.
type DiagnosticSink interface {
	Persist(payload []byte) (string, error)
}

// SafeClient wraps the executor with a one-shot whole-call retry. A call
// that still yields a failure or an uninterpretable response afterwards is
// persisted to a diagnostic file and reported as ErrInvalidResponse, which
// the scheduler treats as "abandon this window, keep the run alive".
type SafeClient struct {
	exec      RawExecutor
	diag      DiagnosticSink
	retryWait time.Duration
}

// NewSafeClient creates a safe client over the given executor.
func NewSafeClient(exec RawExecutor, diag DiagnosticSink) *SafeClient {
	return &SafeClient{
		exec:      exec,
		diag:      diag,
		retryWait: time.Second,
	}
}

// Search runs one search page request through the executor, retrying the
// whole call exactly once if the result cannot be interpreted.
func (c *SafeClient) Search(ctx context.Context, req SearchRequest) (*Response, error) {
	var (
		lastResp *Response
		lastErr  error
	)

	for attempt := 1; attempt <= 2; attempt++ {
		resp, err := c.exec.Execute(ctx, searchQuery, searchVariables(req))
		if err == nil && resp.WellFormed() {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastResp = resp
		lastErr = err

		if attempt == 1 {
			fmt.Fprintf(os.Stderr, "[warn] invalid API response (attempt 1/2). Retrying in %s...\n", c.retryWait)
			if err := sleepCtx(ctx, c.retryWait); err != nil {
				return nil, err
			}
		}
	}

	c.persistInvalid(lastResp)

	if lastErr != nil {
		return nil, fmt.Errorf("%v: %w", lastErr, sweeperrors.ErrInvalidResponse)
	}
	return nil, sweeperrors.ErrInvalidResponse
}

// persistInvalid saves whatever the last attempt produced. Best-effort:
// diagnostics must never take down the run they are diagnosing.
func (c *SafeClient) persistInvalid(resp *Response) {
	payload := resp.Raw()
	if len(payload) == 0 {
		payload = []byte("null\n")
	}

	name, err := c.diag.Persist(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[error] could not save invalid response: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "[warn] invalid response saved to %s\n", name)
}

var _ RawExecutor = (*Executor)(nil)

// IsInvalidResponse reports whether an error is the skip-this-window signal.
func IsInvalidResponse(err error) bool {
	return errors.Is(err, sweeperrors.ErrInvalidResponse)
}
