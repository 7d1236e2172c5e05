// Package delegate reaches collaborator services and normalizes their
// heterogeneous reply envelopes to a single display string.
package delegate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"finassist/internal/common/logger"
	"finassist/internal/common/metrics"
)

var (
	ErrUnknownService   = errors.New("UNKNOWN_SERVICE")
	ErrDelegationFailed = errors.New("DELEGATION_FAILED")
	ErrDelegationTimout = errors.New("DELEGATION_TIMEOUT")
)

// Payload is the minimal request shape every collaborator accepts.
type Payload struct {
	Message string `json:"message"`
	UserID  string `json:"user_id,omitempty"`
}

// Invoker performs a synchronous collaborator invocation and returns the raw
// reply bytes for envelope normalization.
type Invoker interface {
	Invoke(ctx context.Context, service string, payload Payload) ([]byte, error)
}

// HTTPInvoker resolves service names to base URLs and POSTs the payload,
// retrying transient failures with exponential backoff.
type HTTPInvoker struct {
	baseURLs   map[string]string
	client     *http.Client
	maxRetries int
	logger     logger.Logger
}

func NewHTTPInvoker(baseURLs map[string]string, timeout time.Duration, maxRetries int, log logger.Logger) *HTTPInvoker {
	return &HTTPInvoker{
		baseURLs:   baseURLs,
		client:     &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		logger:     log.WithFields(map[string]interface{}{"component": "invoker"}),
	}
}

func (i *HTTPInvoker) Invoke(ctx context.Context, service string, payload Payload) ([]byte, error) {
	url, ok := i.baseURLs[service]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownService, service)
	}

	body, _ := json.Marshal(payload)

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= i.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ErrDelegationTimout
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDelegationFailed, err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, lastErr = i.client.Do(req)

		if ctx.Err() != nil ||
			errors.Is(lastErr, context.DeadlineExceeded) ||
			errors.Is(lastErr, context.Canceled) {
			metrics.DelegationCalls.WithLabelValues(service, "timeout").Inc()
			return nil, ErrDelegationTimout
		}

		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			// Collaborators report handled failures with a structured body;
			// anything non-200 is retried as transient.
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}
	}

	if lastErr != nil {
		metrics.DelegationCalls.WithLabelValues(service, "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrDelegationFailed, lastErr)
	}
	if resp == nil {
		metrics.DelegationCalls.WithLabelValues(service, "error").Inc()
		return nil, fmt.Errorf("%w: no successful response after retries", ErrDelegationFailed)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.DelegationCalls.WithLabelValues(service, "error").Inc()
		return nil, fmt.Errorf("%w: read body: %v", ErrDelegationFailed, err)
	}

	metrics.DelegationCalls.WithLabelValues(service, "ok").Inc()
	return raw, nil
}
