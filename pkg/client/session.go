package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/politusanalytics/hdfs/pkg/logging"
	"github.com/politusanalytics/hdfs/pkg/metrics"
	"github.com/politusanalytics/hdfs/pkg/protocol"
	"github.com/politusanalytics/hdfs/pkg/retry"
)

// webhdfsPrefix is the URL prefix of the WebHDFS REST API.
const webhdfsPrefix = "/webhdfs/v1"

// session executes one logical WebHDFS operation end-to-end: name-node
// selection, auth injection, transient retry, redirect follow-up to the
// data-node, and response-to-error mapping. It is shared read-mostly by all
// operations issued through one Client; the only mutable state is the
// active-candidate index.
type session struct {
	urls       []string // name-node candidates, in priority order
	httpClient *http.Client
	strategy   Strategy
	retry      retry.Config

	mu     sync.Mutex
	active int
}

// request states, in the order a two-phase operation moves through them.
type requestState int

const (
	stateSending requestState = iota
	stateRedirected
	stateDone
)

// dataNodeError wraps a failure talking to a data-node. Never triggers a
// name-node failover: the redirect target is node-specific and the request
// body may be partially consumed.
type dataNodeError struct {
	err error
}

func (e *dataNodeError) Error() string {
	return "data-node request failed: " + e.err.Error()
}

func (e *dataNodeError) Unwrap() error {
	return e.err
}

// execute runs one operation against the cluster and records its metrics.
// On success the caller owns the response body.
func (s *session) execute(ctx context.Context, op protocol.Operation, p string, params url.Values, body io.Reader) (*http.Response, error) {
	start := time.Now()
	resp, err := s.executeHA(ctx, op, p, params, body)

	outcome := "ok"
	if err != nil {
		outcome = "transport_error"
		if _, ok := AsRemote(err); ok {
			outcome = "remote_error"
		}
	}
	metrics.RecordOperation(op.Name, outcome, time.Since(start).Seconds())
	return resp, err
}

// executeHA walks the candidate list starting from the last known active
// name-node, failing over on connection failures and standby responses.
// Exhausting the list once is fatal.
func (s *session) executeHA(ctx context.Context, op protocol.Operation, p string, params url.Values, body io.Reader) (*http.Response, error) {
	first := s.activeIndex()
	var lastErr error

	for i := 0; i < len(s.urls); i++ {
		idx := (first + i) % len(s.urls)
		resp, err := s.executeOn(ctx, s.urls[idx], op, p, params, body)
		if err == nil {
			s.setActive(idx)
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		if !failoverable(err) {
			return nil, err
		}
		lastErr = err
		metrics.RecordFailover()
		logging.Warn("name-node unavailable, trying next candidate",
			zap.String("url", s.urls[idx]), zap.String("op", op.Name), zap.Error(err))
	}

	return nil, fmt.Errorf("%w: last error: %v", ErrUnreachable, lastErr)
}

// executeOn runs the per-request state machine against a single name-node.
func (s *session) executeOn(ctx context.Context, base string, op protocol.Operation, p string, params url.Values, body io.Reader) (*http.Response, error) {
	u, err := s.buildURL(base, p, op, params)
	if err != nil {
		return nil, err
	}

	state := stateSending
	authRetried := false
	var resp *http.Response

	for {
		switch state {
		case stateSending:
			resp, err = s.sendControl(ctx, op.Method, u)
			if err != nil {
				return nil, err
			}

			if resp.StatusCode == http.StatusUnauthorized {
				if authRetried {
					drain(resp)
					return nil, &AuthError{Reason: "credentials rejected after renegotiation"}
				}
				ok, aerr := s.strategy.HandleUnauthorized(ctx, resp)
				drain(resp)
				if aerr != nil {
					return nil, aerr
				}
				if !ok {
					return nil, &AuthError{Reason: "server rejected credentials"}
				}
				authRetried = true
				continue // resend with refreshed credentials
			}

			if op.Redirect && resp.StatusCode >= 300 && resp.StatusCode < 400 {
				state = stateRedirected
				continue
			}
			if resp.StatusCode >= 400 {
				return nil, s.remoteError(resp)
			}
			state = stateDone

		case stateRedirected:
			loc := resp.Header.Get("Location")
			drain(resp)
			if loc == "" {
				return nil, fmt.Errorf("%w: %s redirect without Location", ErrProtocol, op.Name)
			}
			resp, err = s.sendData(ctx, op, loc, body)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode >= 400 {
				return nil, s.remoteError(resp)
			}
			state = stateDone

		case stateDone:
			return resp, nil
		}
	}
}

// sendControl issues the control call to the name-node, retrying transient
// failures with backoff. Control operations carry no body and are treated
// as idempotent at the HTTP layer.
func (s *session) sendControl(ctx context.Context, method, u string) (*http.Response, error) {
	return retry.DoWithResult(ctx, s.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, method, u, nil)
		if err != nil {
			return nil, err
		}
		if err := s.strategy.Apply(ctx, req); err != nil {
			return nil, err
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			metrics.RecordRetry()
			return nil, retry.Retryable(err)
		}
		if resp.StatusCode >= 500 {
			metrics.RecordRetry()
			return nil, retry.Retryable(s.remoteError(resp))
		}
		return resp, nil
	})
}

// sendData resends the verb to the data-node named by the redirect. The
// payload is streamed and not replayable, so this phase runs exactly once.
func (s *session) sendData(ctx context.Context, op protocol.Operation, loc string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, op.Method, loc, body)
	if err != nil {
		return nil, err
	}
	if op.HasBody {
		req.Header.Set("Content-Type", "application/octet-stream")
	}
	if err := s.strategy.Apply(ctx, req); err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &dataNodeError{err: err}
	}
	return resp, nil
}

// remoteError consumes an error response and maps it onto the taxonomy:
// a decodable RemoteException body becomes a RemoteError, anything else a
// protocol error.
func (s *session) remoteError(resp *http.Response) error {
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("%w: reading error body: %v", ErrProtocol, err)
	}

	var body protocol.RemoteExceptionResponse
	if err := json.Unmarshal(data, &body); err != nil || body.RemoteException.Exception == "" {
		return fmt.Errorf("%w: status %d: %q", ErrProtocol, resp.StatusCode, truncate(data, 200))
	}

	return &RemoteError{
		Class:   body.RemoteException.Exception,
		Message: body.RemoteException.Message,
		Status:  resp.StatusCode,
	}
}

func (s *session) buildURL(base, p string, op protocol.Operation, params url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid name-node url %q: %w", base, err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + webhdfsPrefix + p

	q := url.Values{}
	q.Set("op", op.Name)
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	for k, vs := range s.strategy.Params() {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *session) activeIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *session) setActive(idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = idx
}

// failoverable reports whether an error justifies moving on to the next
// name-node candidate: connection-level failures and standby responses do,
// auth failures and data-node failures never do.
func failoverable(err error) bool {
	var ae *AuthError
	if errors.As(err, &ae) {
		return false
	}
	var dn *dataNodeError
	if errors.As(err, &dn) {
		return false
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Class == protocol.ExceptionStandby
	}
	var ue *url.Error
	return errors.As(err, &ue)
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func truncate(data []byte, n int) string {
	if len(data) > n {
		return string(data[:n]) + "..."
	}
	return string(data)
}
