// Package httpx is the shared HTTP session every OperationDriver issues
// requests through. It wraps a plain net/http.Client (grounded in the
// teacher's dcclient.HTTPClient — no pack repo uses a third-party HTTP
// client library) with two additions: transport-level connection retry
// (sethvargo/go-retry) and a per-host circuit breaker (sony/gobreaker) that
// stops hammering an endpoint that is already failing outright. Both are
// ambient resiliency layered underneath the per-kind retry ladder the
// drivers themselves implement; neither replaces it.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sony/gobreaker"

	"github.com/vpatelsj/layoutapply/internal/layoutapply/model"
)

// Request is a single outbound call a driver wants issued.
type Request struct {
	Method string
	URL    string
	Body   map[string]any
}

// Response is the raw, already-drained HTTP response.
type Response struct {
	StatusCode int
	Body       map[string]any
	RawBody    []byte
}

// Classification is the first-level outcome of issuing a Request, used by
// drivers to decide whether to enter their retry loop (spec §4.1 step 2).
type Classification int

const (
	ClassifySuccess Classification = iota
	ClassifyTimeout
	ClassifyConnectionError
	ClassifyUnexpectedTransport
	ClassifyNonSuccess
)

// Session is a reusable, concurrency-safe HTTP client shared by all drivers
// within one apply, matching spec §5 "An in-memory HTTP session is reusable
// across requests; it is safe for concurrent use by multiple workers."
type Session struct {
	client *http.Client

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewSession builds a Session over a plain http.Client with no client-level
// timeout. Each call to Do sets its own context deadline from the timeout
// argument (the operation kind's configured timeout).
func NewSession() *Session {
	return &Session{
		client:   &http.Client{},
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (s *Session) breakerFor(host string) *gobreaker.CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.breakers[host]; ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        host,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	s.breakers[host] = b
	return b
}

// Do issues req with a per-kind timeout deadline, making up to
// connRetry.MaxCount attempts in total (MaxCount-1 retries) on
// connection-level failures with connRetry.Interval between attempts
// (spec §4.1 step 1), then classifies the final outcome. Any HTTP response
// that was received, whatever its status code, is ClassifySuccess with a
// nil error; the status code is left to the caller's retry-ladder logic.
// Do never returns ClassifyNonSuccess.
func (s *Session) Do(ctx context.Context, req Request, timeout time.Duration, connRetry model.ConnectionRetry) (Response, Classification, error) {
	host := hostOf(req.URL)
	breaker := s.breakerFor(host)

	var resp Response
	var class Classification

	backoff := retry.WithMaxRetries(uint64(maxInt(connRetry.MaxCount-1, 0)), retry.NewConstant(time.Duration(connRetry.Interval)*time.Second))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		out, c, rerr := breaker.Execute(func() (any, error) {
			r, c, e := s.doOnce(ctx, req, timeout)
			resp = r
			class = c
			return nil, e
		})
		_ = out
		if rerr == nil {
			return nil
		}
		if class == ClassifyConnectionError {
			return retry.RetryableError(rerr)
		}
		return rerr
	})

	if err != nil {
		if class == 0 {
			class = ClassifyUnexpectedTransport
		}
		return resp, class, err
	}
	return resp, class, nil
}

func (s *Session) doOnce(ctx context.Context, req Request, timeout time.Duration) (Response, Classification, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var bodyReader io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return Response{}, ClassifyUnexpectedTransport, err
		}
		bodyReader = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(cctx, req.Method, req.URL, bodyReader)
	if err != nil {
		return Response{}, ClassifyUnexpectedTransport, err
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := s.client.Do(httpReq)
	if err != nil {
		if cctx.Err() == context.DeadlineExceeded {
			return Response{}, ClassifyTimeout, err
		}
		if isConnectionError(err) {
			return Response{}, ClassifyConnectionError, err
		}
		return Response{}, ClassifyUnexpectedTransport, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Response{}, ClassifyUnexpectedTransport, err
	}

	parsed := map[string]any{}
	_ = json.Unmarshal(raw, &parsed) // non-JSON bodies fall back to empty map

	resp := Response{StatusCode: httpResp.StatusCode, Body: parsed, RawBody: raw}
	return resp, ClassifySuccess, nil
}

// isConnectionError mirrors the classification cascade in
// ipiton-alert-history-service's core/resilience/error_classifier.go: DNS
// errors and the common connection-refused/reset/unreachable syscall errnos
// all count as connection-level, not "unexpected transport".
func isConnectionError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return false
}

func hostOf(u string) string {
	if idx := indexAfterScheme(u); idx >= 0 {
		rest := u[idx:]
		if slash := indexByte(rest, '/'); slash >= 0 {
			return rest[:slash]
		}
		return rest
	}
	return u
}

func indexAfterScheme(u string) int {
	const marker = "://"
	for i := 0; i+len(marker) <= len(u); i++ {
		if u[i:i+len(marker)] == marker {
			return i + len(marker)
		}
	}
	return -1
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Errorf is a convenience wrapper matching the style of the teacher's
// dcclient errors (plain fmt.Errorf, no custom error types at this layer —
// classification happens one level up, in the driver package).
func Errorf(format string, args ...any) error { return fmt.Errorf(format, args...) }
