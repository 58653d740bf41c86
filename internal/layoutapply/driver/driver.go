// Package driver implements the OperationDriver contract (spec §4.1) and
// the six kind-specific drivers (spec §4.2). Each driver wraps one hardware
// or workflow-manager HTTP call with its own retry ladder, timeout,
// post-condition polling, and skip rules, and never raises out of Execute —
// failure is always a typed OpResult, per the "Exceptions for control flow
// → tagged outcomes" design note.
package driver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vpatelsj/layoutapply/internal/layoutapply/httpx"
	"github.com/vpatelsj/layoutapply/internal/layoutapply/model"
	"github.com/vpatelsj/layoutapply/internal/layoutapply/schema"
)

// Driver is the shared contract every kind-specific implementation
// satisfies: execute one operation, return its terminal result and whether
// this result should suspend the whole apply.
type Driver interface {
	Execute(ctx context.Context, op model.Operation) model.Outcome
}

// Registry resolves a Kind to its Driver implementation.
type Registry struct {
	drivers map[model.Kind]Driver
}

// NewRegistry builds the standard six-driver registry over one shared
// Session, Config and logger. Drivers sleep between retries/polls with
// base.sleep (a time.Timer), not an injected clock.
func NewRegistry(cfg *model.Config, session *httpx.Session, logger *slog.Logger) *Registry {
	base := &base{cfg: cfg, session: session, logger: logger}
	poweroff := &poweroffDriver{base: base}
	poweron := &poweronDriver{base: base}
	reg := &Registry{drivers: map[model.Kind]Driver{
		model.KindShutdown:   poweroff,
		model.KindBoot:       poweron,
		model.KindDisconnect: &disconnectDriver{base: base, poweroff: poweroff},
		model.KindConnect:    &connectDriver{base: base, poweron: poweron},
		model.KindStart:      &extendedProcedureDriver{base: base, operation: "start"},
		model.KindStop:       &extendedProcedureDriver{base: base, operation: "stop"},
	}}
	return reg
}

// For returns the driver for k. Panics if k is not one of the six
// recognized kinds — callers must validate Operation.Kind at admission.
func (r *Registry) For(k model.Kind) Driver {
	d, ok := r.drivers[k]
	if !ok {
		panic(fmt.Sprintf("driver: no driver registered for kind %q", k))
	}
	return d
}

// base holds what every driver needs: config, the shared HTTP session, and
// a logger. Drivers embed *base rather than duplicating these fields,
// mirroring the teacher's Runner holding one provider/store for all
// operations (internal/bmdemo/executor.Runner).
type base struct {
	cfg     *model.Config
	session *httpx.Session
	logger  *slog.Logger
}

func (b *base) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retryEnvelope picks the (interval, maxCount) pair a non-success response
// should be retried with: a configured RetryTarget if (statusCode, code)
// matches exactly, otherwise the kind's default envelope (spec §4.1 step 2).
func retryEnvelope(kc model.KindConfig, resp httpx.Response) (interval, maxCount int, matchedTarget bool) {
	code, ok := schema.ParseRetryTargetCode(resp.Body)
	if ok {
		for _, t := range kc.RetryTargets {
			if t.StatusCode == resp.StatusCode && t.Code == code {
				return t.Interval, t.MaxCount, true
			}
		}
	}
	return kc.Default.Interval, kc.Default.MaxCount, false
}

// terminalFailure builds a FAILED OpResult for a classification that never
// enters the retry loop (timeout / connection-error / unexpected-transport).
func terminalFailure(op model.Operation, req httpx.Request, code string, statusCode int, msg string, started time.Time) model.Outcome {
	return model.Outcome{Result: model.OpResult{
		OperationID: op.ID,
		Status:      model.StatusFailed,
		URI:         req.URL,
		Method:      req.Method,
		RequestBody: req.Body,
		ErrorCode:   code,
		StatusCode:  statusCode,
		Message:     msg,
		StartedAt:   started,
		EndedAt:     time.Now().UTC(),
	}}
}
