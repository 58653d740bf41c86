package model

import "context"

type contextKey int

const applyIDKey contextKey = iota

// WithApplyID attaches applyID to ctx. The lifecycle controller sets this
// once per Schedule call so drivers can stamp it onto requests that need it
// (spec §4.2 extended-procedure body) without a process-wide global or a
// Registry constructor parameter.
func WithApplyID(ctx context.Context, applyID string) context.Context {
	return context.WithValue(ctx, applyIDKey, applyID)
}

// ApplyIDFromContext returns the applyID set by WithApplyID, or "" if none
// was set (e.g. in driver unit tests that call Execute directly).
func ApplyIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(applyIDKey).(string)
	return v
}
