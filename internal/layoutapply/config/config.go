// Package config validates the executor's Config envelopes at load time.
// Modeled on ipiton-alert-history-service's DefaultConfigValidator: a single
// validator.Validate instance, struct tags carry the bounds, Struct() does
// the work.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/vpatelsj/layoutapply/internal/layoutapply/model"
)

// Validator wraps a validator.Validate configured for Config envelopes.
type Validator struct {
	v *validator.Validate
}

// NewValidator builds a Validator with the struct-tag rules registered.
func NewValidator() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate rejects a Config whose numeric bounds or required fields are
// violated. This is the only place bounds are checked — drivers and the
// scheduler trust a Config that passed here (spec §3's admission-time
// invariant).
func (c *Validator) Validate(cfg *model.Config) error {
	if err := c.v.Struct(cfg); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("config validation: %w", err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		}
		return fmt.Errorf("config validation failed: %v", msgs)
	}
	return nil
}

// Default returns a Config with reasonable defaults for every envelope,
// suitable as a starting point before per-kind overrides are applied.
func Default() *model.Config {
	kc := func() model.KindConfig {
		return model.KindConfig{
			Timeout:          30,
			Default:          model.RetryDefault{Interval: 5, MaxCount: 3},
			ServerConnection: model.ConnectionRetry{Interval: 5, MaxCount: 3},
			Polling:          model.Polling{Count: 30, Interval: 5},
		}
	}
	return &model.Config{
		Disconnect: kc(),
		Shutdown:   kc(),
		Connect:    kc(),
		Boot:       kc(),
		Start:      kc(),
		Stop:       kc(),
		MaxWorkers: 32,
	}
}
