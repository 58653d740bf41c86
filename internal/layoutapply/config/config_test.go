package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpatelsj/layoutapply/internal/layoutapply/model"
)

func withHosts(cfg *model.Config) *model.Config {
	for _, kc := range []*model.KindConfig{&cfg.Disconnect, &cfg.Shutdown, &cfg.Connect, &cfg.Boot, &cfg.Start, &cfg.Stop} {
		kc.Host = "hw-controller.example"
		kc.Port = 8443
		kc.PathPrefix = "v1"
	}
	return cfg
}

func TestDefault_RequiresHostOverridesBeforeValidating(t *testing.T) {
	v := NewValidator()
	cfg := Default()
	assert.Error(t, v.Validate(cfg), "Default leaves host/port/pathPrefix blank for callers to fill in")
}

func TestDefault_PassesValidationOnceHostsAreSet(t *testing.T) {
	v := NewValidator()
	cfg := withHosts(Default())
	assert.NoError(t, v.Validate(cfg))
}

func TestValidate_RejectsMaxWorkersOutOfBounds(t *testing.T) {
	v := NewValidator()
	cfg := withHosts(Default())
	cfg.MaxWorkers = 0
	err := v.Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MaxWorkers")
}

func TestValidate_RejectsZeroPollingCount(t *testing.T) {
	v := NewValidator()
	cfg := withHosts(Default())
	cfg.Boot.Polling.Count = 0
	err := v.Validate(cfg)
	require.Error(t, err)
}

func TestValidate_RejectsNegativeRetryInterval(t *testing.T) {
	v := NewValidator()
	cfg := withHosts(Default())
	cfg.Shutdown.Default.Interval = -1
	err := v.Validate(cfg)
	require.Error(t, err)
}

func TestForKind_DispatchesToMatchingEnvelope(t *testing.T) {
	cfg := Default()
	cfg.Connect.Timeout = 99
	kc := cfg.ForKind(model.KindConnect)
	assert.Equal(t, 99, kc.Timeout)

	kc = cfg.ForKind(model.KindStop)
	assert.Equal(t, cfg.Stop, kc)
}
