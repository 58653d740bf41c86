package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequiredTargets(t *testing.T) {
	cases := []struct {
		name string
		kind Kind
		t    Targets
		want bool
	}{
		{"boot needs deviceId", KindBoot, Targets{DeviceID: "d1"}, true},
		{"boot missing deviceId", KindBoot, Targets{}, false},
		{"shutdown needs deviceId", KindShutdown, Targets{DeviceID: "d1"}, true},
		{"connect needs both", KindConnect, Targets{CPUID: "c1", DeviceID: "d1"}, true},
		{"connect missing cpuId", KindConnect, Targets{DeviceID: "d1"}, false},
		{"disconnect needs both", KindDisconnect, Targets{CPUID: "c1", DeviceID: "d1"}, true},
		{"start needs cpu and requestInstance", KindStart, Targets{CPUID: "c1", RequestInstanceID: "r1"}, true},
		{"start missing requestInstance", KindStart, Targets{CPUID: "c1"}, false},
		{"stop needs cpu and requestInstance", KindStop, Targets{CPUID: "c1", RequestInstanceID: "r1"}, true},
		{"unknown kind is never satisfied", Kind("bogus"), Targets{CPUID: "c1", DeviceID: "d1", RequestInstanceID: "r1"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RequiredTargets(tc.kind, tc.t))
		})
	}
}

func TestKindValid(t *testing.T) {
	for _, k := range []Kind{KindDisconnect, KindShutdown, KindConnect, KindBoot, KindStart, KindStop} {
		assert.True(t, k.Valid())
	}
	assert.False(t, Kind("reboot").Valid())
}

func TestPlanByID(t *testing.T) {
	p := Plan{Operations: []Operation{{ID: 1}, {ID: 2}}}
	op, ok := p.ByID(2)
	assert.True(t, ok)
	assert.Equal(t, 2, op.ID)

	_, ok = p.ByID(99)
	assert.False(t, ok)
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusFailed, StatusCanceled, StatusSkipped} {
		assert.True(t, s.Terminal())
	}
	assert.False(t, Status("PENDING").Terminal())
}
