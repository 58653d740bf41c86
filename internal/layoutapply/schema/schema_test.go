package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptrBool(b bool) *bool { return &b }

func TestParseDeviceInfoNormalizesType(t *testing.T) {
	info, err := ParseDeviceInfo(map[string]any{"type": "cpu", "powerState": "On"})
	require.NoError(t, err)
	assert.Equal(t, "CPU", info.Type)
	assert.True(t, info.IsCPU())
	assert.Equal(t, PowerOn, info.PowerState)
}

func TestParseDeviceInfoRejectsMissingType(t *testing.T) {
	_, err := ParseDeviceInfo(map[string]any{"powerState": "On"})
	assert.Error(t, err)
}

func TestParseDeviceInfoRejectsUnknownPowerState(t *testing.T) {
	_, err := ParseDeviceInfo(map[string]any{"type": "dimm", "powerState": "Exploded"})
	assert.Error(t, err)
}

func TestDeviceInfoPowerable(t *testing.T) {
	cases := []struct {
		name string
		info DeviceInfo
		want bool
	}{
		{"cpu is never powerable", DeviceInfo{Type: "CPU"}, false},
		{"device defaults powerable", DeviceInfo{Type: "DIMM"}, true},
		{"explicit false powerCapability", DeviceInfo{Type: "DIMM", PowerCapability: ptrBool(false)}, false},
		{"explicit true powerCapability", DeviceInfo{Type: "GPU", PowerCapability: ptrBool(true)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.info.Powerable())
		})
	}
}

func TestParseIsOSReady(t *testing.T) {
	ok, err := ParseIsOSReady(map[string]any{"status": true})
	require.NoError(t, err)
	assert.True(t, ok.Status)

	_, err = ParseIsOSReady(map[string]any{})
	assert.Error(t, err)

	_, err = ParseIsOSReady(map[string]any{"status": "true"})
	assert.Error(t, err)
}

func TestParseExtendedProcedureStatus(t *testing.T) {
	s, err := ParseExtendedProcedureStatus(map[string]any{"status": "COMPLETED"})
	require.NoError(t, err)
	assert.True(t, s.Terminal())
	assert.Equal(t, ExtProcCompleted, s.Status)

	s, err = ParseExtendedProcedureStatus(map[string]any{"status": "IN_PROGRESS"})
	require.NoError(t, err)
	assert.False(t, s.Terminal())

	_, err = ParseExtendedProcedureStatus(map[string]any{"status": "BOGUS"})
	assert.Error(t, err)
}

func TestParseRetryTargetCode(t *testing.T) {
	code, ok := ParseRetryTargetCode(map[string]any{"code": "ER005BAS001"})
	assert.True(t, ok)
	assert.Equal(t, "ER005BAS001", code)

	_, ok = ParseRetryTargetCode(map[string]any{})
	assert.False(t, ok)

	_, ok = ParseRetryTargetCode(map[string]any{"code": 123})
	assert.False(t, ok)
}
