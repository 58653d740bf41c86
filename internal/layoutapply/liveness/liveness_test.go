package liveness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpatelsj/layoutapply/internal/layoutapply/model"
)

func TestCaptureThenAliveAgreesWithSelf(t *testing.T) {
	info, err := Capture()
	require.NoError(t, err)
	assert.True(t, Alive(info))
}

func TestAlive_ZeroPIDIsNotAlive(t *testing.T) {
	assert.False(t, Alive(model.ProcessInfo{}))
}

func TestAlive_MismatchedCmdlineIsNotAlive(t *testing.T) {
	info, err := Capture()
	require.NoError(t, err)
	info.ExecutionCommand = info.ExecutionCommand + "-reused"
	assert.False(t, Alive(info))
}

func TestAlive_MismatchedStartTimeIsNotAlive(t *testing.T) {
	info, err := Capture()
	require.NoError(t, err)
	info.ProcessStartedAt = info.ProcessStartedAt.Add(-time.Hour)
	assert.False(t, Alive(info))
}

func TestAlive_UnlikelyPIDIsNotAlive(t *testing.T) {
	// A pid that almost certainly does not correspond to a running process.
	assert.False(t, Alive(model.ProcessInfo{PID: 1 << 30, ExecutionCommand: "nope", ProcessStartedAt: time.Now()}))
}
