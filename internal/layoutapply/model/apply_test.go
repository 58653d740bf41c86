package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyStatusTerminalAndActive(t *testing.T) {
	assert.True(t, ApplyCompleted.Terminal())
	assert.True(t, ApplyFailed.Terminal())
	assert.True(t, ApplyCanceled.Terminal())
	assert.False(t, ApplyInProgress.Terminal())
	assert.False(t, ApplySuspended.Terminal())

	assert.True(t, ApplyInProgress.Active())
	assert.True(t, ApplyCanceling.Active())
	assert.True(t, ApplySuspended.Active())
	assert.False(t, ApplyCompleted.Active())
	assert.False(t, ApplyFailed.Active())
	assert.False(t, ApplyCanceled.Active())
}

func TestRollbackStatusActive(t *testing.T) {
	assert.True(t, RollbackInProgress.Active())
	assert.True(t, RollbackSuspended.Active())
	assert.False(t, RollbackNone.Active())
	assert.False(t, RollbackCompleted.Active())
	assert.False(t, RollbackFailed.Active())
}

func TestApplyRecordActive(t *testing.T) {
	rec := &ApplyRecord{Status: ApplyCompleted}
	assert.False(t, rec.Active())

	rec.Status = ApplyCanceled
	rec.RollbackStatus = RollbackInProgress
	assert.True(t, rec.Active())

	rec.RollbackStatus = RollbackCompleted
	assert.False(t, rec.Active())

	rec.Status = ApplyInProgress
	assert.True(t, rec.Active())
}
