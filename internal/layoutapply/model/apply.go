package model

import "time"

// ApplyStatus is the top-level state of an apply row.
type ApplyStatus string

const (
	ApplyInProgress ApplyStatus = "IN_PROGRESS"
	ApplyCompleted  ApplyStatus = "COMPLETED"
	ApplyFailed     ApplyStatus = "FAILED"
	ApplyCanceling  ApplyStatus = "CANCELING"
	ApplyCanceled   ApplyStatus = "CANCELED"
	ApplySuspended  ApplyStatus = "SUSPENDED"
)

// Terminal reports whether s cannot transition further except by an
// explicit resume request against a SUSPENDED sub-phase.
func (s ApplyStatus) Terminal() bool {
	switch s {
	case ApplyCompleted, ApplyFailed, ApplyCanceled:
		return true
	}
	return false
}

// Active reports whether s counts toward the single-active-apply invariant.
func (s ApplyStatus) Active() bool {
	switch s {
	case ApplyInProgress, ApplyCanceling, ApplySuspended:
		return true
	}
	return false
}

// RollbackStatus mirrors ApplyStatus for the rollback sub-run. The empty
// string represents "no rollback attempted" (spec's `null`).
type RollbackStatus string

const (
	RollbackNone       RollbackStatus = ""
	RollbackInProgress RollbackStatus = "IN_PROGRESS"
	RollbackCompleted  RollbackStatus = "COMPLETED"
	RollbackFailed     RollbackStatus = "FAILED"
	RollbackSuspended  RollbackStatus = "SUSPENDED"
)

// Active reports whether s counts toward the single-active-apply invariant.
func (s RollbackStatus) Active() bool {
	return s == RollbackInProgress || s == RollbackSuspended
}

// ResumeKind distinguishes which suspended sub-phase a resume request
// continues. It is always derivable from which of Status/RollbackStatus is
// SUSPENDED. No field of ApplyRecord or store.Transition carries a
// ResumeKind; the controller decides the phase from the resume
// transition's RollbackStatus.
type ResumeKind string

const (
	ResumeApply    ResumeKind = "apply"
	ResumeRollback ResumeKind = "rollback"
)

// ProcessInfo is the liveness triple persisted at dispatch time so a later
// cancel request can tell whether the process that is driving the apply is
// still the same process, or a stale/reused pid.
type ProcessInfo struct {
	PID              int32     `json:"pid,omitempty"`
	ExecutionCommand string    `json:"executionCommand,omitempty"`
	ProcessStartedAt time.Time `json:"processStartedAt,omitempty"`
}

// ApplyRecord is the durable per-apply row. See spec §3 and §6 for the field
// invariants and persisted layout.
type ApplyRecord struct {
	ApplyID        string         `json:"applyId"`
	Status         ApplyStatus    `json:"status"`
	RollbackStatus RollbackStatus `json:"rollbackStatus,omitempty"`

	Procedures         Plan       `json:"procedures"`
	ApplyResult        []OpResult `json:"applyResult,omitempty"`
	RollbackProcedures *Plan      `json:"rollbackProcedures,omitempty"`
	RollbackResult     []OpResult `json:"rollbackResult,omitempty"`
	ResumeProcedures   *Plan      `json:"resumeProcedures,omitempty"`
	ResumeResult       []OpResult `json:"resumeResult,omitempty"`

	ExecuteRollback bool `json:"executeRollback"`

	StartedAt         time.Time `json:"startedAt,omitempty"`
	EndedAt           time.Time `json:"endedAt,omitempty"`
	CanceledAt        time.Time `json:"canceledAt,omitempty"`
	RollbackStartedAt time.Time `json:"rollbackStartedAt,omitempty"`
	RollbackEndedAt   time.Time `json:"rollbackEndedAt,omitempty"`
	SuspendedAt       time.Time `json:"suspendedAt,omitempty"`
	ResumedAt         time.Time `json:"resumedAt,omitempty"`

	Process ProcessInfo `json:"process"`
}

// Active reports whether this record counts toward the single-active-apply
// invariant (spec §3 global invariant).
func (a *ApplyRecord) Active() bool {
	return a.Status.Active() || a.RollbackStatus.Active()
}
