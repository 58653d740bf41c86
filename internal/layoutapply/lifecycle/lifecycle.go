// Package lifecycle implements the LifecycleController (spec §4.4): it
// owns one apply end-to-end — admission, scheduler execution, optional
// rollback, suspension, and resume. Grounded on the teacher's
// internal/bmdemo/lifecycle package, which drove one bare-metal
// provisioning run through an equivalent admission -> execute -> terminal
// sequence; the cancel-state-machine and rollback/resume derivation here
// replace that package's simpler "shutdown on first failure" policy.
package lifecycle

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/vpatelsj/layoutapply/internal/layoutapply/applyerr"
	"github.com/vpatelsj/layoutapply/internal/layoutapply/liveness"
	"github.com/vpatelsj/layoutapply/internal/layoutapply/model"
	"github.com/vpatelsj/layoutapply/internal/layoutapply/resume"
	"github.com/vpatelsj/layoutapply/internal/layoutapply/rollback"
	"github.com/vpatelsj/layoutapply/internal/layoutapply/scheduler"
	"github.com/vpatelsj/layoutapply/internal/layoutapply/store"
)

// CancelPollInterval is how often Run checks the store for a pending
// cancel request while the scheduler is mid-run (spec §5: "cooperative,
// sampled between operations").
const CancelPollInterval = 2 * time.Second

// Store is the subset of *store.Store the Controller drives. Extracted so
// tests can substitute an in-memory fake, the same seam
// internal/layoutapply/scheduler.Registry gives the scheduler's driver
// lookup.
type Store interface {
	Register(ctx context.Context, plan model.Plan, isEmpty bool) (string, error)
	Update(ctx context.Context, applyID string, opts store.UpdateOpts) error
	Get(ctx context.Context, applyID string) (model.ApplyRecord, error)
	CancelRequest(ctx context.Context, applyID string, rollback bool, alive bool) (store.Transition, error)
	ResumeRequest(ctx context.Context, applyID string) (store.Transition, error)
}

// EventSink is the seam the out-of-scope message-broker publisher
// (spec §1) plugs into: the Controller calls Publish once each time a run
// of the apply or of its rollback sub-phase ends (COMPLETED, FAILED,
// CANCELED or SUSPENDED). When a rollback follows a FAILED or CANCELED
// apply, no event is published for that apply status; the single event is
// published after the rollback ends. The zero value of noopSink is used
// when no sink is supplied.
type EventSink interface {
	Publish(ctx context.Context, rec model.ApplyRecord)
}

type noopSink struct{}

func (noopSink) Publish(context.Context, model.ApplyRecord) {}

// Controller runs applies to completion, driving a Store and Scheduler.
type Controller struct {
	store             Store
	scheduler         *scheduler.Scheduler
	logger            *slog.Logger
	rollbackOnFailure bool
	sink              EventSink
}

// New builds a Controller. rollbackOnFailure implements the policy hook
// spec §4.4 names ("or policy dictates rollback on failure") as a plain
// config flag rather than a pluggable policy object, since the spec names
// no other policy shape. sink may be nil, in which case events are dropped.
func New(st Store, sch *scheduler.Scheduler, logger *slog.Logger, rollbackOnFailure bool, sink EventSink) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = noopSink{}
	}
	return &Controller{store: st, scheduler: sch, logger: logger, rollbackOnFailure: rollbackOnFailure, sink: sink}
}

// publish loads the current row and hands it to the sink, logging rather
// than failing the apply if the row cannot be reloaded — publishing is
// best-effort observability, not part of the state machine.
func (c *Controller) publish(ctx context.Context, applyID string) {
	rec, err := c.store.Get(ctx, applyID)
	if err != nil {
		c.logger.Warn("failed to reload apply row for event publish", "applyId", applyID, "error", err)
		return
	}
	c.sink.Publish(ctx, rec)
}

// Run admits plan and drives it to a terminal or suspended state. It
// returns the applyId immediately after admission; execution proceeds on a
// background goroutine after the call returns (spec §9's "one task per
// apply within a supervisor process" reading of the original's
// one-process-per-apply design).
func (c *Controller) Run(ctx context.Context, plan model.Plan) (string, error) {
	isEmpty := len(plan.Operations) == 0
	applyID, err := c.store.Register(ctx, plan, isEmpty)
	if err != nil {
		return "", err
	}
	if isEmpty {
		return applyID, nil
	}

	info, err := liveness.Capture()
	if err != nil {
		c.logger.Warn("failed to capture process liveness info", "applyId", applyID, "error", err)
	}
	if err := c.store.Update(ctx, applyID, store.UpdateOpts{Process: &info}); err != nil {
		c.logger.Warn("failed to persist process liveness info", "applyId", applyID, "error", err)
	}

	go c.execute(context.Background(), applyID, plan)
	return applyID, nil
}

func (c *Controller) execute(ctx context.Context, applyID string, plan model.Plan) {
	ctx = model.WithApplyID(ctx, applyID)
	canceled := &atomic.Bool{}
	pollCtx, stopPoll := context.WithCancel(ctx)
	defer stopPoll()
	go c.pollCancel(pollCtx, applyID, canceled)

	out := c.scheduler.Schedule(ctx, plan, canceled.Load)

	if err := c.store.Update(ctx, applyID, store.UpdateOpts{ApplyResult: out.Results}); err != nil {
		c.logger.Error("failed to persist apply result", "applyId", applyID, "error", err)
	}

	switch {
	case out.Suspended:
		c.finishSuspended(ctx, applyID, plan, out.Results)
	case canceled.Load():
		c.finishCanceled(ctx, applyID, plan, out.Results)
	case anyFailed(out.Results):
		c.finishFailed(ctx, applyID, plan, out.Results)
	default:
		c.finishCompleted(ctx, applyID)
	}
}

func (c *Controller) pollCancel(ctx context.Context, applyID string, canceled *atomic.Bool) {
	ticker := time.NewTicker(CancelPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rec, err := c.store.Get(ctx, applyID)
			if err != nil {
				continue
			}
			if rec.Status == model.ApplyCanceling {
				canceled.Store(true)
				return
			}
		}
	}
}

func anyFailed(results []model.OpResult) bool {
	for _, r := range results {
		if r.Status == model.StatusFailed {
			return true
		}
	}
	return false
}

func (c *Controller) finishCompleted(ctx context.Context, applyID string) {
	now := time.Now().UTC()
	status := model.ApplyCompleted
	if err := c.store.Update(ctx, applyID, store.UpdateOpts{Status: &status, EndedAt: &now}); err != nil {
		c.logger.Error("failed to finalize completed apply", "applyId", applyID, "error", err)
	}
	c.publish(ctx, applyID)
}

func (c *Controller) finishSuspended(ctx context.Context, applyID string, plan model.Plan, results []model.OpResult) {
	now := time.Now().UTC()
	status := model.ApplySuspended
	residual := resume.Plan(plan, results)
	if err := c.store.Update(ctx, applyID, store.UpdateOpts{
		Status: &status, SuspendedAt: &now, ResumeProcedures: &residual,
	}); err != nil {
		c.logger.Error("failed to persist suspension", "applyId", applyID, "error", err)
	}
	c.publish(ctx, applyID)
}

func (c *Controller) finishCanceled(ctx context.Context, applyID string, plan model.Plan, results []model.OpResult) {
	rec, err := c.store.Get(ctx, applyID)
	if err != nil {
		c.logger.Error("failed to read apply row for cancel finalize", "applyId", applyID, "error", err)
		return
	}

	now := time.Now().UTC()
	status := model.ApplyCanceled
	opts := store.UpdateOpts{Status: &status, EndedAt: &now}
	if err := c.store.Update(ctx, applyID, opts); err != nil {
		c.logger.Error("failed to finalize canceled apply", "applyId", applyID, "error", err)
		return
	}

	if rec.ExecuteRollback {
		c.runRollback(ctx, applyID, plan, results)
		return
	}
	c.publish(ctx, applyID)
}

func (c *Controller) finishFailed(ctx context.Context, applyID string, plan model.Plan, results []model.OpResult) {
	now := time.Now().UTC()
	if !c.rollbackOnFailure {
		status := model.ApplyFailed
		if err := c.store.Update(ctx, applyID, store.UpdateOpts{Status: &status, EndedAt: &now}); err != nil {
			c.logger.Error("failed to finalize failed apply", "applyId", applyID, "error", err)
		}
		c.publish(ctx, applyID)
		return
	}

	status := model.ApplyFailed
	executeRollback := true
	if err := c.store.Update(ctx, applyID, store.UpdateOpts{Status: &status, EndedAt: &now, ExecuteRollback: &executeRollback}); err != nil {
		c.logger.Error("failed to finalize failed apply", "applyId", applyID, "error", err)
		return
	}
	c.runRollback(ctx, applyID, plan, results)
}

func (c *Controller) runRollback(ctx context.Context, applyID string, plan model.Plan, results []model.OpResult) {
	ctx = model.WithApplyID(ctx, applyID)
	inverse := rollback.Plan(plan, results)
	startedAt := time.Now().UTC()
	rollbackInProgress := model.RollbackInProgress
	if err := c.store.Update(ctx, applyID, store.UpdateOpts{
		RollbackStatus: &rollbackInProgress, RollbackStartedAt: &startedAt, RollbackProcedures: &inverse,
	}); err != nil {
		c.logger.Error("failed to start rollback", "applyId", applyID, "error", err)
		return
	}

	canceled := &atomic.Bool{}
	out := c.scheduler.Schedule(ctx, inverse, canceled.Load)

	endedAt := time.Now().UTC()
	rollbackStatus := model.RollbackCompleted
	switch {
	case out.Suspended:
		rollbackStatus = model.RollbackSuspended
	case anyFailed(out.Results):
		rollbackStatus = model.RollbackFailed
	}

	if err := c.store.Update(ctx, applyID, store.UpdateOpts{
		RollbackStatus: &rollbackStatus, RollbackResult: out.Results, RollbackEndedAt: &endedAt,
	}); err != nil {
		c.logger.Error("failed to finalize rollback", "applyId", applyID, "error", err)
	}
	c.publish(ctx, applyID)
}

// Cancel submits a cancel request for applyID (spec §4.4 table). alive is
// the liveness check against the record's stored process info.
func (c *Controller) Cancel(ctx context.Context, applyID string, withRollback bool) (store.Transition, error) {
	rec, err := c.store.Get(ctx, applyID)
	if err != nil {
		return store.Transition{}, err
	}
	alive := liveness.Alive(rec.Process)
	return c.store.CancelRequest(ctx, applyID, withRollback, alive)
}

// Resume continues a SUSPENDED apply or rollback phase (spec §4.4 step 5).
func (c *Controller) Resume(ctx context.Context, applyID string) error {
	rec, err := c.store.Get(ctx, applyID)
	if err != nil {
		return err
	}

	transition, err := c.store.ResumeRequest(ctx, applyID)
	if err != nil {
		return err
	}

	if transition.RollbackStatus == model.RollbackInProgress {
		if rec.RollbackProcedures == nil {
			return applyerr.New(applyerr.E40020, "suspended apply %q has no rollbackProcedures to resume", applyID)
		}
		go c.resumeRollback(context.Background(), applyID, *rec.RollbackProcedures, rec.Procedures, rec.ApplyResult)
		return nil
	}

	if rec.ResumeProcedures == nil {
		return applyerr.New(applyerr.E40020, "suspended apply %q has no resumeProcedures to resume", applyID)
	}
	go c.resumeApply(context.Background(), applyID, rec.Procedures, *rec.ResumeProcedures, rec.ApplyResult)
	return nil
}

func (c *Controller) resumeApply(ctx context.Context, applyID string, original, residual model.Plan, prior []model.OpResult) {
	ctx = model.WithApplyID(ctx, applyID)
	canceled := &atomic.Bool{}
	pollCtx, stopPoll := context.WithCancel(ctx)
	defer stopPoll()
	go c.pollCancel(pollCtx, applyID, canceled)

	out := c.scheduler.Schedule(ctx, residual, canceled.Load)
	combined := append(append([]model.OpResult(nil), prior...), out.Results...)

	if err := c.store.Update(ctx, applyID, store.UpdateOpts{ApplyResult: combined}); err != nil {
		c.logger.Error("failed to persist resumed apply result", "applyId", applyID, "error", err)
	}

	switch {
	case out.Suspended:
		c.finishSuspended(ctx, applyID, original, combined)
	case canceled.Load():
		c.finishCanceled(ctx, applyID, original, combined)
	case anyFailed(out.Results):
		c.finishFailed(ctx, applyID, original, combined)
	default:
		c.finishCompleted(ctx, applyID)
	}
}

func (c *Controller) resumeRollback(ctx context.Context, applyID string, residual, original model.Plan, applyResults []model.OpResult) {
	ctx = model.WithApplyID(ctx, applyID)
	canceled := &atomic.Bool{}
	out := c.scheduler.Schedule(ctx, residual, canceled.Load)

	endedAt := time.Now().UTC()
	rollbackStatus := model.RollbackCompleted
	switch {
	case out.Suspended:
		rollbackStatus = model.RollbackSuspended
	case anyFailed(out.Results):
		rollbackStatus = model.RollbackFailed
	}

	if err := c.store.Update(ctx, applyID, store.UpdateOpts{
		RollbackStatus: &rollbackStatus, RollbackResult: out.Results, RollbackEndedAt: &endedAt,
	}); err != nil {
		c.logger.Error("failed to finalize resumed rollback", "applyId", applyID, "error", err)
	}
	c.publish(ctx, applyID)
}
