// Package resume implements the ResumePlanner (spec §4.6): the residual
// sub-DAG of a suspended apply, preserving dependencies and targets
// verbatim. Grounded on the same derived-plan shape as
// internal/layoutapply/rollback, which the teacher's internal/bmdemo/plans
// package also used for producing a follow-on plan.Plan from a prior run.
package resume

import "github.com/vpatelsj/layoutapply/internal/layoutapply/model"

// Plan returns the subgraph of original whose operations are not in a
// {COMPLETED, SKIPPED} terminal state per the recorded results: pending
// operations (absent from results because the scheduler suspended before
// dispatching them), FAILED operations (including the one whose exhausted
// retry ladder caused the suspension), and CANCELED operations. IDs, deps,
// and targets are preserved verbatim so the residual plan can be scheduled
// as-is.
func Plan(original model.Plan, results []model.OpResult) model.Plan {
	done := make(map[int]bool, len(results))
	for _, r := range results {
		if r.Status == model.StatusCompleted || r.Status == model.StatusSkipped {
			done[r.OperationID] = true
		}
	}

	out := make([]model.Operation, 0, len(original.Operations))
	for _, op := range original.Operations {
		if !done[op.ID] {
			out = append(out, op)
		}
	}
	return model.Plan{Operations: out}
}
