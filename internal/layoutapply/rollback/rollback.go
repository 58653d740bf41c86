// Package rollback implements the RollbackPlanner (spec §4.5): it derives
// an inverse plan from a partial apply's recorded OpResults, without
// re-reading hardware state. Grounded on the teacher's
// internal/bmdemo/plans package, which built a derived plan.Plan from a
// prior run's step outcomes (there: the redeploy/rollback variant of a
// provisioning plan) the same shape: walk recorded results, not live state.
package rollback

import "github.com/vpatelsj/layoutapply/internal/layoutapply/model"

// inverseKind is the fixed boot<->shutdown, connect<->disconnect,
// start<->stop mapping spec §4.5 names explicitly.
var inverseKind = map[model.Kind]model.Kind{
	model.KindBoot:       model.KindShutdown,
	model.KindShutdown:   model.KindBoot,
	model.KindConnect:    model.KindDisconnect,
	model.KindDisconnect: model.KindConnect,
	model.KindStart:      model.KindStop,
	model.KindStop:       model.KindStart,
}

// Plan derives the inverse plan for apply from the recorded applyResult.
//
// Rollback-eligibility (spec §4.5 Open Question 1, resolved in SPEC_FULL.md):
// only operations whose recorded status is COMPLETED contribute an inverse.
// An op that is FAILED, CANCELED, or SKIPPED — including a partially-
// successful op such as a connect that powered a device on but never
// completed the aggregation call — contributes nothing, since its OpResult
// carries no evidence of which external effect, if any, actually landed.
// Requiring COMPLETED is the only reading of "successfully-executed op"
// that does not require guessing at partial-effect semantics the source
// does not document.
func Plan(apply model.Plan, results []model.OpResult) model.Plan {
	completed := make(map[int]bool, len(results))
	for _, r := range results {
		if r.Status == model.StatusCompleted {
			completed[r.OperationID] = true
		}
	}

	inverseID := make(map[int]int, len(apply.Operations))
	out := make([]model.Operation, 0, len(completed))
	next := 1
	for _, op := range apply.Operations {
		if !completed[op.ID] {
			continue
		}
		inv, ok := inverseKind[op.Kind]
		if !ok {
			continue
		}
		inverseID[op.ID] = next
		out = append(out, model.Operation{
			ID:      next,
			Kind:    inv,
			Targets: op.Targets,
		})
		next++
	}

	// Reverse dependency edges: if A depended on B in the apply, B_inv
	// depends on A_inv in the rollback (undo B only after undoing A).
	byOrigID := make(map[int]int, len(out))
	for i, op := range apply.Operations {
		_ = i
		if id, ok := inverseID[op.ID]; ok {
			byOrigID[op.ID] = id
		}
	}
	// A depends on B in the apply (A ran after B) => B_inv depends on A_inv
	// in the rollback (undo A before undoing B).
	for _, op := range apply.Operations {
		invID, ok := byOrigID[op.ID] // A_inv
		if !ok {
			continue
		}
		for _, dep := range op.Deps {
			depInvID, ok := byOrigID[dep] // B_inv
			if !ok {
				continue
			}
			for i := range out {
				if out[i].ID == depInvID {
					out[i].Deps = append(out[i].Deps, invID)
				}
			}
		}
	}

	return model.Plan{Operations: out}
}
