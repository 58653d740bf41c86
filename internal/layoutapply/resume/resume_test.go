package resume

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vpatelsj/layoutapply/internal/layoutapply/model"
)

func TestPlan_KeepsFailedAndPendingOps(t *testing.T) {
	original := model.Plan{Operations: []model.Operation{
		{ID: 1, Kind: model.KindBoot},
		{ID: 2, Kind: model.KindConnect, Deps: []int{1}},
		{ID: 3, Kind: model.KindStart, Deps: []int{2}},
	}}
	results := []model.OpResult{
		{OperationID: 1, Status: model.StatusCompleted},
		{OperationID: 2, Status: model.StatusFailed},
		// op 3 never ran (scheduler suspended before dispatch): no result.
	}

	residual := Plan(original, results)

	ids := make([]int, 0, len(residual.Operations))
	for _, op := range residual.Operations {
		ids = append(ids, op.ID)
	}
	assert.ElementsMatch(t, []int{2, 3}, ids)
}

func TestPlan_SkipsCompletedAndSkipped(t *testing.T) {
	original := model.Plan{Operations: []model.Operation{
		{ID: 1}, {ID: 2}, {ID: 3},
	}}
	results := []model.OpResult{
		{OperationID: 1, Status: model.StatusCompleted},
		{OperationID: 2, Status: model.StatusSkipped},
		{OperationID: 3, Status: model.StatusCanceled},
	}

	residual := Plan(original, results)
	assert.Len(t, residual.Operations, 1)
	assert.Equal(t, 3, residual.Operations[0].ID)
}

func TestPlan_PreservesDepsAndTargetsVerbatim(t *testing.T) {
	original := model.Plan{Operations: []model.Operation{
		{ID: 1, Kind: model.KindBoot, Targets: model.Targets{DeviceID: "D9"}, Deps: []int{}},
	}}
	residual := Plan(original, nil)
	assert.Equal(t, original.Operations, residual.Operations)
}
