package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpatelsj/layoutapply/internal/layoutapply/driver"
	"github.com/vpatelsj/layoutapply/internal/layoutapply/model"
)

// fakeDriver lets tests control per-op timing and outcome without issuing
// real HTTP calls, the same role the teacher's provider/fake.Provider plays
// for internal/bmdemo/executor.Runner.
type fakeDriver struct {
	delay     time.Duration
	result    model.Status
	suspended bool
}

func (f fakeDriver) Execute(ctx context.Context, op model.Operation) model.Outcome {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return model.Outcome{
		Result:    model.OpResult{OperationID: op.ID, Status: f.result},
		Suspended: f.suspended,
	}
}

// fakeRegistry resolves every kind to the same per-test driver set, keyed
// by operation id so each node can be given distinct timing/outcome.
type fakeRegistry struct {
	mu       sync.Mutex
	byID     map[int]driver.Driver
	fallback driver.Driver
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{byID: map[int]driver.Driver{}, fallback: fakeDriver{result: model.StatusCompleted}}
}

func (r *fakeRegistry) set(id int, d driver.Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[id] = d
}

// For ignores kind: the fake dispatches per operation id via a wrapping
// driver that looks itself up at Execute time.
func (r *fakeRegistry) For(model.Kind) driver.Driver {
	return idDispatchDriver{r}
}

type idDispatchDriver struct{ r *fakeRegistry }

func (d idDispatchDriver) Execute(ctx context.Context, op model.Operation) model.Outcome {
	d.r.mu.Lock()
	impl, ok := d.r.byID[op.ID]
	if !ok {
		impl = d.r.fallback
	}
	d.r.mu.Unlock()
	return impl.Execute(ctx, op)
}

func TestSchedule_EmptyPlan(t *testing.T) {
	s := New(newFakeRegistry(), 4)
	out := s.Schedule(context.Background(), model.Plan{}, func() bool { return false })
	assert.Empty(t, out.Results)
	assert.False(t, out.Suspended)
}

func TestSchedule_IndependentOpsRunInParallel(t *testing.T) {
	reg := newFakeRegistry()
	reg.set(1, fakeDriver{delay: 50 * time.Millisecond, result: model.StatusCompleted})
	reg.set(2, fakeDriver{delay: 50 * time.Millisecond, result: model.StatusCompleted})
	reg.set(3, fakeDriver{result: model.StatusCompleted})

	plan := model.Plan{Operations: []model.Operation{
		{ID: 1}, {ID: 2}, {ID: 3, Deps: []int{1, 2}},
	}}

	start := time.Now()
	s := New(reg, 4)
	out := s.Schedule(context.Background(), plan, func() bool { return false })
	elapsed := time.Since(start)

	require.Len(t, out.Results, 3)
	for _, r := range out.Results {
		assert.Equal(t, model.StatusCompleted, r.Status)
	}
	// S4: parallel ops 1 and 2 should overlap rather than serialize.
	assert.Less(t, elapsed, 180*time.Millisecond)
}

func TestSchedule_ResultsAreSortedByOperationID(t *testing.T) {
	reg := newFakeRegistry()
	plan := model.Plan{Operations: []model.Operation{{ID: 3}, {ID: 1}, {ID: 2}}}
	s := New(reg, 4)
	out := s.Schedule(context.Background(), plan, func() bool { return false })
	require.Len(t, out.Results, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{out.Results[0].OperationID, out.Results[1].OperationID, out.Results[2].OperationID})
}

func TestSchedule_FailureCancelsNotYetStarted(t *testing.T) {
	reg := newFakeRegistry()
	reg.set(1, fakeDriver{result: model.StatusFailed})
	reg.set(2, fakeDriver{result: model.StatusCompleted})

	plan := model.Plan{Operations: []model.Operation{
		{ID: 1}, {ID: 2, Deps: []int{1}}, {ID: 3, Deps: []int{2}},
	}}

	s := New(reg, 1)
	out := s.Schedule(context.Background(), plan, func() bool { return false })

	require.Len(t, out.Results, 3)
	byID := map[int]model.OpResult{}
	for _, r := range out.Results {
		byID[r.OperationID] = r
	}
	assert.Equal(t, model.StatusFailed, byID[1].Status)
	assert.Equal(t, model.StatusCanceled, byID[2].Status)
	assert.Equal(t, model.StatusCanceled, byID[3].Status)
	assert.False(t, out.Suspended)
}

func TestSchedule_CancelSignalCancelsNotYetStarted(t *testing.T) {
	reg := newFakeRegistry()
	reg.set(1, fakeDriver{delay: 30 * time.Millisecond, result: model.StatusCompleted})

	plan := model.Plan{Operations: []model.Operation{
		{ID: 1}, {ID: 2, Deps: []int{1}}, {ID: 3, Deps: []int{1}},
	}}

	var canceled int32Flag
	go func() {
		time.Sleep(10 * time.Millisecond)
		canceled.set(true)
	}()

	s := New(reg, 4)
	out := s.Schedule(context.Background(), plan, canceled.get)

	byID := map[int]model.OpResult{}
	for _, r := range out.Results {
		byID[r.OperationID] = r
	}
	assert.Equal(t, model.StatusCompleted, byID[1].Status)
	assert.Equal(t, model.StatusCanceled, byID[2].Status)
	assert.Equal(t, model.StatusCanceled, byID[3].Status)
}

type int32Flag struct {
	mu sync.Mutex
	v  bool
}

func (f *int32Flag) get() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.v
}

func (f *int32Flag) set(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.v = v
}

func TestSchedule_SuspensionLeavesNotYetStartedPending(t *testing.T) {
	reg := newFakeRegistry()
	reg.set(1, fakeDriver{result: model.StatusFailed, suspended: true})

	plan := model.Plan{Operations: []model.Operation{
		{ID: 1}, {ID: 2, Deps: []int{1}},
	}}

	s := New(reg, 4)
	out := s.Schedule(context.Background(), plan, func() bool { return false })

	require.True(t, out.Suspended)
	require.Len(t, out.Results, 1)
	assert.Equal(t, 1, out.Results[0].OperationID)
	assert.Equal(t, model.StatusFailed, out.Results[0].Status)
}

func TestSchedule_MaxWorkersClamped(t *testing.T) {
	s := New(newFakeRegistry(), 0)
	assert.Equal(t, 1, s.maxWorkers)
	s = New(newFakeRegistry(), 1000)
	assert.Equal(t, 128, s.maxWorkers)
}
