// Package scheduler implements the DagScheduler (spec §4.3): it runs a
// Plan's operations with bounded parallelism, honouring dependency edges,
// cancellation, and suspension. The worker-pool/ready-set shape is
// generalized from the teacher's internal/bmdemo/executor.Runner, which
// only ever walked a linear plan.Steps slice; here the "next ready op"
// computation is a real dependency-count decrement instead of a slice
// index, and the stop-dispatch flag the teacher used for a single
// "shutdown all active operations" case is split into two distinct modes
// (stop vs suspend) to match spec §4.3's differing treatment of
// not-yet-started operations.
package scheduler

import (
	"context"
	"sort"
	"sync"

	"github.com/vpatelsj/layoutapply/internal/layoutapply/driver"
	"github.com/vpatelsj/layoutapply/internal/layoutapply/model"
)

// Outcome is the scheduler's result for one plan run. Results covers every
// operation that was dispatched (started); an operation absent from
// Results was never started — this only happens when Suspended is true,
// and such operations are the ResumePlanner's job to pick up.
type Outcome struct {
	Results   []model.OpResult
	Suspended bool
}

// Registry resolves an Operation's Kind to the Driver that executes it.
// *driver.Registry satisfies this directly; tests substitute a fake to
// control timing and outcomes without issuing real HTTP calls.
type Registry interface {
	For(model.Kind) driver.Driver
}

// Scheduler runs Plans against a Registry with bounded concurrency.
type Scheduler struct {
	registry   Registry
	maxWorkers int
}

// New builds a Scheduler. maxWorkers is clamped to [1,128] per spec §4.3.
func New(registry Registry, maxWorkers int) *Scheduler {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if maxWorkers > 128 {
		maxWorkers = 128
	}
	return &Scheduler{registry: registry, maxWorkers: maxWorkers}
}

// CancelSignal is polled by the scheduler before each dispatch; it is
// unrelated to ctx cancellation, which only bounds an individual in-flight
// request's timeout (spec §5's cooperative-cancellation model).
type CancelSignal func() bool

type node struct {
	op         model.Operation
	unmetDeps  int
	dependents []int
}

type stopMode int

const (
	modeRunning stopMode = iota
	modeStop             // failure or cancel observed: drain remaining as CANCELED
	modeSuspend          // a driver suspended: leave remaining untouched (pending)
)

// Schedule runs plan to completion, stop, or suspension. ctx is handed to
// every driver call; the scheduler itself does not watch it. cancel is
// polled independently between dispatches.
func (s *Scheduler) Schedule(ctx context.Context, plan model.Plan, cancel CancelSignal) Outcome {
	nodes := buildGraph(plan)
	if len(nodes) == 0 {
		return Outcome{}
	}

	var mu sync.Mutex
	results := make(map[int]model.OpResult, len(nodes))
	remaining := len(nodes)
	mode := modeRunning

	ready := make(chan int, len(nodes))
	doneCh := make(chan struct{})      // closed when remaining hits 0
	modeChanged := make(chan struct{}) // closed the first time mode leaves modeRunning
	var doneOnce, modeOnce sync.Once

	var wg sync.WaitGroup
	sem := make(chan struct{}, s.maxWorkers)

	setMode := func(m stopMode) {
		mu.Lock()
		changed := mode == modeRunning
		if changed {
			mode = m
		}
		mu.Unlock()
		if changed {
			modeOnce.Do(func() { close(modeChanged) })
		}
	}

	var resolve func(id int, res model.OpResult)
	resolve = func(id int, res model.OpResult) {
		mu.Lock()
		results[id] = res
		remaining--
		rem := remaining
		deps := append([]int(nil), nodes[id].dependents...)
		mu.Unlock()

		for _, depID := range deps {
			mu.Lock()
			nd := nodes[depID]
			nd.unmetDeps--
			push := nd.unmetDeps == 0
			nodes[depID] = nd
			mu.Unlock()
			if push {
				ready <- depID
			}
		}

		if rem == 0 {
			doneOnce.Do(func() { close(doneCh) })
		}
	}

	for id, nd := range nodes {
		if nd.unmetDeps == 0 {
			ready <- id
		}
	}

	quit := make(chan struct{})
	var dispatcherWg sync.WaitGroup
	dispatcherWg.Add(1)
	go func() {
		defer dispatcherWg.Done()
		for {
			select {
			case id := <-ready:
				mu.Lock()
				m := mode
				if m == modeRunning && cancel != nil && cancel() {
					mu.Unlock()
					setMode(modeStop)
					mu.Lock()
					m = modeStop
				}
				mu.Unlock()

				switch m {
				case modeStop:
					resolve(id, model.OpResult{OperationID: id, Status: model.StatusCanceled})
				case modeSuspend:
					// leave pending: do not resolve, do not dispatch.
				default:
					wg.Add(1)
					sem <- struct{}{}
					go func(id int) {
						defer wg.Done()
						defer func() { <-sem }()
						op := nodes[id].op
						out := s.registry.For(op.Kind).Execute(ctx, op)
						res := out.Result
						if res.OperationID == 0 {
							res.OperationID = id
						}
						if out.Suspended {
							setMode(modeSuspend)
						} else if res.Status == model.StatusFailed {
							setMode(modeStop)
						}
						resolve(id, res)
					}(id)
				}
			case <-quit:
				return
			}
		}
	}()

	select {
	case <-doneCh:
	case <-modeChanged:
		mu.Lock()
		m := mode
		mu.Unlock()
		if m == modeSuspend {
			// Suspended operations are deliberately left unresolved
			// (pending, for the ResumePlanner); only in-flight work
			// needs to drain before we stop the dispatcher.
			wg.Wait()
		} else {
			// modeStop cascades CANCELED through the remaining graph
			// inside the dispatcher goroutine; wait for that cascade
			// to actually finish (remaining hits 0) rather than racing
			// close(quit) against it.
			<-doneCh
		}
	}
	close(quit)
	dispatcherWg.Wait()

	mu.Lock()
	finalSuspended := mode == modeSuspend
	ordered := make([]int, 0, len(results))
	for id := range results {
		ordered = append(ordered, id)
	}
	out := make([]model.OpResult, 0, len(ordered))
	sort.Ints(ordered)
	for _, id := range ordered {
		out = append(out, results[id])
	}
	mu.Unlock()

	return Outcome{Results: out, Suspended: finalSuspended}
}

func buildGraph(plan model.Plan) map[int]node {
	nodes := make(map[int]node, len(plan.Operations))
	for _, op := range plan.Operations {
		nodes[op.ID] = node{op: op, unmetDeps: len(op.Deps)}
	}
	for _, op := range plan.Operations {
		for _, dep := range op.Deps {
			if d, ok := nodes[dep]; ok {
				d.dependents = append(d.dependents, op.ID)
				nodes[dep] = d
			}
		}
	}
	return nodes
}
