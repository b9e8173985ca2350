package skillcycle

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// TaskResult is the per-task output of a pool run.
type TaskResult struct {
	Outcome Outcome
	Err     error
}

// Pool runs many independent tasks with bounded parallelism. Each task
// owns a disjoint manifest and workspace, so tasks never contend on
// shared state.
type Pool struct {
	controller *Controller
	limit      int
}

// NewPool creates a pool that runs at most limit tasks at once.
func NewPool(c *Controller, limit int) *Pool {
	if limit < 1 {
		limit = 1
	}
	return &Pool{controller: c, limit: limit}
}

// RunAll runs every task and returns the per-task outcome. One task
// failing never cancels its siblings; the caller inspects each
// TaskResult instead.
func (p *Pool) RunAll(ctx context.Context, taskIDs []string) map[string]TaskResult {
	var mu sync.Mutex
	results := make(map[string]TaskResult, len(taskIDs))

	g := new(errgroup.Group)
	g.SetLimit(p.limit)
	for _, id := range taskIDs {
		g.Go(func() error {
			out, err := p.controller.Run(ctx, id)
			mu.Lock()
			results[id] = TaskResult{Outcome: out, Err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}
