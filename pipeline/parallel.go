package pipeline

import (
	"context"
	"runtime"
	"strconv"
	"sync"

	"github.com/flowforge/pipeline/pipectx"
	"golang.org/x/sync/errgroup"
)

// childContextFor derives a child Context annotated with the element's
// index and a synthetic thread id, as required of Parallel's per-element
// execution.
func childContextFor(parent *pipectx.Context, index int) *pipectx.Context {
	var child *pipectx.Context
	if parent != nil {
		child = parent.CreateChildContext()
	} else {
		child = pipectx.New("", "")
	}
	child.SetProperty(pipectx.KeyParallelPipelineIndex, index)
	child.SetProperty(pipectx.KeyParallelPipelineThreadID, goroutineTag(index))
	return child
}

// goroutineTag is a synthetic, deterministic stand-in for a thread id -
// Go goroutines have no stable identifier, so callers get a label
// derived from the element's index instead.
func goroutineTag(index int) string {
	return "worker-" + strconv.Itoa(index)
}

// ParallelOrdered runs p over each input concurrently, bounded by
// maxConcurrency (<=0 defaults to CPU count), and returns results in
// input order.
func ParallelOrdered[In, Out any](ctx context.Context, p Pipeline[In, Out], inputs []In, parent *pipectx.Context, maxConcurrency int) ([]Out, error) {
	if maxConcurrency <= 0 {
		maxConcurrency = runtime.NumCPU()
	}

	results := make([]Out, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			child := childContextFor(parent, i)
			out, err := p.Execute(gctx, in, child)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ParallelUnordered runs p over each input concurrently, streaming
// results in completion order via a guarded append. Failures are
// collected rather than aborting the remaining work, so the length of
// results plus errs always equals len(inputs).
func ParallelUnordered[In, Out any](ctx context.Context, p Pipeline[In, Out], inputs []In, parent *pipectx.Context, maxConcurrency int) ([]Out, []error) {
	if maxConcurrency <= 0 {
		maxConcurrency = runtime.NumCPU()
	}

	sem := make(chan struct{}, maxConcurrency)
	var mu sync.Mutex
	var results []Out
	var errs []error
	var wg sync.WaitGroup

	for i, in := range inputs {
		i, in := i, in
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			child := childContextFor(parent, i)
			out, err := p.Execute(ctx, in, child)

			mu.Lock()
			if err != nil {
				errs = append(errs, err)
			} else {
				results = append(results, out)
			}
			mu.Unlock()
		}()
	}

	wg.Wait()
	return results, errs
}

// DataflowParallel runs p over inputs through an explicit bounded work
// queue of capacity boundedCapacity; the producer blocks when the queue
// is full. When preserveOrder is true, results are returned in input
// order; otherwise in completion order.
func DataflowParallel[In, Out any](ctx context.Context, p Pipeline[In, Out], inputs []In, parent *pipectx.Context, boundedCapacity int, preserveOrder bool) ([]Out, error) {
	if boundedCapacity <= 0 {
		boundedCapacity = runtime.NumCPU()
	}

	type job struct {
		index int
		input In
	}
	jobs := make(chan job, boundedCapacity)

	results := make([]Out, len(inputs))
	g, gctx := errgroup.WithContext(ctx)

	workers := boundedCapacity
	if workers > len(inputs) {
		workers = len(inputs)
	}
	if workers == 0 {
		return results, nil
	}

	var mu sync.Mutex
	var unordered []Out

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for j := range jobs {
				child := childContextFor(parent, j.index)
				child.SetProperty(pipectx.KeyDataflowProcessedCount, j.index+1)

				out, err := p.Execute(gctx, j.input, child)
				if err != nil {
					return err
				}
				if preserveOrder {
					results[j.index] = out
				} else {
					mu.Lock()
					unordered = append(unordered, out)
					mu.Unlock()
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(jobs)
		for i, in := range inputs {
			select {
			case jobs <- job{index: i, input: in}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if preserveOrder {
		return results, nil
	}
	return unordered, nil
}
