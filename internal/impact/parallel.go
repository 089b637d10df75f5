package impact

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/inodb/vibe-pave/internal/vcf"
)

// WorkItem holds a parsed variant ready for classification.
type WorkItem struct {
	Seq     int
	Variant *vcf.Variant
}

// WorkResult holds the classification of a single variant.
type WorkResult struct {
	Seq     int
	Variant *vcf.Variant
	Impacts *VariantImpacts
	Err     error
}

// ParallelClassify classifies work items using a pool of workers.
// Results arrive in completion order; use OrderedCollect to restore sequence
// order. Workers stop when ctx is cancelled. If workers is 0,
// runtime.NumCPU() is used.
func (c *Classifier) ParallelClassify(ctx context.Context, items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	results := make(chan WorkResult, 2*workers)
	g, ctx := errgroup.WithContext(ctx)

	for range workers {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case item, ok := <-items:
					if !ok {
						return nil
					}
					imps, err := c.Classify(item.Variant)
					select {
					case results <- WorkResult{Seq: item.Seq, Variant: item.Variant, Impacts: imps, Err: err}:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
			}
		})
	}

	go func() {
		_ = g.Wait()
		close(results)
	}()
	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// Out-of-order results wait in a pending map until their turn.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r
		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain so workers can exit.
				for range results {
				}
				return err
			}
		}
	}
	return nil
}
