package resolver

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/willibrandon/gowiz/core"
)

// ConcurrencyTracker optionally tracks concurrent resolutions in ParallelResolver.
type ConcurrencyTracker interface {
	// Enter is called when a worker starts a resolution.
	Enter()
	// Exit is called when a worker finishes a resolution.
	Exit()
}

// ParallelResolver resolves independent requirement sets concurrently.
//
// Each set is resolved by its own single-threaded resolution. When the
// resolver caches extractions, one cache is shared by every set.
type ParallelResolver struct {
	resolver   *Resolver
	maxWorkers int
	tracker    ConcurrencyTracker // Optional concurrency tracker
}

// NewParallelResolver creates a new parallel resolver.
func NewParallelResolver(resolver *Resolver, maxWorkers int) *ParallelResolver {
	if maxWorkers <= 0 {
		maxWorkers = 10 // Default
	}

	shared := *resolver
	if shared.cache {
		shared.catalogue = NewCachedCatalogue(resolver.catalogue)
		shared.cache = false
	}

	return &ParallelResolver{
		resolver:   &shared,
		maxWorkers: maxWorkers,
	}
}

// WithTracker sets an optional concurrency tracker.
func (pr *ParallelResolver) WithTracker(tracker ConcurrencyTracker) *ParallelResolver {
	pr.tracker = tracker
	return pr
}

// ResolveAll resolves every requirement set and returns the packages of
// each set at the same index. The first failure cancels the remaining
// resolutions.
func (pr *ParallelResolver) ResolveAll(
	ctx context.Context,
	sets [][]core.Requirement,
) ([][]*core.Package, error) {
	results := make([][]*core.Package, len(sets))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(pr.maxWorkers)

	for i, reqs := range sets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			// Track concurrency if tracker is set
			if pr.tracker != nil {
				pr.tracker.Enter()
				defer pr.tracker.Exit()
			}

			packages, err := pr.resolver.ComputePackages(ctx, reqs)
			if err != nil {
				return fmt.Errorf("resolve set %d: %w", i, err)
			}

			results[i] = packages
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// BatchResolve resolves requirement sets in batches of batchSize.
func (pr *ParallelResolver) BatchResolve(
	ctx context.Context,
	sets [][]core.Requirement,
	batchSize int,
) ([][]*core.Package, error) {
	if batchSize <= 0 {
		batchSize = pr.maxWorkers
	}

	results := make([][]*core.Package, 0, len(sets))

	// Process in batches
	for i := 0; i < len(sets); i += batchSize {
		end := min(i+batchSize, len(sets))

		batchResults, err := pr.ResolveAll(ctx, sets[i:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d: %w", i/batchSize, err)
		}

		results = append(results, batchResults...)
	}

	return results, nil
}
