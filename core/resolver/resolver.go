// Package resolver computes the ordered list of packages satisfying a set
// of requirements.
//
// Requirements are expanded into a weighted dependency graph rooted at a
// synthetic root. Graphs holding several variants of one definition are
// divided into candidate branches kept on a stack, highest priority on top.
// Each branch then has its version conflicts resolved by combining the
// requirements of the conflicting nodes, nearest to the root first. The
// first branch that resolves and validates yields the packages, deepest
// dependencies first.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/willibrandon/gowiz/core"
	"github.com/willibrandon/gowiz/observability"
)

// DefaultTimeout bounds a resolution when no timeout option is given.
const DefaultTimeout = 5 * time.Minute

// Resolver provides the high-level resolution API.
type Resolver struct {
	catalogue Catalogue
	timeout   time.Duration
	logger    observability.Logger
	observer  Observer
	cache     bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTimeout sets the time budget of a resolution. Zero disables it.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Resolver) {
		r.timeout = timeout
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver sets the observer receiving graph events.
func WithObserver(observer Observer) Option {
	return func(r *Resolver) {
		if observer != nil {
			r.observer = observer
		}
	}
}

// WithCache enables memoizing catalogue extractions across the graph
// branches of each resolution.
func WithCache(enabled bool) Option {
	return func(r *Resolver) {
		r.cache = enabled
	}
}

// New creates a resolver serving requirements from catalogue.
func New(catalogue Catalogue, opts ...Option) *Resolver {
	r := &Resolver{
		catalogue: catalogue,
		timeout:   DefaultTimeout,
		logger:    observability.NewNullLogger(),
		observer:  NopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveRequests parses requirement strings and computes their packages.
func (r *Resolver) ResolveRequests(ctx context.Context, requests []string) ([]*core.Package, error) {
	reqs, err := core.ParseRequirements(requests)
	if err != nil {
		return nil, err
	}
	return r.ComputePackages(ctx, reqs)
}

// ComputePackages resolves requirements into packages ordered by
// descending distance from the root, so dependencies precede their
// dependents.
//
// The position of a requirement sets its priority. Errors are
// *GraphConflictsError, *GraphInvalidNodesError or *GraphResolutionError
// from the last branch tried, ErrResolutionTimeout when the time budget is
// exceeded, or the context error on cancellation.
func (r *Resolver) ComputePackages(ctx context.Context, reqs []core.Requirement) (packages []*core.Package, err error) {
	resolutionID := uuid.NewString()
	ctx, span := observability.StartGraphResolutionSpan(ctx, resolutionID, len(reqs))
	logger := observability.ForResolution(r.logger, resolutionID)
	start := time.Now()
	branches := 0

	defer func() {
		observability.ResolutionDuration.Observe(time.Since(start).Seconds())
		observability.ResolutionsTotal.WithLabelValues(resolutionStatus(err)).Inc()
		observability.SetAttributes(ctx,
			observability.AttrBranchCount.Int(branches),
			observability.AttrPackageCount.Int(len(packages)),
		)
		observability.EndSpanWithError(span, err)
	}()

	catalogue := r.catalogue
	if r.cache {
		catalogue = NewCachedCatalogue(catalogue)
	}

	checkBudget := func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.timeout > 0 && time.Since(start) > r.timeout {
			return fmt.Errorf("%w after %s", ErrResolutionTimeout, r.timeout)
		}
		return nil
	}

	logger.DebugContext(ctx, "Resolving {Requirements}", requirementStrings(reqs))

	graph := NewGraph(catalogue, r.observer, logger)
	graph.UpdateFromRequirements(reqs, RootID)

	stack := []*Graph{graph}
	var lastErr error

	for len(stack) > 0 {
		if err := checkBudget(); err != nil {
			logger.WarnContext(ctx, "Resolution aborted after {Branches} branches: {Error}", branches, err)
			return nil, err
		}

		g := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		branches++

		distances, err := g.resolveConflicts(ctx, checkBudget)
		switch {
		case errors.Is(err, errDivisionRequired):
			graphs, divideErr := g.Divide()
			if divideErr != nil {
				lastErr = divideErr
				r.abandon(ctx, logger, observability.BranchFailed, len(stack), divideErr)
				continue
			}
			for i := len(graphs) - 1; i >= 0; i-- {
				stack = append(stack, graphs[i])
			}
			logger.DebugContext(ctx, "Divided graph into {Count} candidates", len(graphs))
			r.abandon(ctx, logger, observability.BranchDivided, len(stack), nil)
			continue

		case isFatal(err):
			return nil, err

		case err != nil:
			lastErr = err
			reason := observability.BranchFailed
			var conflictsErr *GraphConflictsError
			if errors.As(err, &conflictsErr) {
				reason = observability.BranchConflict
			}
			r.abandon(ctx, logger, reason, len(stack), err)
			continue
		}

		if err := g.validate(distances); err != nil {
			lastErr = err
			r.abandon(ctx, logger, observability.BranchInvalid, len(stack), err)
			continue
		}

		packages = g.extract(distances)
		logger.DebugContext(ctx, "Resolved {Count} packages in {Branches} branches", len(packages), branches)
		return packages, nil
	}

	if lastErr == nil {
		lastErr = newResolutionError(ErrNoValidPackages, "no graph left to resolve")
	}
	return nil, lastErr
}

// abandon records a branch leaving the stack without a result.
func (r *Resolver) abandon(ctx context.Context, logger observability.Logger, reason string, stackSize int, err error) {
	observability.ResolutionBranchesTotal.WithLabelValues(reason).Inc()
	observability.RecordBranch(ctx, reason, stackSize, err)
	if err != nil {
		logger.DebugContext(ctx, "Abandoned graph ({Reason}), {StackSize} left: {Error}", reason, stackSize, err)
	}
}

func isFatal(err error) bool {
	return errors.Is(err, ErrResolutionTimeout) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func resolutionStatus(err error) string {
	switch {
	case err == nil:
		return observability.StatusResolved
	case errors.Is(err, ErrResolutionTimeout):
		return observability.StatusTimedOut
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return observability.StatusCancelled
	default:
		return observability.StatusFailed
	}
}

func requirementStrings(reqs []core.Requirement) []string {
	values := make([]string, len(reqs))
	for i, req := range reqs {
		values[i] = req.String()
	}
	return values
}
