package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the tracer name for gowiz operations
	TracerName = "github.com/willibrandon/gowiz"
)

// Common attribute keys
const (
	AttrResolutionID     = attribute.Key("wiz.resolution.id")
	AttrRequirementCount = attribute.Key("wiz.requirement.count")
	AttrPackageCount     = attribute.Key("wiz.package.count")
	AttrBranchCount      = attribute.Key("wiz.branch.count")
	AttrStackSize        = attribute.Key("wiz.stack.size")
	AttrDefinition       = attribute.Key("wiz.definition")
	AttrOperation        = attribute.Key("wiz.operation")
	AttrPathCount        = attribute.Key("wiz.path.count")
	AttrDefinitionCount  = attribute.Key("wiz.definition.count")
)

// StartGraphResolutionSpan starts a span for one package resolution
func StartGraphResolutionSpan(ctx context.Context, resolutionID string, requirementCount int) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerName, "graph.resolve",
		trace.WithAttributes(
			AttrResolutionID.String(resolutionID),
			AttrRequirementCount.Int(requirementCount),
			AttrOperation.String("resolve"),
		),
	)
}

// StartDefinitionLoadSpan starts a span for loading definition files
func StartDefinitionLoadSpan(ctx context.Context, pathCount int) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerName, "definitions.load",
		trace.WithAttributes(
			AttrPathCount.Int(pathCount),
			AttrOperation.String("load"),
		),
	)
}

// RecordBranch records a graph branch leaving the resolution stack on the current span
func RecordBranch(ctx context.Context, reason string, stackSize int, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("branch.reason", reason),
		AttrStackSize.Int(stackSize),
	}
	if err != nil {
		attrs = append(attrs, attribute.String("branch.error", err.Error()))
	}
	AddEvent(ctx, "branch", attrs...)
}

// RecordConflict records a resolved version conflict on the current span
func RecordConflict(ctx context.Context, definition string, candidates int) {
	AddEvent(ctx, "conflict",
		AttrDefinition.String(definition),
		attribute.Int("conflict.candidates", candidates),
	)
}

// EndSpanWithError ends a span with an error status
func EndSpanWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
