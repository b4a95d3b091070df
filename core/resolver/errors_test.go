package resolver

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/willibrandon/gowiz/core"
)

func TestGraphConflictsError_Error(t *testing.T) {
	var recorder conflictRecorder
	recorder.add(core.MustParseRequirement("D>0.1.0"), "B==0.1.0", "C==0.1.0")
	recorder.add(core.MustParseRequirement("D==0.1.0"), "C==0.1.0", "B==0.1.0")
	recorder.add(core.MustParseRequirement("D>0.1.0"), "E==1.0.0", "C==0.1.0")

	err := recorder.err()

	var conflictsErr *GraphConflictsError
	if !errors.As(err, &conflictsErr) {
		t.Fatalf("err() = %T, want *GraphConflictsError", err)
	}
	if len(conflictsErr.Conflicts) != 2 {
		t.Fatalf("Conflicts has %d records, want 2 merged records", len(conflictsErr.Conflicts))
	}

	expected := "the dependency graph could not be resolved due to the following requirement conflicts:\n" +
		"  * D >0.1.0 [B==0.1.0, E==1.0.0] conflicts with [C==0.1.0]\n" +
		"  * D ==0.1.0 [C==0.1.0] conflicts with [B==0.1.0]"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestConflictRecorder_Empty(t *testing.T) {
	var recorder conflictRecorder
	if err := recorder.err(); err != nil {
		t.Errorf("err() = %v, want nil", err)
	}
}

func TestGraphInvalidNodesError(t *testing.T) {
	notFound := &core.RequestError{Requirement: "X", Message: "no definition named \"X\"", Err: core.ErrRequestNotFound}
	err := &GraphInvalidNodesError{Errors: map[string][]error{
		"B==1.0.0":     {errors.New("boom")},
		RootIdentifier: {notFound},
	}}

	if ids := err.Identifiers(); !equalStrings(ids, []string{"B==1.0.0", RootIdentifier}) {
		t.Errorf("Identifiers() = %v", ids)
	}
	if !errors.Is(err, core.ErrRequestNotFound) {
		t.Error("errors.Is should find the recorded error kind")
	}

	var reqErr *core.RequestError
	if !errors.As(err, &reqErr) || reqErr.Requirement != "X" {
		t.Error("errors.As should find the recorded request error")
	}

	if !strings.Contains(err.Error(), "root: X: no definition named \"X\"") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestGraphResolutionError(t *testing.T) {
	err := newResolutionError(ErrNoValidPackages, "the dependency graph is empty")
	if err.Error() != "the dependency graph is empty: no valid packages" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, ErrNoValidPackages) {
		t.Error("errors.Is should match the wrapped error")
	}

	bare := newResolutionError(nil, "cannot relink %s", "A")
	if bare.Error() != "cannot relink A" {
		t.Errorf("Error() = %q", bare.Error())
	}

	wrapped := fmt.Errorf("branch: %w", bare)
	var resolutionErr *GraphResolutionError
	if !errors.As(wrapped, &resolutionErr) {
		t.Error("errors.As should find *GraphResolutionError")
	}
}
