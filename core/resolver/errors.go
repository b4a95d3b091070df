package resolver

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/willibrandon/gowiz/core"
)

var (
	// ErrResolutionTimeout is returned when a resolution exceeds its time budget
	ErrResolutionTimeout = errors.New("resolution timed out")

	// ErrNoValidPackages is wrapped by the error returned for a graph without packages
	ErrNoValidPackages = errors.New("no valid packages")

	// errDivisionRequired signals that a graph holds variant conflicts and
	// must be divided before conflict resolution can continue
	errDivisionRequired = errors.New("graph division required")
)

// GraphResolutionError is a fatal failure of one graph branch.
type GraphResolutionError struct {
	Message string
	Err     error
}

// Error implements the error interface.
func (e *GraphResolutionError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap returns the underlying error.
func (e *GraphResolutionError) Unwrap() error {
	return e.Err
}

func newResolutionError(err error, format string, args ...any) *GraphResolutionError {
	return &GraphResolutionError{Message: fmt.Sprintf(format, args...), Err: err}
}

// ConflictRecord describes one requirement taking part in a conflict.
type ConflictRecord struct {
	// Requirement is the requirement used by the parents
	Requirement core.Requirement

	// Identifiers are the parents using the requirement
	Identifiers []string

	// ConflictingIdentifiers are the parents whose requirements are incompatible with it
	ConflictingIdentifiers []string
}

// String renders "requirement [parents] conflicts with [parents]".
func (r ConflictRecord) String() string {
	return fmt.Sprintf("%s [%s] conflicts with [%s]",
		r.Requirement.String(),
		strings.Join(r.Identifiers, ", "),
		strings.Join(r.ConflictingIdentifiers, ", "),
	)
}

// GraphConflictsError reports requirements no single package can satisfy.
type GraphConflictsError struct {
	Conflicts []ConflictRecord
}

// Error implements the error interface.
func (e *GraphConflictsError) Error() string {
	var b strings.Builder
	b.WriteString("the dependency graph could not be resolved due to the following requirement conflicts:")
	for _, record := range e.Conflicts {
		b.WriteString("\n  * ")
		b.WriteString(record.String())
	}
	return b.String()
}

// Definitions returns the definition names involved in the conflict, sorted.
func (e *GraphConflictsError) Definitions() []string {
	var names []string
	for _, record := range e.Conflicts {
		name := record.Requirement.QualifiedName()
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// conflictRecorder merges incompatible requirement pairs into records.
type conflictRecorder struct {
	records []ConflictRecord
	index   map[string]int
}

func (c *conflictRecorder) add(req core.Requirement, parent string, conflicting ...string) {
	if c.index == nil {
		c.index = make(map[string]int)
	}

	key := req.String()
	i, ok := c.index[key]
	if !ok {
		i = len(c.records)
		c.index[key] = i
		c.records = append(c.records, ConflictRecord{Requirement: req})
	}

	record := &c.records[i]
	if !slices.Contains(record.Identifiers, parent) {
		record.Identifiers = append(record.Identifiers, parent)
	}
	for _, other := range conflicting {
		if !slices.Contains(record.ConflictingIdentifiers, other) {
			record.ConflictingIdentifiers = append(record.ConflictingIdentifiers, other)
		}
	}
}

func (c *conflictRecorder) err() error {
	if len(c.records) == 0 {
		return nil
	}
	return &GraphConflictsError{Conflicts: c.records}
}

// GraphInvalidNodesError reports reachable nodes carrying extraction errors.
type GraphInvalidNodesError struct {
	// Errors maps a node identifier ("root" for the top-level requests) to its errors
	Errors map[string][]error
}

// Error implements the error interface.
func (e *GraphInvalidNodesError) Error() string {
	var b strings.Builder
	b.WriteString("the dependency graph is invalid:")
	for _, identifier := range e.Identifiers() {
		for _, err := range e.Errors[identifier] {
			fmt.Fprintf(&b, "\n  * %s: %v", identifier, err)
		}
	}
	return b.String()
}

// Identifiers returns the invalid node identifiers, sorted.
func (e *GraphInvalidNodesError) Identifiers() []string {
	identifiers := make([]string, 0, len(e.Errors))
	for identifier := range e.Errors {
		identifiers = append(identifiers, identifier)
	}
	slices.Sort(identifiers)
	return identifiers
}

// Unwrap returns every recorded error so errors.Is can match their kinds.
func (e *GraphInvalidNodesError) Unwrap() []error {
	var errs []error
	for _, identifier := range e.Identifiers() {
		errs = append(errs, e.Errors[identifier]...)
	}
	return errs
}
