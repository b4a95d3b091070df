package commands

import "errors"

// errNoDefinitionPaths is returned when neither the configuration, the flags
// nor the environment name a definition path.
var errNoDefinitionPaths = errors.New(
	"no definition path: use --definition-path, definitionPaths in gowiz.yaml or GOWIZ_DEFINITION_PATH")

// ReportedError wraps a failure whose report was already written to the
// console. Only the exit code remains to be set.
type ReportedError struct {
	Err error
}

// Error implements the error interface.
func (e *ReportedError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the reported error.
func (e *ReportedError) Unwrap() error {
	return e.Err
}

// IsReported reports whether err was already written to the console.
func IsReported(err error) bool {
	var reported *ReportedError
	return errors.As(err, &reported)
}
