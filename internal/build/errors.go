package build

import "fmt"

// PipelineError reports which pipeline a build failure came from. The
// wrapped error names the offending input.
type PipelineError struct {
	Pipeline string
	Err      error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s pipeline failed: %v", e.Pipeline, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}
