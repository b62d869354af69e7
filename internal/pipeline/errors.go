package pipeline

import "errors"

// ErrStepPanic wraps a panic recovered from a pipeline step.
var ErrStepPanic = errors.New("pipeline step panicked")
