package research

import (
	"errors"
	"fmt"
)

// ErrRunActive rejects a second submission while a run is still being
// polled; runs against one thread are strictly serialized.
var ErrRunActive = errors.New("a research run is already active for this session")

// SubmissionError wraps a remote failure while creating the user message
// or the run. The task never started; nothing was retried.
type SubmissionError struct {
	Op  string
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission failed (%s): %v", e.Op, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
