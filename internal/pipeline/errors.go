package pipeline

import "errors"

var (
	// ErrAlreadyProcessing is returned when a run for the same file is in flight.
	ErrAlreadyProcessing = errors.New("file is already being processed")
	// ErrStaleRun is returned by Store writes whose generation has been superseded.
	ErrStaleRun = errors.New("processing run superseded by a newer run")

	errHardStepFailed = errors.New("hard step failed")
)
