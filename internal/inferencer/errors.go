package inferencer

import "errors"

// Data-integrity errors. They are fatal for the current call and are never
// retried; the experiment driver is expected to halt on them.
var (
	ErrMissingLabel       = errors.New("labels do not exist")
	ErrMissingPointTagset = errors.New("point tagset not found")
	ErrMissingMetadata    = errors.New("metadata does not exist")
)
