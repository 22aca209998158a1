package job

import "errors"

var (
	ErrNotFound = errors.New("job not found")
	ErrConflict = errors.New("job status conflict")
)
