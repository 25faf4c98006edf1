package repository

import "errors"

// ErrConditionFailed is returned when a conditional write matched no row,
// i.e. the row changed between the caller's read and the write.
var ErrConditionFailed = errors.New("condition failed")
