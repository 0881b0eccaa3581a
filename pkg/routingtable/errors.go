package routingtable

import "errors"

var (
	// ErrInvalidFilter is returned when a topic filter is malformed, for
	// example when "#" is not the last level.
	ErrInvalidFilter = errors.New("invalid topic filter")
	// ErrInvalidTopic is returned when a concrete topic is empty or contains wildcards
	ErrInvalidTopic = errors.New("invalid topic")
	// ErrNilHandle is returned when a nil handle is registered or removed
	ErrNilHandle = errors.New("handle cannot be nil")
)
