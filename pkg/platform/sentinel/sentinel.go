package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrStorageUnavailable: backing store unreachable; retry policy is the caller's concern
// - ErrInvalidJobState: operation attempted on a job in the wrong lifecycle state
// - ErrDuplicateIdentifier: identifier collision that should be unreachable given the
//   sequence allocator's atomicity; fatal, the operation aborts rather than overwrites
// - ErrInvalidArgument: caller supplied input the operation cannot act on
var (
	ErrNotFound            = errors.New("not found")
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrInvalidJobState     = errors.New("invalid job state")
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	ErrInvalidArgument     = errors.New("invalid argument")
)
