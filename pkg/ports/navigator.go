package ports

import "context"

// Navigator is the external collaborator that performs the actual view transition
// once the controller committed a stage change.
// Target is the opaque token taken from domain.Stage.Target.
//
// Navigate may be asynchronous; a nil error only means the request was accepted.
// Retry and cancellation belong to the implementation, the controller never retries.
type Navigator interface {
	Navigate(ctx context.Context, target string) error
}
