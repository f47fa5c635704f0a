package queue

import "errors"

// ErrRemoved is returned by Admit when the run was removed from the queue
// while waiting, typically by cancellation.
var ErrRemoved = errors.New("queue: run removed")
