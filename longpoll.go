package socketio

import (
	"context"
	"errors"
	"sync"
)

// ErrLongPollFailed is matched by errors returned from LongPoll.Wait when the
// poll was failed instead of completed.
var ErrLongPollFailed = errors.New("long poll failed")

// LongPollError carries the reason a pending long-poll was abandoned.
type LongPollError struct {
	Reason string
}

// Error returns the failure reason
func (e *LongPollError) Error() string {
	return e.Reason
}

// Unwrap returns ErrLongPollFailed
func (e *LongPollError) Unwrap() error {
	return ErrLongPollFailed
}

// LongPoll is a one-shot completion handle for an outstanding polling
// request. The first Complete or Fail wins; later calls are ignored.
type LongPoll struct {
	once  sync.Once
	done  chan struct{}
	frame string
	err   error
}

// NewLongPoll creates an unresolved long-poll
func NewLongPoll() *LongPoll {
	return &LongPoll{done: make(chan struct{})}
}

// Complete resolves the poll with a frame for the client
func (lp *LongPoll) Complete(frame string) {
	lp.once.Do(func() {
		lp.frame = frame
		close(lp.done)
	})
}

// Fail resolves the poll with an error
func (lp *LongPoll) Fail(reason string) {
	lp.once.Do(func() {
		lp.err = &LongPollError{Reason: reason}
		close(lp.done)
	})
}

// Wait blocks until the poll is resolved or ctx is done
func (lp *LongPoll) Wait(ctx context.Context) (string, error) {
	select {
	case <-lp.done:
		return lp.frame, lp.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
