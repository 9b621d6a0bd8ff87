package client

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/heetch/relay/producer"
)

// ErrPending is returned by Result.Delivery before the outcome is known.
var ErrPending = errors.New("task delivery is still pending")

// Result is the eventual outcome of one Put. It is resolved exactly
// once, either with the coordinates of the stored record or with the
// reason it was not stored.
type Result struct {
	once    sync.Once
	done    chan struct{}
	onError func(error)

	delivery producer.Delivery
	err      error
}

func newResult(onError func(error)) *Result {
	return &Result{
		done:    make(chan struct{}),
		onError: onError,
	}
}

// complete resolves r. Only the first call has any effect. The error
// callback runs before r is marked done, so anyone observing Done also
// observes the callback's effects.
func (r *Result) complete(d producer.Delivery, err error) {
	r.once.Do(func() {
		r.delivery, r.err = d, err
		if err != nil && r.onError != nil {
			r.onError(err)
		}
		close(r.done)
	})
}

// Done returns a channel closed once the outcome is known.
func (r *Result) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the outcome is known or ctx is done. Giving up on
// a Result does not cancel the delivery of its task.
func (r *Result) Wait(ctx context.Context) (producer.Delivery, error) {
	select {
	case <-r.done:
		return r.delivery, r.err
	case <-ctx.Done():
		return producer.Delivery{}, ctx.Err()
	}
}

// Delivery returns the outcome without blocking, or ErrPending.
func (r *Result) Delivery() (producer.Delivery, error) {
	select {
	case <-r.done:
		return r.delivery, r.err
	default:
		return producer.Delivery{}, ErrPending
	}
}
