package client

import (
	"github.com/heetch/relay/metadata"
)

// PutOption customizes a single Put.
type PutOption func(*putOptions)

type putOptions struct {
	override  *metadata.Override
	partition *int32
	onError   func(error)
}

func (o *putOptions) ensureOverride() *metadata.Override {
	if o.override == nil {
		o.override = &metadata.Override{}
	}
	return o.override
}

// WithMetadata replaces the timing metadata defaults with o. Options
// are applied in order, so a later WithTimestamp or WithScheduledTime
// refines it.
func WithMetadata(o metadata.Override) PutOption {
	return func(opts *putOptions) {
		opts.override = &o
	}
}

// WithTimestamp stamps the task with ms instead of the client clock.
func WithTimestamp(ms int64) PutOption {
	return func(opts *putOptions) {
		opts.ensureOverride().Timestamp = &ms
	}
}

// WithScheduledTime asks workers not to process the task before ms.
// A scheduled time of 0 is the same as none and is not sent.
func WithScheduledTime(ms int64) PutOption {
	return func(opts *putOptions) {
		opts.ensureOverride().ScheduledTime = &ms
	}
}

// WithPartition sends the task to the given partition instead of the
// one derived from its key.
func WithPartition(partition int32) PutOption {
	return func(opts *putOptions) {
		opts.partition = &partition
	}
}

// OnError registers fn to be called with the delivery error if the
// task cannot be stored. It is never called on success, and is called
// at most once, from the producer's goroutine: it must not block, and
// must not call Put on the same client, which can deadlock once the
// producer's buffers are full.
func OnError(fn func(error)) PutOption {
	return func(opts *putOptions) {
		opts.onError = fn
	}
}
