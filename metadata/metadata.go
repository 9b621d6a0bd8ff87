package metadata

import "time"

// TaskMetadata holds the resolved metadata of a task. It is a value
// type and is never modified once built.
type TaskMetadata struct {
	// TimestampMillis is the production time in milliseconds since the
	// Unix epoch. It is always set.
	TimestampMillis int64

	// ScheduledTimeMillis is the earliest time at which the task should
	// be processed, in milliseconds since the Unix epoch. Zero means no
	// schedule was requested.
	ScheduledTimeMillis int64

	SourceApplicationID string
	SourceInstanceID    string
}

// HasScheduledTime reports whether a scheduled time was requested.
// Zero means none, so an explicit scheduled time of 0 is dropped.
func (m TaskMetadata) HasScheduledTime() bool {
	return m.ScheduledTimeMillis != 0
}

// Override lets a caller replace the timing fields of the metadata.
// A nil field keeps the default.
type Override struct {
	Timestamp     *int64
	ScheduledTime *int64
}

// AtTimestamp returns an Override that only sets the timestamp.
func AtTimestamp(ms int64) *Override {
	return &Override{Timestamp: &ms}
}

// ScheduledAt returns an Override that only sets the scheduled time.
func ScheduledAt(ms int64) *Override {
	return &Override{ScheduledTime: &ms}
}

// WithScheduledTime returns a copy of o with the scheduled time set.
func (o Override) WithScheduledTime(ms int64) *Override {
	o.ScheduledTime = &ms
	return &o
}

// Clock returns the current time in milliseconds since the Unix epoch.
type Clock func() int64

// SystemClock reads the wall clock.
func SystemClock() int64 {
	return time.Now().UnixMilli()
}

// Builder resolves TaskMetadata. It only holds immutable state and is
// safe for concurrent use.
type Builder struct {
	applicationID string
	instanceID    string
	clock         Clock
}

// NewBuilder returns a Builder stamping metadata with the given source
// identifiers. A nil clock defaults to SystemClock.
func NewBuilder(applicationID, instanceID string, clock Clock) *Builder {
	if clock == nil {
		clock = SystemClock
	}
	return &Builder{
		applicationID: applicationID,
		instanceID:    instanceID,
		clock:         clock,
	}
}

// Build resolves the metadata for one submission. The clock is read
// only when o does not provide a timestamp.
func (b *Builder) Build(o *Override) TaskMetadata {
	md := TaskMetadata{
		SourceApplicationID: b.applicationID,
		SourceInstanceID:    b.instanceID,
	}
	if o != nil && o.Timestamp != nil {
		md.TimestampMillis = *o.Timestamp
	} else {
		md.TimestampMillis = b.clock()
	}
	if o != nil && o.ScheduledTime != nil {
		md.ScheduledTimeMillis = *o.ScheduledTime
	}
	return md
}
