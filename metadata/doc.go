// Package metadata resolves the out-of-band attributes carried with
// every task: when it was produced, when it should run, and which
// application instance produced it.
//
// Metadata is resolved from the client's identity, a clock and an
// optional caller Override:
//
//	b := metadata.NewBuilder("billing", "billing-7f9c", metadata.SystemClock)
//	md := b.Build(metadata.ScheduledAt(deadline.UnixMilli()))
//
// The source identifiers always come from the Builder; an Override can
// only change the timing fields.
package metadata
