// Package wire turns a serialized task and its metadata into a Kafka
// record. Two formats exist and a client picks one for its whole
// lifetime:
//
// FormatHeader writes the task bytes untouched as the record value and
// carries every metadata field in its own record header, so consumers
// can route or schedule a task without decoding its body.
//
// FormatLegacy bundles metadata and task into a single protobuf
// envelope (DecatonTaskRequest) written as the record value, for
// consumers that predate record headers.
//
// Both formats carry the same information: Decode recovers the same
// task bytes and metadata from either shape.
package wire
