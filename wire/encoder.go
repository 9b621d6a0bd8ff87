package wire

import (
	"github.com/pkg/errors"

	"github.com/heetch/relay/codec"
	"github.com/heetch/relay/metadata"
)

// Names of the headers written by FormatHeader.
const (
	HeaderTimestampMillis     = "dt_timestamp_millis"
	HeaderScheduledTimeMillis = "dt_scheduled_time_millis"
	HeaderSourceApplicationID = "dt_source_application_id"
	HeaderSourceInstanceID    = "dt_source_instance_id"
)

// Encoder builds records in one wire format.
// Implementations hold no mutable state and are safe for concurrent use.
type Encoder interface {
	// Format returns the format produced by the encoder.
	Format() Format

	// Encode builds the record for an already serialized task.
	Encode(topic string, partition *int32, key, task []byte, md metadata.TaskMetadata) (*Record, error)
}

// NewEncoder returns the Encoder for the given format.
func NewEncoder(f Format) (Encoder, error) {
	switch f {
	case FormatHeader:
		return headerEncoder{
			strings: codec.String(),
			ints:    codec.Int64(),
		}, nil
	case FormatLegacy:
		return envelopeEncoder{}, nil
	default:
		return nil, errors.Errorf("unsupported wire format %d", f)
	}
}

type headerEncoder struct {
	strings codec.Codec
	ints    codec.Codec
}

func (headerEncoder) Format() Format {
	return FormatHeader
}

func (e headerEncoder) Encode(topic string, partition *int32, key, task []byte, md metadata.TaskMetadata) (*Record, error) {
	headers := make([]Header, 0, 4)
	add := func(name string, c codec.Codec, v interface{}) error {
		data, err := c.Encode(v)
		if err != nil {
			return errors.Wrapf(err, "cannot encode header %s", name)
		}
		headers = append(headers, Header{Key: name, Value: data})
		return nil
	}

	if err := add(HeaderSourceApplicationID, e.strings, md.SourceApplicationID); err != nil {
		return nil, err
	}
	if err := add(HeaderSourceInstanceID, e.strings, md.SourceInstanceID); err != nil {
		return nil, err
	}
	if err := add(HeaderTimestampMillis, e.ints, md.TimestampMillis); err != nil {
		return nil, err
	}
	if md.HasScheduledTime() {
		if err := add(HeaderScheduledTimeMillis, e.ints, md.ScheduledTimeMillis); err != nil {
			return nil, err
		}
	}

	return &Record{
		Topic:     topic,
		Key:       key,
		Value:     task,
		Headers:   headers,
		Partition: partition,
	}, nil
}

type envelopeEncoder struct{}

func (envelopeEncoder) Format() Format {
	return FormatLegacy
}

func (envelopeEncoder) Encode(topic string, partition *int32, key, task []byte, md metadata.TaskMetadata) (*Record, error) {
	return &Record{
		Topic:     topic,
		Key:       key,
		Value:     marshalEnvelope(task, md),
		Partition: partition,
	}, nil
}
