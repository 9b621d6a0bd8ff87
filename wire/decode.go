package wire

import (
	"github.com/pkg/errors"

	"github.com/heetch/relay/codec"
	"github.com/heetch/relay/metadata"
)

var (
	stringValues = codec.String()
	int64Values  = codec.Int64()
)

// Decode recovers the serialized task and its metadata from a record
// produced in either format. Records carrying the timestamp header are
// read as FormatHeader, any other record as FormatLegacy. An empty task
// is always returned as a non-nil empty slice.
func Decode(r *Record) (task []byte, md metadata.TaskMetadata, err error) {
	if _, ok := r.Header(HeaderTimestampMillis); ok {
		task, md, err = decodeHeaders(r)
	} else {
		task, md, err = unmarshalEnvelope(r.Value)
		err = errors.Wrap(err, "cannot decode legacy envelope")
	}
	if err != nil {
		return nil, metadata.TaskMetadata{}, err
	}
	if task == nil {
		task = []byte{}
	}
	return task, md, nil
}

func decodeHeaders(r *Record) ([]byte, metadata.TaskMetadata, error) {
	var md metadata.TaskMetadata
	for _, h := range r.Headers {
		var target interface{}
		values := stringValues
		switch h.Key {
		case HeaderSourceApplicationID:
			target = &md.SourceApplicationID
		case HeaderSourceInstanceID:
			target = &md.SourceInstanceID
		case HeaderTimestampMillis:
			target, values = &md.TimestampMillis, int64Values
		case HeaderScheduledTimeMillis:
			target, values = &md.ScheduledTimeMillis, int64Values
		default:
			continue
		}
		if err := values.Decode(h.Value, target); err != nil {
			return nil, metadata.TaskMetadata{}, errors.Wrapf(ErrMalformed, "header %s: %v", h.Key, err)
		}
	}
	return r.Value, md, nil
}
