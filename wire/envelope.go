package wire

import (
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/heetch/relay/metadata"
)

// Field numbers of the protobuf messages written in legacy records.
//
//	message TaskMetadataProto {
//	  int64  timestamp_millis      = 1;
//	  string source_application_id = 2;
//	  string source_instance_id    = 3;
//	  int64  retry_count           = 4;
//	  int64  scheduled_time_millis = 5;
//	}
//
//	message DecatonTaskRequest {
//	  TaskMetadataProto metadata        = 1;
//	  bytes             serialized_task = 2;
//	}
//
// retry_count is owned by consumers and never written here.
const (
	fieldTimestampMillis     protowire.Number = 1
	fieldSourceApplicationID protowire.Number = 2
	fieldSourceInstanceID    protowire.Number = 3
	fieldScheduledTimeMillis protowire.Number = 5

	fieldRequestMetadata       protowire.Number = 1
	fieldRequestSerializedTask protowire.Number = 2
)

// ErrMalformed is returned when a record cannot be decoded.
var ErrMalformed = errors.New("malformed task record")

// marshalEnvelope follows proto3 rules: zero values are omitted, and
// fields are written in field number order so the output is
// deterministic.
func marshalEnvelope(task []byte, md metadata.TaskMetadata) []byte {
	meta := marshalMetadata(md)

	b := make([]byte, 0, len(meta)+len(task)+16)
	b = protowire.AppendTag(b, fieldRequestMetadata, protowire.BytesType)
	b = protowire.AppendBytes(b, meta)
	if len(task) > 0 {
		b = protowire.AppendTag(b, fieldRequestSerializedTask, protowire.BytesType)
		b = protowire.AppendBytes(b, task)
	}
	return b
}

func marshalMetadata(md metadata.TaskMetadata) []byte {
	var b []byte
	if md.TimestampMillis != 0 {
		b = protowire.AppendTag(b, fieldTimestampMillis, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(md.TimestampMillis))
	}
	if md.SourceApplicationID != "" {
		b = protowire.AppendTag(b, fieldSourceApplicationID, protowire.BytesType)
		b = protowire.AppendString(b, md.SourceApplicationID)
	}
	if md.SourceInstanceID != "" {
		b = protowire.AppendTag(b, fieldSourceInstanceID, protowire.BytesType)
		b = protowire.AppendString(b, md.SourceInstanceID)
	}
	if md.HasScheduledTime() {
		b = protowire.AppendTag(b, fieldScheduledTimeMillis, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(md.ScheduledTimeMillis))
	}
	return b
}

func unmarshalEnvelope(b []byte) (task []byte, md metadata.TaskMetadata, err error) {
	err = walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.BytesType || (num != fieldRequestMetadata && num != fieldRequestSerializedTask) {
			return 0, nil
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n, nil
		}
		switch num {
		case fieldRequestMetadata:
			m, merr := unmarshalMetadata(v)
			if merr != nil {
				return 0, merr
			}
			md = m
		case fieldRequestSerializedTask:
			task = v
		}
		return n, nil
	})
	return task, md, err
}

func unmarshalMetadata(b []byte) (md metadata.TaskMetadata, err error) {
	err = walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case typ == protowire.VarintType && (num == fieldTimestampMillis || num == fieldScheduledTimeMillis):
			v, n := protowire.ConsumeVarint(b)
			if num == fieldTimestampMillis {
				md.TimestampMillis = int64(v)
			} else {
				md.ScheduledTimeMillis = int64(v)
			}
			return n, nil
		case typ == protowire.BytesType && (num == fieldSourceApplicationID || num == fieldSourceInstanceID):
			v, n := protowire.ConsumeString(b)
			if num == fieldSourceApplicationID {
				md.SourceApplicationID = v
			} else {
				md.SourceInstanceID = v
			}
			return n, nil
		}
		return 0, nil
	})
	return md, err
}

// walkFields calls fn for every field of a protobuf message. fn
// returns the number of bytes it consumed, 0 to skip the field, or a
// negative protowire error code.
func walkFields(b []byte, fn func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errors.Wrap(ErrMalformed, protowire.ParseError(n).Error())
		}
		b = b[n:]

		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return errors.Wrap(ErrMalformed, protowire.ParseError(m).Error())
		}
		b = b[m:]
	}
	return nil
}
