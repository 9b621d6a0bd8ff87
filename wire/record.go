package wire

import (
	"strings"

	"github.com/pkg/errors"
)

// Header is a single record header.
type Header struct {
	Key   string
	Value []byte
}

// Record is an outbound Kafka record, ready to be handed to a producer.
type Record struct {
	Topic string
	Key   []byte
	Value []byte

	// Headers is nil for legacy records.
	Headers []Header

	// Partition forces the destination partition when non-nil.
	// Otherwise the producer's partitioner picks one from Key.
	Partition *int32
}

// Header returns the value of the named header and whether it exists.
func (r *Record) Header(key string) ([]byte, bool) {
	for _, h := range r.Headers {
		if h.Key == key {
			return h.Value, true
		}
	}
	return nil, false
}

// Format selects how metadata travels with a task.
type Format int

const (
	// FormatHeader carries metadata in record headers. It is the default.
	FormatHeader Format = iota

	// FormatLegacy wraps metadata and task in a single protobuf envelope.
	FormatLegacy
)

func (f Format) String() string {
	switch f {
	case FormatHeader:
		return "header"
	case FormatLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// ParseFormat parses the name of a format as returned by Format.String.
// The empty string selects FormatHeader.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "header":
		return FormatHeader, nil
	case "legacy":
		return FormatLegacy, nil
	default:
		return 0, errors.Errorf("unknown wire format %q", s)
	}
}
