// Package codec holds the small encoding building blocks used on the
// way to Kafka: codecs for header values, the printable ASCII key
// codec and the Serializer contract that turns tasks into bytes.
package codec

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

// A Codec turns metadata values into record bytes and back.
type Codec interface {
	Encode(v interface{}) ([]byte, error)
	Decode(data []byte, target interface{}) error
}

// String returns the codec used for textual values. Encode accepts a
// string, a byte slice or a fmt.Stringer and writes it unchanged.
// Decode expects a *string or a *[]byte.
func String() Codec {
	return stringCodec{}
}

type stringCodec struct{}

func (stringCodec) Encode(v interface{}) ([]byte, error) {
	switch t := v.(type) {
	case string:
		return []byte(t), nil
	case []byte:
		return t, nil
	case fmt.Stringer:
		return []byte(t.String()), nil
	}
	return nil, errors.Errorf("cannot encode %T as a string", v)
}

func (stringCodec) Decode(data []byte, target interface{}) error {
	switch t := target.(type) {
	case *string:
		*t = string(data)
	case *[]byte:
		*t = data
	default:
		return errors.Errorf("cannot decode a string into %T", target)
	}
	return nil
}

// Int64 returns the codec used for millisecond timestamps. Values are
// written as base 10 ASCII so they stay readable in Kafka tooling.
func Int64() Codec {
	return int64Codec{}
}

type int64Codec struct{}

func (int64Codec) Encode(v interface{}) ([]byte, error) {
	i, ok := v.(int64)
	if !ok {
		return nil, errors.Errorf("cannot encode %T as an int64", v)
	}
	return strconv.AppendInt(nil, i, 10), nil
}

func (int64Codec) Decode(data []byte, target interface{}) error {
	ptr, ok := target.(*int64)
	if !ok {
		return errors.Errorf("cannot decode an int64 into %T", target)
	}
	i, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid int64 %q", data)
	}
	*ptr = i
	return nil
}
