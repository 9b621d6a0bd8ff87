package codec

import (
	"github.com/pkg/errors"
)

// ErrInvalidKey is returned when a task key contains a character
// outside the printable ASCII range.
var ErrInvalidKey = errors.New("key must only contain printable ASCII characters")

// PrintableASCII returns a String codec restricted to the printable
// ASCII range (0x20 to 0x7e). Keys end up in broker logs, partitioner
// hashes and consumer tooling, so anything else is rejected on both
// encode and decode.
func PrintableASCII() Codec {
	return asciiCodec{}
}

type asciiCodec struct {
	stringCodec
}

func (c asciiCodec) Encode(v interface{}) ([]byte, error) {
	data, err := c.stringCodec.Encode(v)
	if err != nil {
		return nil, err
	}
	if err := checkPrintable(data); err != nil {
		return nil, err
	}
	return data, nil
}

func (c asciiCodec) Decode(data []byte, target interface{}) error {
	if err := checkPrintable(data); err != nil {
		return err
	}
	return c.stringCodec.Decode(data, target)
}

func checkPrintable(data []byte) error {
	for i, b := range data {
		if b < 0x20 || b > 0x7e {
			return errors.Wrapf(ErrInvalidKey, "invalid byte 0x%02x at index %d", b, i)
		}
	}
	return nil
}
