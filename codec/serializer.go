package codec

import (
	"encoding/json"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
)

// Serializer turns a task into the bytes carried by a Kafka message.
// Implementations must be safe for concurrent use.
type Serializer[T any] interface {
	Serialize(task T) ([]byte, error)
}

// SerializerFunc adapts a function into a Serializer.
type SerializerFunc[T any] func(task T) ([]byte, error)

// Serialize calls f(task).
func (f SerializerFunc[T]) Serialize(task T) ([]byte, error) {
	return f(task)
}

// BytesSerializer passes byte slices through untouched.
func BytesSerializer() Serializer[[]byte] {
	return SerializerFunc[[]byte](func(task []byte) ([]byte, error) {
		return task, nil
	})
}

// StringSerializer writes strings as their raw bytes.
func StringSerializer() Serializer[string] {
	return SerializerFunc[string](func(task string) ([]byte, error) {
		return []byte(task), nil
	})
}

// JSONSerializer encodes tasks with encoding/json.
func JSONSerializer[T any]() Serializer[T] {
	return SerializerFunc[T](func(task T) ([]byte, error) {
		data, err := json.Marshal(task)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode task as JSON")
		}
		return data, nil
	})
}

// ProtoSerializer encodes protobuf tasks. Marshaling is deterministic
// so identical tasks produce identical bytes.
func ProtoSerializer[T proto.Message]() Serializer[T] {
	mo := proto.MarshalOptions{Deterministic: true}
	return SerializerFunc[T](func(task T) ([]byte, error) {
		data, err := mo.Marshal(task)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode task as protobuf")
		}
		return data, nil
	})
}
