package client

import (
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/heetch/relay/codec"
	"github.com/heetch/relay/common"
	"github.com/heetch/relay/metadata"
	"github.com/heetch/relay/wire"
)

// ErrClosed is returned by Put once the client is closed.
var ErrClosed = errors.New("client is closed")

// Client puts tasks of type T to a Kafka topic.
// It is safe for concurrent use, except for Close.
type Client[T any] struct {
	topic      string
	serializer codec.Serializer[T]
	keys       codec.Codec
	builder    *metadata.Builder
	encoder    wire.Encoder
	producer   Producer
	logger     *zap.Logger

	closed atomic.Bool
}

// New creates a Client and the producer it owns.
func New[T any](config Config[T]) (*Client[T], error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	enc, err := wire.NewEncoder(config.Format)
	if err != nil {
		return nil, err
	}

	p, err := config.ProducerSupplier(config.Producer, config.Brokers)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create client")
	}

	c := &Client[T]{
		topic:      config.Topic,
		serializer: config.Serializer,
		keys:       codec.PrintableASCII(),
		builder:    metadata.NewBuilder(config.ApplicationID, config.InstanceID, config.Clock),
		encoder:    enc,
		producer:   p,
		logger:     common.LoggerOr(config.Logger),
	}
	c.logger.Info("task client created",
		zap.String("topic", config.Topic),
		zap.Stringer("format", config.Format),
		zap.String("application_id", config.ApplicationID),
		zap.String("instance_id", config.InstanceID),
	)
	return c, nil
}

// Put submits task under key. The key must only contain printable
// ASCII characters.
//
// On success the returned Result resolves once the brokers have stored
// or rejected the task. When Put returns an error, no Result exists and
// nothing was sent.
func (c *Client[T]) Put(key string, task T, opts ...PutOption) (*Result, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	var po putOptions
	for _, o := range opts {
		o(&po)
	}

	k, err := c.keys.Encode(key)
	if err != nil {
		return nil, errors.Wrap(err, "invalid task key")
	}
	data, err := c.serializer.Serialize(task)
	if err != nil {
		return nil, errors.Wrap(err, "failed to serialize task")
	}

	md := c.builder.Build(po.override)
	r, err := c.encoder.Encode(c.topic, po.partition, k, data, md)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode task")
	}

	res := newResult(po.onError)
	c.producer.Send(r, res.complete)
	return res, nil
}

// Close releases the producer after flushing the tasks it still holds.
// Only the first call closes anything; later calls return nil.
func (c *Client[T]) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := c.producer.Close(); err != nil {
		return errors.Wrap(err, "failed to close client")
	}
	c.logger.Info("task client closed", zap.String("topic", c.topic))
	return nil
}
