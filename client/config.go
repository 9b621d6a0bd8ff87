package client

import (
	"os"

	"github.com/pkg/errors"
	"github.com/rogpeppe/fastuuid"
	"go.uber.org/zap"

	"github.com/heetch/relay/codec"
	"github.com/heetch/relay/metadata"
	"github.com/heetch/relay/producer"
	"github.com/heetch/relay/wire"
)

var uuids = fastuuid.MustNewGenerator()

// Producer is the part of producer.Producer used by the Client.
type Producer interface {
	Send(r *wire.Record, done producer.Completion)
	Close() error
}

// ProducerSupplier creates the Producer owned by a Client.
type ProducerSupplier func(config producer.Config, addrs []string) (Producer, error)

// DefaultProducerSupplier connects a producer.Producer to addrs.
func DefaultProducerSupplier(config producer.Config, addrs []string) (Producer, error) {
	p, err := producer.New(config, addrs...)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Config is used to configure a Client. It is copied by New and never
// read again afterwards.
type Config[T any] struct {
	// Topic receives every task put by the client. Required.
	Topic string

	// Serializer turns tasks into bytes. Required.
	Serializer codec.Serializer[T]

	// ApplicationID identifies the producing application in the
	// metadata of every task. Required.
	ApplicationID string

	// InstanceID identifies the producing instance in the metadata of
	// every task. Defaults to the host name.
	InstanceID string

	// Format selects the wire format. Defaults to wire.FormatHeader;
	// use wire.FormatLegacy only while consumers still expect the
	// single envelope.
	Format wire.Format

	// Clock stamps tasks that are put without an explicit timestamp.
	// Defaults to metadata.SystemClock.
	Clock metadata.Clock

	// Brokers holds the Kafka broker addresses used by the default
	// ProducerSupplier.
	Brokers []string

	// Producer configures the underlying producer. The zero value is
	// replaced by producer.NewConfig(ApplicationID). Whatever partitioner
	// it holds is wrapped so that WithPartition is always honoured.
	Producer producer.Config

	// ProducerSupplier creates the producer. Defaults to
	// DefaultProducerSupplier.
	ProducerSupplier ProducerSupplier

	// Logger defaults to common.Logger.
	Logger *zap.Logger
}

// NewConfig creates a config with sane defaults.
func NewConfig[T any](topic, applicationID string, serializer codec.Serializer[T]) Config[T] {
	return Config[T]{
		Topic:         topic,
		Serializer:    serializer,
		ApplicationID: applicationID,
		Clock:         metadata.SystemClock,
		Producer:      producer.NewConfig(applicationID),
	}
}

func (c *Config[T]) validate() error {
	if c.Topic == "" {
		return errors.New("client requires a non-empty topic")
	}
	if c.Serializer == nil {
		return errors.New("client requires a serializer")
	}
	if c.ApplicationID == "" {
		return errors.New("client requires a non-empty application id")
	}
	if c.ProducerSupplier == nil && len(c.Brokers) == 0 {
		return errors.New("client requires at least one broker address")
	}
	return nil
}

func (c *Config[T]) applyDefaults() {
	if c.InstanceID == "" {
		c.InstanceID = defaultInstanceID()
	}
	if c.Clock == nil {
		c.Clock = metadata.SystemClock
	}
	if c.Producer.Producer.Partitioner == nil {
		pc := producer.NewConfig(c.ApplicationID)
		pc.Logger, pc.Metrics = c.Producer.Logger, c.Producer.Metrics
		c.Producer = pc
	}
	c.Producer.Producer.Partitioner = producer.WithExplicitPartition(c.Producer.Producer.Partitioner)
	if c.Producer.Logger == nil {
		c.Producer.Logger = c.Logger
	}
	if c.ProducerSupplier == nil {
		c.ProducerSupplier = DefaultProducerSupplier
	}
}

func defaultInstanceID() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return uuids.Hex128()
}
