// Package kafkatest provides helpers for tests that need a real Kafka
// cluster.
package kafkatest

import (
	"crypto/rand"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Shopify/sarama"
	"go.uber.org/zap"
	"gopkg.in/retry.v1"

	"github.com/heetch/relay/common"
	"github.com/heetch/relay/wire"
)

// ErrDisabled is returned by New when no cluster is configured.
var ErrDisabled = fmt.Errorf("kafka tests are disabled")

// New connects to a Kafka instance and returns a Kafka
// instance that uses it.
//
// The following environment variables can be used to
// configure the connection parameters:
//
//   - $KAFKA_ADDRS
//     A comma-separate list of Kafka broker addresses in host:port
//     form. Tests against a real cluster are opt-in: when this is
//     empty, New returns ErrDisabled.
//   - $KAFKA_DISABLE
//     A boolean as parsed by strconv.ParseBool. If this is true,
//     New will return ErrDisabled even when $KAFKA_ADDRS is set.
//   - $KAFKA_USERNAME, $KAFKA_PASSWORD
//     The username and password to use for SASL authentication.
//     When $KAFKA_USERNAME is non-empty, SASL will be
//     enabled.
//   - $KAFKA_USE_TLS
//     A boolean as parsed by strconv.ParseBool. If this
//     is true, a secure TLS connection will be used.
//   - $KAFKA_TIMEOUT
//     The maximum duration to wait when trying to connect
//     to Kafka. Defaults to "30s".
//
// The returned Kafka instance must be closed after use.
func New() (*Kafka, error) {
	disabled, err := boolVar("KAFKA_DISABLE")
	if err != nil {
		return nil, fmt.Errorf("bad value for $KAFKA_DISABLE: %v", err)
	}
	addrsStr := os.Getenv("KAFKA_ADDRS")
	if disabled || addrsStr == "" {
		return nil, ErrDisabled
	}
	addrs := strings.Split(addrsStr, ",")
	useTLS, err := boolVar("KAFKA_USE_TLS")
	if err != nil {
		return nil, fmt.Errorf("bad value for $KAFKA_USE_TLS: %v", err)
	}
	k := &Kafka{
		addrs:        addrs,
		useTLS:       useTLS,
		saslUser:     os.Getenv("KAFKA_USERNAME"),
		saslPassword: os.Getenv("KAFKA_PASSWORD"),
	}
	// The cluster might not be available immediately, so try
	// for a while before giving up.
	retryLimit := 30 * time.Second
	if limit := os.Getenv("KAFKA_TIMEOUT"); limit != "" {
		retryLimit, err = time.ParseDuration(limit)
		if err != nil {
			return nil, fmt.Errorf("bad value for $KAFKA_TIMEOUT: %v", err)
		}
	}
	retryStrategy := retry.LimitTime(retryLimit, retry.Exponential{
		Initial:  time.Millisecond,
		MaxDelay: time.Second,
	})
	t0 := time.Now()
	for a := retry.Start(retryStrategy, nil); a.Next(); {
		admin, err := sarama.NewClusterAdmin(addrs, k.Config())
		if err == nil {
			common.Logger.Debug("connected to kafka admin", zap.Duration("after", time.Since(t0)))
			k.admin = admin
			break
		}
		if !a.More() {
			return nil, fmt.Errorf("cannot connect to Kafka cluster at %q after %v: %v", addrs, retryLimit, err)
		}
	}
	return k, nil
}

// Kafka represents a connection to a Kafka cluster.
type Kafka struct {
	addrs        []string
	useTLS       bool
	saslUser     string
	saslPassword string
	admin        sarama.ClusterAdmin
	topics       []string
}

// Config returns a sarama configuration that will
// use connection parameters defined in the environment
// variables described in New.
func (k *Kafka) Config() *sarama.Config {
	cfg := sarama.NewConfig()
	k.InitConfig(cfg)
	return cfg
}

// InitConfig is similar to Config, except that instead of
// returning a new configuration, it configures an existing
// one.
func (k *Kafka) InitConfig(cfg *sarama.Config) {
	if cfg.Version == sarama.MinVersion {
		// headers need at least 0.11
		cfg.Version = sarama.V1_0_0_0
	}
	cfg.Net.TLS.Enable = k.useTLS
	if k.saslUser != "" {
		cfg.Net.SASL.Enable = true
		cfg.Net.SASL.User = k.saslUser
		cfg.Net.SASL.Password = k.saslPassword
	}
}

// Addrs returns the configured Kafka broker addresses.
func (k *Kafka) Addrs() []string {
	return k.addrs
}

// NewTopic creates a new Kafka topic with a random name and the
// given number of partitions. It returns the topic's name. The topic
// will be deleted when k.Close is called.
//
// NewTopic panics if the topic cannot be created.
func (k *Kafka) NewTopic(partitions int32) string {
	if k.admin == nil {
		panic("cannot create topic with closed kafkatest.Kafka instance")
	}
	topic := randomName("kafkatest-")
	if err := k.admin.CreateTopic(topic, &sarama.TopicDetail{
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	}, false); err != nil {
		panic(fmt.Errorf("cannot create topic %q: %v", topic, err))
	}
	k.topics = append(k.topics, topic)
	return topic
}

// ReadRecords reads n records from the start of a topic partition
// and returns them as wire records, so they can be checked with
// wire.Decode.
func (k *Kafka) ReadRecords(topic string, partition int32, n int, timeout time.Duration) ([]*wire.Record, error) {
	consumer, err := sarama.NewConsumer(k.addrs, k.Config())
	if err != nil {
		return nil, fmt.Errorf("cannot create consumer: %v", err)
	}
	defer consumer.Close()
	pc, err := consumer.ConsumePartition(topic, partition, sarama.OffsetOldest)
	if err != nil {
		return nil, fmt.Errorf("cannot consume %s/%d: %v", topic, partition, err)
	}
	defer pc.Close()

	deadline := time.After(timeout)
	records := make([]*wire.Record, 0, n)
	for len(records) < n {
		select {
		case m := <-pc.Messages():
			r := &wire.Record{
				Topic:     m.Topic,
				Key:       m.Key,
				Value:     m.Value,
				Partition: &m.Partition,
			}
			for _, h := range m.Headers {
				r.Headers = append(r.Headers, wire.Header{Key: string(h.Key), Value: h.Value})
			}
			records = append(records, r)
		case <-deadline:
			return records, fmt.Errorf("timed out after reading %d of %d records", len(records), n)
		}
	}
	return records, nil
}

// Close closes the client connection and removes any topics
// created by NewTopic. This method may be called more than once.
func (k *Kafka) Close() error {
	if k.admin == nil {
		return nil
	}
	for ; len(k.topics) != 0; k.topics = k.topics[1:] {
		if err := k.admin.DeleteTopic(k.topics[0]); err != nil {
			return fmt.Errorf("cannot delete topic %q: %v", k.topics[0], err)
		}
	}
	k.admin.Close()
	k.admin = nil
	return nil
}

func boolVar(envVar string) (bool, error) {
	s := os.Getenv(envVar)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid boolean value %q (possible values are: 1, t, T, TRUE, true, True, 0, f, F, FALSE)", s)
	}
	return b, nil
}

func randomName(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%s%x", prefix, buf)
}
