package producer

import (
	"github.com/Shopify/sarama"
	"go.uber.org/zap"
)

// Config is used to configure the Producer.
type Config struct {
	sarama.Config

	// Logger receives delivery failures at debug level.
	// Defaults to common.Logger.
	Logger *zap.Logger

	// Metrics, when set, records sends, failures and delivery latency.
	Metrics *Metrics
}

// NewConfig creates a config with sane defaults.
func NewConfig(clientID string) Config {
	config := sarama.NewConfig()
	config.Version = sarama.V1_0_0_0
	config.ClientID = clientID
	config.Producer.RequiredAcks = sarama.WaitForAll // Wait for all in-sync replicas to ack the message
	config.Producer.Retry.Max = 3                    // Retry up to 3 times to produce the message
	// every record resolves a Result, so both outcomes must be reported back
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	// keys land on the same partitions as with the JVM clients
	config.Producer.Partitioner = NewPartitioner

	return Config{Config: *config}
}
