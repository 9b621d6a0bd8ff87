// Package producer is the bridge between relay and Kafka. It wraps a
// sarama AsyncProducer: records are handed over without waiting for
// the brokers, and each record's outcome is reported back through the
// Completion passed to Send.
//
// Producers require a valid configuration to be able to run properly.
// NewConfig returns one with the settings relay relies on, including a
// partitioner that places keys like the JVM clients do and honours
// explicit partitions. The embedded sarama.Config can be tuned further;
// retries and backoff are entirely sarama's concern.
package producer
