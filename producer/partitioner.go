package producer

import (
	"github.com/Shopify/sarama"
	"github.com/pkg/errors"
)

// NewPartitioner creates the default partitioner of relay producers.
// Records sent with an explicit partition go there; every other record
// is hashed by key with the JVM-compatible murmur2 hash.
func NewPartitioner(topic string) sarama.Partitioner {
	return WithExplicitPartition(NewJVMCompatiblePartitioner)(topic)
}

// WithExplicitPartition wraps next so that records sent with an
// explicit partition are routed there, leaving every other record to
// next. A nil next stands for NewJVMCompatiblePartitioner. Wrapping an
// already wrapped constructor has no further effect.
func WithExplicitPartition(next sarama.PartitionerConstructor) sarama.PartitionerConstructor {
	if next == nil {
		next = NewJVMCompatiblePartitioner
	}
	return func(topic string) sarama.Partitioner {
		inner := next(topic)
		if p, ok := inner.(*partitioner); ok {
			return p
		}
		return &partitioner{next: inner}
	}
}

type partitioner struct {
	next sarama.Partitioner
}

func explicitPartition(msg *sarama.ProducerMessage) (int32, bool) {
	pm, ok := msg.Metadata.(*pending)
	if !ok || pm.partition == nil {
		return 0, false
	}
	return *pm.partition, true
}

func (p *partitioner) Partition(msg *sarama.ProducerMessage, numPartitions int32) (int32, error) {
	n, ok := explicitPartition(msg)
	if !ok {
		return p.next.Partition(msg, numPartitions)
	}
	if n < 0 || n >= numPartitions {
		return -1, errors.Wrapf(sarama.ErrInvalidPartition, "partition %d of topic %s with %d partitions", n, msg.Topic, numPartitions)
	}
	return n, nil
}

func (p *partitioner) RequiresConsistency() bool {
	return p.next.RequiresConsistency()
}

// MessageRequiresConsistency makes sarama choose among all the
// partitions of the topic for explicitly routed records, so the chosen
// index is the partition id even while some leaders are unavailable.
func (p *partitioner) MessageRequiresConsistency(msg *sarama.ProducerMessage) bool {
	if _, ok := explicitPartition(msg); ok {
		return true
	}
	if d, ok := p.next.(sarama.DynamicConsistencyPartitioner); ok {
		return d.MessageRequiresConsistency(msg)
	}
	return p.next.RequiresConsistency()
}
