package producer

import (
	"encoding/binary"
	"hash"

	"github.com/Shopify/sarama"
)

// NewJVMCompatiblePartitioner creates a Sarama partitioner that uses
// the same hashing algorithm as JVM Kafka clients, so a key maps to the
// same partition whichever client produced it.
func NewJVMCompatiblePartitioner(topic string) sarama.Partitioner {
	return sarama.NewCustomHashPartitioner(MurmurHasher)(topic)
}

// MurmurHasher creates a murmur2 hasher implementing hash.Hash32.
// Sarama writes the key once per message, so the hasher keeps the hash
// of the last Write only and does not support streaming.
func MurmurHasher() hash.Hash32 {
	return new(murmurHash)
}

type murmurHash struct {
	sum uint32
}

func (m *murmurHash) Write(d []byte) (int, error) {
	m.sum = murmur2(d)
	return len(d), nil
}

func (m *murmurHash) Reset()         { m.sum = 0 }
func (m *murmurHash) Size() int      { return 4 }
func (m *murmurHash) BlockSize() int { return 4 }

// Sum is a noop.
func (m *murmurHash) Sum(in []byte) []byte { return in }

// Sum32 returns the positive hash, as Kafka's Utils.toPositive does.
func (m *murmurHash) Sum32() uint32 { return m.sum & 0x7fffffff }

// murmur2 is the hash of org.apache.kafka.common.utils.Utils#murmur2.
// Unsigned arithmetic gives the same bits as Java's wrapping ints.
func murmur2(data []byte) uint32 {
	const (
		seed = 0x9747b28c
		m    = 0x5bd1e995
		r    = 24
	)

	h := uint32(seed) ^ uint32(len(data))
	for len(data) >= 4 {
		k := binary.LittleEndian.Uint32(data)
		k *= m
		k ^= k >> r
		k *= m
		h *= m
		h ^= k
		data = data[4:]
	}

	switch len(data) {
	case 3:
		h ^= uint32(data[2]) << 16
		fallthrough
	case 2:
		h ^= uint32(data[1]) << 8
		fallthrough
	case 1:
		h ^= uint32(data[0])
		h *= m
	}

	h ^= h >> 13
	h *= m
	h ^= h >> 15
	return h
}
