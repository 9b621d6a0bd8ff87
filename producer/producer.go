package producer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/heetch/relay/common"
	"github.com/heetch/relay/wire"
)

// ErrClosed is reported to records sent after Close.
var ErrClosed = errors.New("producer is closed")

// Delivery holds the coordinates of a record stored by the brokers.
type Delivery struct {
	Topic     string
	Partition int32
	Offset    int64
	Timestamp time.Time
}

// Completion receives the outcome of a single Send: either the
// delivery coordinates or the reason the record was not stored.
type Completion func(Delivery, error)

// pending travels with a record through sarama as its Metadata.
type pending struct {
	done      Completion
	partition *int32
	start     time.Time
}

// Producer sends records to Kafka asynchronously.
// Outcomes reported by sarama are routed back to the Completion given to
// Send, from a single goroutine owned by the Producer.
type Producer struct {
	async   sarama.AsyncProducer
	logger  *zap.Logger
	metrics *Metrics

	mu      sync.RWMutex
	closed  bool
	closing atomic.Bool

	drained   chan struct{}
	closeErrs sarama.ProducerErrors
}

// New creates a Producer connected to the given brokers.
// Successes and errors are always returned, whatever config says, since
// every record waits for its outcome. The configured partitioner is
// wrapped with WithExplicitPartition.
func New(config Config, addrs ...string) (*Producer, error) {
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.Partitioner = WithExplicitPartition(config.Producer.Partitioner)

	p, err := sarama.NewAsyncProducer(addrs, &config.Config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create a producer")
	}

	return NewFrom(p, config), nil
}

// NewFrom creates a producer using the given AsyncProducer, which must
// have been configured to return both successes and errors, with a
// partitioner built by WithExplicitPartition for explicit partitions to
// be honoured. The Producer takes ownership of it and closes it on Close.
func NewFrom(producer sarama.AsyncProducer, config Config) *Producer {
	p := &Producer{
		async:   producer,
		logger:  common.LoggerOr(config.Logger),
		metrics: config.Metrics,
		drained: make(chan struct{}),
	}
	go p.dispatch()
	return p
}

// Send hands r to sarama and returns without waiting for the brokers.
// done is called exactly once, from the dispatch goroutine, or
// immediately with ErrClosed when the producer is closed.
func (p *Producer) Send(r *wire.Record, done Completion) {
	msg := newProducerMessage(r, &pending{
		done:      done,
		partition: r.Partition,
		start:     time.Now(),
	})

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		done(Delivery{}, ErrClosed)
		return
	}
	p.async.Input() <- msg
}

// Close flushes buffered records, waits for all their outcomes to be
// reported and releases the connection to the brokers. Records that
// fail while closing are still reported to their Completion, and are
// also returned together as sarama.ProducerErrors. It is safe to call
// more than once; only the first call does any work.
func (p *Producer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.closing.Store(true)
	// AsyncClose rather than Close: Close would drain Successes and
	// Errors itself and steal outcomes from dispatch.
	p.async.AsyncClose()
	<-p.drained

	if len(p.closeErrs) > 0 {
		return p.closeErrs
	}
	return nil
}

func (p *Producer) dispatch() {
	defer close(p.drained)

	successes, errs := p.async.Successes(), p.async.Errors()
	for successes != nil || errs != nil {
		select {
		case msg, ok := <-successes:
			if !ok {
				successes = nil
				continue
			}
			p.complete(msg, nil)
		case perr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if p.closing.Load() {
				p.closeErrs = append(p.closeErrs, perr)
			}
			if perr.Msg != nil {
				p.complete(perr.Msg, perr.Err)
			}
		}
	}
}

func (p *Producer) complete(msg *sarama.ProducerMessage, err error) {
	pm, ok := msg.Metadata.(*pending)
	if !ok {
		p.logger.Warn("dropping outcome of a record not sent by relay", zap.String("topic", msg.Topic))
		return
	}
	p.metrics.observe(msg.Topic, pm.start, err)

	if err != nil {
		p.logger.Debug("task delivery failed", zap.String("topic", msg.Topic), zap.Error(err))
		pm.done(Delivery{}, errors.Wrap(err, "failed to send message"))
		return
	}
	pm.done(Delivery{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Timestamp,
	}, nil)
}

func newProducerMessage(r *wire.Record, pm *pending) *sarama.ProducerMessage {
	msg := &sarama.ProducerMessage{
		Topic:    r.Topic,
		Value:    sarama.ByteEncoder(r.Value),
		Metadata: pm,
	}
	if r.Key != nil {
		msg.Key = sarama.ByteEncoder(r.Key)
	}
	for _, h := range r.Headers {
		msg.Headers = append(msg.Headers, sarama.RecordHeader{
			Key:   []byte(h.Key),
			Value: h.Value,
		})
	}
	return msg
}
