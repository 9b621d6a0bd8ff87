package client_test

import (
	"sync"
	"sync/atomic"

	qt "github.com/frankban/quicktest"

	"github.com/heetch/relay/client"
	"github.com/heetch/relay/codec"
	"github.com/heetch/relay/producer"
	"github.com/heetch/relay/wire"
)

// fakeProducer records what the client sends and lets tests decide
// when and how each record completes.
type fakeProducer struct {
	mu         sync.Mutex
	records    []*wire.Record
	dones      []producer.Completion
	closeErr   error
	closeCalls int
}

func (p *fakeProducer) Send(r *wire.Record, done producer.Completion) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, r)
	p.dones = append(p.dones, done)
}

func (p *fakeProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeCalls++
	return p.closeErr
}

func (p *fakeProducer) sent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.records)
}

func (p *fakeProducer) record(i int) *wire.Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.records[i]
}

func (p *fakeProducer) complete(i int, d producer.Delivery, err error) {
	p.mu.Lock()
	done := p.dones[i]
	p.mu.Unlock()
	done(d, err)
}

// testClock returns successive readings from a settable time source.
type testClock struct {
	now atomic.Int64
}

func (c *testClock) read() int64 {
	return c.now.Load()
}

func newTestClient[T any](c *qt.C, serializer codec.Serializer[T], configure ...func(*client.Config[T])) (*client.Client[T], *fakeProducer) {
	fp := &fakeProducer{}
	cfg := client.NewConfig("tasks", "svc-a", serializer)
	cfg.InstanceID = "i-1"
	cfg.ProducerSupplier = func(producer.Config, []string) (client.Producer, error) {
		return fp, nil
	}
	for _, f := range configure {
		f(&cfg)
	}
	cl, err := client.New(cfg)
	c.Assert(err, qt.IsNil)
	return cl, fp
}

func withClock[T any](clock *testClock) func(*client.Config[T]) {
	return func(cfg *client.Config[T]) {
		cfg.Clock = clock.read
	}
}

func withFormat[T any](f wire.Format) func(*client.Config[T]) {
	return func(cfg *client.Config[T]) {
		cfg.Format = f
	}
}
