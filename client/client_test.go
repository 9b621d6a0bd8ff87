package client_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"

	"github.com/heetch/relay/client"
	"github.com/heetch/relay/codec"
	"github.com/heetch/relay/common"
	"github.com/heetch/relay/metadata"
	"github.com/heetch/relay/producer"
	"github.com/heetch/relay/wire"
)

func TestPutHeaderFormat(t *testing.T) {
	c := qt.New(t)
	clock := &testClock{}
	clock.now.Store(1000)
	cl, fp := newTestClient(c, codec.BytesSerializer(), withClock[[]byte](clock))

	res, err := cl.Put("user-42", []byte{0x01, 0x02})
	c.Assert(err, qt.IsNil)
	c.Assert(res, qt.IsNotNil)

	c.Assert(fp.record(0), qt.CmpEquals(), &wire.Record{
		Topic: "tasks",
		Key:   []byte("user-42"),
		Value: []byte{0x01, 0x02},
		Headers: []wire.Header{
			{Key: wire.HeaderSourceApplicationID, Value: []byte("svc-a")},
			{Key: wire.HeaderSourceInstanceID, Value: []byte("i-1")},
			{Key: wire.HeaderTimestampMillis, Value: []byte("1000")},
		},
	})
}

func TestPutLegacyFormat(t *testing.T) {
	c := qt.New(t)
	clock := &testClock{}
	clock.now.Store(1000)
	cl, fp := newTestClient(c, codec.BytesSerializer(), withClock[[]byte](clock), withFormat[[]byte](wire.FormatLegacy))

	_, err := cl.Put("user-42", []byte{0x01, 0x02})
	c.Assert(err, qt.IsNil)

	r := fp.record(0)
	c.Assert(r.Headers, qt.IsNil)
	c.Assert(r.Key, qt.DeepEquals, []byte("user-42"))

	task, md, err := wire.Decode(r)
	c.Assert(err, qt.IsNil)
	c.Assert(task, qt.DeepEquals, []byte{0x01, 0x02})
	c.Assert(md, qt.Equals, metadata.TaskMetadata{
		TimestampMillis:     1000,
		SourceApplicationID: "svc-a",
		SourceInstanceID:    "i-1",
	})
}

func TestFormatsDecodeToTheSameTask(t *testing.T) {
	c := qt.New(t)
	clock := &testClock{}
	clock.now.Store(1234)
	header, hfp := newTestClient(c, codec.StringSerializer(), withClock[string](clock))
	legacy, lfp := newTestClient(c, codec.StringSerializer(), withClock[string](clock), withFormat[string](wire.FormatLegacy))

	opts := []client.PutOption{client.WithScheduledTime(9999)}
	_, err := header.Put("k", "payload", opts...)
	c.Assert(err, qt.IsNil)
	_, err = legacy.Put("k", "payload", opts...)
	c.Assert(err, qt.IsNil)

	hr, lr := hfp.record(0), lfp.record(0)
	c.Assert(cmp.Equal(hr, lr), qt.IsFalse)

	htask, hmd, err := wire.Decode(hr)
	c.Assert(err, qt.IsNil)
	ltask, lmd, err := wire.Decode(lr)
	c.Assert(err, qt.IsNil)
	c.Assert(htask, qt.DeepEquals, ltask)
	c.Assert(hmd, qt.Equals, lmd)
	c.Assert(hmd.ScheduledTimeMillis, qt.Equals, int64(9999))
}

func TestPutUsesClockAtCallTime(t *testing.T) {
	c := qt.New(t)
	clock := &testClock{}
	cl, fp := newTestClient(c, codec.StringSerializer(), withClock[string](clock))

	clock.now.Store(100)
	_, err := cl.Put("k", "task")
	c.Assert(err, qt.IsNil)
	clock.now.Store(200)
	_, err = cl.Put("k", "task")
	c.Assert(err, qt.IsNil)

	first, second := fp.record(0), fp.record(1)
	_, md1, err := wire.Decode(first)
	c.Assert(err, qt.IsNil)
	_, md2, err := wire.Decode(second)
	c.Assert(err, qt.IsNil)
	c.Assert(md1.TimestampMillis, qt.Equals, int64(100))
	c.Assert(md2.TimestampMillis, qt.Equals, int64(200))

	// nothing but the timestamp differs
	v1, _ := first.Header(wire.HeaderTimestampMillis)
	v2, _ := second.Header(wire.HeaderTimestampMillis)
	c.Assert(string(v1), qt.Equals, "100")
	c.Assert(string(v2), qt.Equals, "200")

	normalized := *second
	normalized.Headers = append([]wire.Header(nil), second.Headers...)
	for i, h := range normalized.Headers {
		if h.Key == wire.HeaderTimestampMillis {
			normalized.Headers[i].Value = v1
		}
	}
	c.Assert(&normalized, qt.CmpEquals(), first)
}

func TestPutMetadataOptions(t *testing.T) {
	tests := []struct {
		name     string
		opts     []client.PutOption
		expected metadata.TaskMetadata
	}{{
		name:     "no override",
		expected: metadata.TaskMetadata{TimestampMillis: 1000},
	}, {
		name:     "timestamp only",
		opts:     []client.PutOption{client.WithTimestamp(42)},
		expected: metadata.TaskMetadata{TimestampMillis: 42},
	}, {
		name:     "metadata override with timestamp only",
		opts:     []client.PutOption{client.WithMetadata(*metadata.AtTimestamp(7))},
		expected: metadata.TaskMetadata{TimestampMillis: 7},
	}, {
		name:     "metadata override with schedule",
		opts:     []client.PutOption{client.WithMetadata(*metadata.ScheduledAt(5000))},
		expected: metadata.TaskMetadata{TimestampMillis: 1000, ScheduledTimeMillis: 5000},
	}, {
		name: "later options refine earlier ones",
		opts: []client.PutOption{
			client.WithMetadata(*metadata.AtTimestamp(7)),
			client.WithScheduledTime(8),
		},
		expected: metadata.TaskMetadata{TimestampMillis: 7, ScheduledTimeMillis: 8},
	}, {
		name:     "zero scheduled time is dropped",
		opts:     []client.PutOption{client.WithScheduledTime(0)},
		expected: metadata.TaskMetadata{TimestampMillis: 1000},
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := qt.New(t)
			clock := &testClock{}
			clock.now.Store(1000)
			cl, fp := newTestClient(c, codec.StringSerializer(), withClock[string](clock))

			_, err := cl.Put("k", "task", test.opts...)
			c.Assert(err, qt.IsNil)

			r := fp.record(0)
			_, md, err := wire.Decode(r)
			c.Assert(err, qt.IsNil)
			test.expected.SourceApplicationID = "svc-a"
			test.expected.SourceInstanceID = "i-1"
			c.Assert(md, qt.Equals, test.expected)

			_, scheduled := r.Header(wire.HeaderScheduledTimeMillis)
			c.Assert(scheduled, qt.Equals, test.expected.HasScheduledTime())
		})
	}
}

func TestPutWithPartition(t *testing.T) {
	c := qt.New(t)
	cl, fp := newTestClient(c, codec.StringSerializer())

	_, err := cl.Put("k", "task", client.WithPartition(3))
	c.Assert(err, qt.IsNil)
	_, err = cl.Put("k", "task")
	c.Assert(err, qt.IsNil)

	c.Assert(*fp.record(0).Partition, qt.Equals, int32(3))
	c.Assert(fp.record(1).Partition, qt.IsNil)
}

func TestPutSerializerFailure(t *testing.T) {
	c := qt.New(t)
	failing := codec.SerializerFunc[string](func(string) ([]byte, error) {
		return nil, fmt.Errorf("cannot serialize")
	})
	cl, fp := newTestClient[string](c, failing)

	res, err := cl.Put("k", "task")
	c.Assert(err, qt.ErrorMatches, "failed to serialize task: cannot serialize")
	c.Assert(res, qt.IsNil)
	c.Assert(fp.sent(), qt.Equals, 0)
}

func TestPutInvalidKey(t *testing.T) {
	c := qt.New(t)
	cl, fp := newTestClient(c, codec.StringSerializer())

	res, err := cl.Put("user\n42", "task")
	c.Assert(errors.Is(err, codec.ErrInvalidKey), qt.IsTrue)
	c.Assert(err, qt.ErrorMatches, "invalid task key: .*")
	c.Assert(res, qt.IsNil)
	c.Assert(fp.sent(), qt.Equals, 0)
}

func TestResultSuccess(t *testing.T) {
	c := qt.New(t)
	cl, fp := newTestClient(c, codec.StringSerializer())

	var calls int
	res, err := cl.Put("k", "task", client.OnError(func(error) { calls++ }))
	c.Assert(err, qt.IsNil)

	_, err = res.Delivery()
	c.Assert(err, qt.Equals, client.ErrPending)

	d := producer.Delivery{Topic: "tasks", Partition: 1, Offset: 42}
	fp.complete(0, d, nil)
	// a second outcome is ignored
	fp.complete(0, producer.Delivery{}, fmt.Errorf("late failure"))

	got, err := res.Wait(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, d)
	got, err = res.Delivery()
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, d)
	c.Assert(calls, qt.Equals, 0)
}

func TestResultFailure(t *testing.T) {
	c := qt.New(t)
	cl, fp := newTestClient(c, codec.StringSerializer())

	var callbackErrs []error
	res, err := cl.Put("k", "task", client.OnError(func(err error) {
		callbackErrs = append(callbackErrs, err)
	}))
	c.Assert(err, qt.IsNil)

	sendErr := fmt.Errorf("broker unavailable")
	fp.complete(0, producer.Delivery{}, sendErr)
	fp.complete(0, producer.Delivery{}, fmt.Errorf("again"))

	select {
	case <-res.Done():
	default:
		c.Fatal("result not resolved")
	}
	_, err = res.Wait(context.Background())
	c.Assert(err, qt.Equals, sendErr)
	c.Assert(callbackErrs, qt.HasLen, 1)
	c.Assert(callbackErrs[0], qt.Equals, sendErr)
}

func TestResultFailureWithoutCallback(t *testing.T) {
	c := qt.New(t)
	cl, fp := newTestClient(c, codec.StringSerializer())

	res, err := cl.Put("k", "task")
	c.Assert(err, qt.IsNil)
	fp.complete(0, producer.Delivery{}, fmt.Errorf("boom"))

	_, err = res.Delivery()
	c.Assert(err, qt.ErrorMatches, "boom")
}

func TestResultWaitTimeout(t *testing.T) {
	c := qt.New(t)
	cl, fp := newTestClient(c, codec.StringSerializer())

	res, err := cl.Put("k", "task")
	c.Assert(err, qt.IsNil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = res.Wait(ctx)
	c.Assert(err, qt.Equals, context.DeadlineExceeded)

	// the task is still delivered after the caller gave up
	fp.complete(0, producer.Delivery{Topic: "tasks"}, nil)
	d, err := res.Wait(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(d.Topic, qt.Equals, "tasks")
}

func TestClose(t *testing.T) {
	c := qt.New(t)
	tl := common.NewTestLogger(t)
	cl, fp := newTestClient(c, codec.StringSerializer())
	tl.LogLineMatches("task client created")

	c.Assert(cl.Close(), qt.IsNil)
	c.Assert(cl.Close(), qt.IsNil)
	c.Assert(fp.closeCalls, qt.Equals, 1)
	tl.LogLineMatches("task client closed")

	res, err := cl.Put("k", "task")
	c.Assert(err, qt.Equals, client.ErrClosed)
	c.Assert(res, qt.IsNil)
	c.Assert(fp.sent(), qt.Equals, 0)
}

func TestCloseFailure(t *testing.T) {
	c := qt.New(t)
	cl, fp := newTestClient(c, codec.StringSerializer())
	fp.closeErr = fmt.Errorf("flush failed")

	c.Assert(cl.Close(), qt.ErrorMatches, "failed to close client: flush failed")
	c.Assert(cl.Close(), qt.IsNil)

	_, err := cl.Put("k", "task")
	c.Assert(err, qt.Equals, client.ErrClosed)
}

func TestConcurrentPuts(t *testing.T) {
	c := qt.New(t)
	cl, fp := newTestClient(c, codec.StringSerializer())

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := cl.Put(fmt.Sprintf("key-%d", i), "task")
			c.Check(err, qt.IsNil)
		}(i)
	}
	wg.Wait()
	c.Assert(fp.sent(), qt.Equals, n)
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name      string
		configure func(*client.Config[string])
		errString string
	}{{
		name:      "topic",
		configure: func(cfg *client.Config[string]) { cfg.Topic = "" },
		errString: "client requires a non-empty topic",
	}, {
		name:      "serializer",
		configure: func(cfg *client.Config[string]) { cfg.Serializer = nil },
		errString: "client requires a serializer",
	}, {
		name:      "application id",
		configure: func(cfg *client.Config[string]) { cfg.ApplicationID = "" },
		errString: "client requires a non-empty application id",
	}, {
		name:      "brokers",
		configure: func(cfg *client.Config[string]) {},
		errString: "client requires at least one broker address",
	}, {
		name:      "format",
		configure: func(cfg *client.Config[string]) { cfg.Brokers, cfg.Format = []string{"localhost:9092"}, wire.Format(7) },
		errString: "unsupported wire format 7",
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := qt.New(t)
			cfg := client.NewConfig("tasks", "svc-a", codec.StringSerializer())
			test.configure(&cfg)
			cl, err := client.New(cfg)
			c.Assert(err, qt.ErrorMatches, test.errString)
			c.Assert(cl, qt.IsNil)
		})
	}
}

func TestNewSupplierFailure(t *testing.T) {
	c := qt.New(t)
	cfg := client.NewConfig("tasks", "svc-a", codec.StringSerializer())
	cfg.ProducerSupplier = func(producer.Config, []string) (client.Producer, error) {
		return nil, fmt.Errorf("no brokers")
	}
	_, err := client.New(cfg)
	c.Assert(err, qt.ErrorMatches, "failed to create client: no brokers")
}

func TestNewDefaults(t *testing.T) {
	c := qt.New(t)
	var got producer.Config
	fp := &fakeProducer{}
	cfg := client.Config[string]{
		Topic:         "tasks",
		ApplicationID: "svc-a",
		Serializer:    codec.StringSerializer(),
		ProducerSupplier: func(pc producer.Config, _ []string) (client.Producer, error) {
			got = pc
			return fp, nil
		},
	}
	cl, err := client.New(cfg)
	c.Assert(err, qt.IsNil)
	c.Assert(got.ClientID, qt.Equals, "svc-a")
	c.Assert(got.Producer.Partitioner, qt.IsNotNil)
	c.Assert(got.Producer.Return.Successes, qt.IsTrue)

	before := time.Now().UnixMilli()
	_, err = cl.Put("k", "task")
	c.Assert(err, qt.IsNil)
	after := time.Now().UnixMilli()

	_, md, err := wire.Decode(fp.record(0))
	c.Assert(err, qt.IsNil)
	c.Assert(md.TimestampMillis >= before && md.TimestampMillis <= after, qt.IsTrue)
	c.Assert(md.SourceInstanceID, qt.Not(qt.Equals), "")
	c.Assert(cl.Close(), qt.IsNil)
}
