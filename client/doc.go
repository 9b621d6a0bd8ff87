// Package client submits tasks to a Kafka topic for asynchronous
// processing by workers.
//
// A Client is created once with an immutable Config and can be shared
// by any number of goroutines:
//
//	cfg := client.NewConfig("billing-tasks", "billing", codec.JSONSerializer[Invoice]())
//	cfg.Brokers = []string{"localhost:9092"}
//	c, err := client.New(cfg)
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	res, err := c.Put(invoice.CustomerID, invoice, client.OnError(func(err error) {
//	    log.Printf("invoice %s not queued: %v", invoice.ID, err)
//	}))
//
// Put returns as soon as the record is handed to the producer. Errors
// that can be detected right away (a closed client, an invalid key, a
// task that cannot be serialized) are returned by Put itself. Broker
// failures are only reported asynchronously, through the returned
// Result and the optional OnError callback.
//
// Close must not be called while Put calls are in flight on the same
// Client; callers are responsible for that ordering.
package client
