// Package router provides interfaces for the MQTT subscription router.
//
// This package defines the core abstractions shared by the router and the
// transport that feeds it:
//   - Router: application-facing publish/subscribe API with connection gating
//   - Transport: the minimal set of broker operations the router needs
//   - Sink: the events a transport reports back (connect edges, messages, logs)
//
// Calls made while the transport is disconnected are recorded as
// DeferredAction values and replayed, in order, on the next connect edge.
// Inbound messages are matched against MQTT topic filters ("+" for one
// level, "#" for any trailing levels) and delivered on a single goroutine,
// so callbacks never run concurrently with each other.
//
// Example usage:
//
//	r, err := router.NewManager(config, transport)
//	if err != nil {
//		return err
//	}
//	defer r.Close()
//
//	if err := r.Start(ctx); err != nil {
//		return err
//	}
//
//	handle, err := r.Subscribe("sensors/+/temp", func(payload string) error {
//		log.Printf("temperature: %s", payload)
//		return nil
//	})
//	if err != nil {
//		return err
//	}
//
//	// Deferred until connected if the transport is down
//	err = r.Publish("sensors/room1/temp", []byte("21.5"))
//
//	r.Unsubscribe("sensors/+/temp", handle)
package router
