// Package routingtable provides interfaces for topic-filter-to-callback routing.
//
// This package defines the core abstractions for the client-side routing table:
//   - Callback: application function invoked with a decoded message payload
//   - Handle: opaque identity of one registered callback
//   - RoutingTable: interface for managing topic-filter-to-handle mappings
//
// Topic filters follow MQTT conventions. Levels are separated by "/":
//   - "+" matches exactly one topic level
//   - "#" matches zero or more trailing levels and must be the last level
//
// Examples:
//
//	sensors/+/temp     matches sensors/room1/temp (not sensors/room1/a/temp, not sensors/temp)
//	sensors/#          matches sensors, sensors/room1, sensors/room1/temp
//	#                  matches everything
//
// Example usage:
//
//	handle := routingtable.NewHandle(func(payload string) error {
//		fmt.Println(payload)
//		return nil
//	})
//	if err := table.AddSubscription("sensors/+/temp", handle); err != nil {
//		return err
//	}
//
//	for _, h := range table.GetCallbacks("sensors/room1/temp") {
//		_ = h.Invoke(payload)
//	}
//
// Handles are compared by identity. Registering the same handle twice under the
// same filter stores it twice; the table never deduplicates.
package routingtable
