package routingtable

// RoutingTable manages topic-filter-to-callback mappings for message delivery.
//
// Implementations must preserve insertion order of handles registered under the
// same filter so that delivery order is deterministic.
type RoutingTable interface {
	// AddSubscription registers a handle under a topic filter.
	// Returns ErrInvalidFilter if the filter is malformed.
	AddSubscription(filter string, handle *Handle) error

	// RemoveSubscription removes one registration of handle under filter.
	// Reports whether a registration was found.
	RemoveSubscription(filter string, handle *Handle) (bool, error)

	// RemoveAllSubscriptions drops every handle registered at filter, together
	// with everything registered beneath it. Returns the number of handles removed.
	RemoveAllSubscriptions(filter string) (int, error)

	// HasSubscriptions reports whether at least one handle is registered under
	// exactly this filter. Wildcards are treated as literal branch selectors.
	HasSubscriptions(filter string) bool

	// GetCallbacks returns the handles whose filters match the concrete topic.
	GetCallbacks(topic string) []*Handle

	// Filters returns every filter that currently holds at least one handle.
	Filters() []string

	// Count returns the total number of registered handles.
	Count() int
}
