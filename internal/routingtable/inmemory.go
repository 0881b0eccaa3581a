package routingtable

import (
	"sync"

	"github.com/rmacdonaldsmith/mqttroute/pkg/routingtable"
)

// InMemoryRoutingTable implements routingtable.RoutingTable on top of a Trie.
// It is safe for concurrent use.
type InMemoryRoutingTable struct {
	mu   sync.RWMutex
	trie *Trie
}

// NewInMemoryRoutingTable creates an empty routing table.
func NewInMemoryRoutingTable() *InMemoryRoutingTable {
	return &InMemoryRoutingTable{
		trie: NewTrie(),
	}
}

// AddSubscription registers handle under filter.
func (rt *InMemoryRoutingTable) AddSubscription(filter string, handle *routingtable.Handle) error {
	if handle == nil {
		return routingtable.ErrNilHandle
	}
	levels, err := routingtable.ParseFilter(filter)
	if err != nil {
		return err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.trie.Add(levels, handle)
}

// RemoveSubscription removes one registration of handle under filter.
func (rt *InMemoryRoutingTable) RemoveSubscription(filter string, handle *routingtable.Handle) (bool, error) {
	if handle == nil {
		return false, routingtable.ErrNilHandle
	}
	levels, err := routingtable.ParseFilter(filter)
	if err != nil {
		return false, err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.trie.Remove(levels, handle), nil
}

// RemoveAllSubscriptions drops the subtree registered at filter.
func (rt *InMemoryRoutingTable) RemoveAllSubscriptions(filter string) (int, error) {
	levels, err := routingtable.ParseFilter(filter)
	if err != nil {
		return 0, err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.trie.Clear(levels), nil
}

// HasSubscriptions reports whether filter holds at least one handle.
// Malformed filters never hold handles.
func (rt *InMemoryRoutingTable) HasSubscriptions(filter string) bool {
	levels, err := routingtable.ParseFilter(filter)
	if err != nil {
		return false
	}

	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.trie.HasAny(levels)
}

// GetCallbacks returns the handles matching topic in delivery order.
func (rt *InMemoryRoutingTable) GetCallbacks(topic string) []*routingtable.Handle {
	levels := routingtable.SplitTopic(topic)

	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.trie.Match(levels)
}

// Filters returns every filter currently holding a handle.
func (rt *InMemoryRoutingTable) Filters() []string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.trie.Filters()
}

// Count returns the number of registered handles.
func (rt *InMemoryRoutingTable) Count() int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.trie.Size()
}

// NodeCount returns the number of trie nodes, root included.
func (rt *InMemoryRoutingTable) NodeCount() int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.trie.NodeCount()
}

// Verify that InMemoryRoutingTable implements the RoutingTable interface at compile time
var _ routingtable.RoutingTable = (*InMemoryRoutingTable)(nil)
