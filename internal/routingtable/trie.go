package routingtable

import (
	"fmt"
	"strings"

	"github.com/rmacdonaldsmith/mqttroute/pkg/routingtable"
)

// Trie is a topic filter trie with dedicated branches for the "+" and "#"
// wildcards. It is not safe for concurrent use; InMemoryRoutingTable adds the
// locking.
//
// Lookups cost O(k * w) where k is the number of topic levels and w the number
// of "+" branches met along the way.
type Trie struct {
	root *trieNode
}

// trieNode represents one filter level.
type trieNode struct {
	children map[string]*trieNode
	plus     *trieNode // reached through "+"
	hash     *trieNode // reached through "#", always a leaf
	handles  []*routingtable.Handle
}

func newTrieNode() *trieNode {
	return &trieNode{
		children: make(map[string]*trieNode),
	}
}

// isDead returns true if the node holds nothing and can be pruned.
func (n *trieNode) isDead() bool {
	return len(n.handles) == 0 && len(n.children) == 0 && n.plus == nil && n.hash == nil
}

// child returns the child selected by level, treating wildcards as branch selectors.
func (n *trieNode) child(level string) *trieNode {
	switch level {
	case routingtable.WildcardSingle:
		return n.plus
	case routingtable.WildcardMulti:
		return n.hash
	default:
		return n.children[level]
	}
}

// childOrCreate returns the child selected by level, creating it if needed.
func (n *trieNode) childOrCreate(level string) *trieNode {
	if c := n.child(level); c != nil {
		return c
	}
	c := newTrieNode()
	switch level {
	case routingtable.WildcardSingle:
		n.plus = c
	case routingtable.WildcardMulti:
		n.hash = c
	default:
		n.children[level] = c
	}
	return c
}

// unlink removes the child selected by level.
func (n *trieNode) unlink(level string) {
	switch level {
	case routingtable.WildcardSingle:
		n.plus = nil
	case routingtable.WildcardMulti:
		n.hash = nil
	default:
		delete(n.children, level)
	}
}

// NewTrie creates an empty trie.
func NewTrie() *Trie {
	return &Trie{
		root: newTrieNode(),
	}
}

// Add registers handle at the node reached by the filter levels.
// Returns ErrInvalidFilter if any level follows "#".
func (t *Trie) Add(levels []string, handle *routingtable.Handle) error {
	if handle == nil {
		return routingtable.ErrNilHandle
	}
	if len(levels) == 0 {
		return fmt.Errorf("%w: filter has no levels", routingtable.ErrInvalidFilter)
	}
	for i, level := range levels {
		if level == routingtable.WildcardMulti && i != len(levels)-1 {
			return fmt.Errorf("%w: '#' must be the last level", routingtable.ErrInvalidFilter)
		}
	}

	// Initialize root if zero-value Trie is used
	if t.root == nil {
		t.root = newTrieNode()
	}

	node := t.root
	for _, level := range levels {
		node = node.childOrCreate(level)
	}
	node.handles = append(node.handles, handle)
	return nil
}

// pathEntry tracks a node and the level used to reach it during descent.
type pathEntry struct {
	node  *trieNode
	level string
}

// descend follows levels exactly and returns the visited path, root first.
// Returns nil if the path does not exist.
func (t *Trie) descend(levels []string) []pathEntry {
	if t.root == nil || len(levels) == 0 {
		return nil
	}

	path := make([]pathEntry, 0, len(levels)+1)
	path = append(path, pathEntry{node: t.root})

	node := t.root
	for _, level := range levels {
		next := node.child(level)
		if next == nil {
			return nil
		}
		path = append(path, pathEntry{node: next, level: level})
		node = next
	}
	return path
}

// prune removes dead nodes from the end of path back towards the root.
func prune(path []pathEntry) {
	for i := len(path) - 1; i > 0; i-- {
		if !path[i].node.isDead() {
			return
		}
		path[i-1].node.unlink(path[i].level)
	}
}

// Remove drops the first registration of handle at the node reached by levels
// and prunes nodes left empty. Returns true if a registration was removed.
func (t *Trie) Remove(levels []string, handle *routingtable.Handle) bool {
	path := t.descend(levels)
	if path == nil {
		return false
	}

	node := path[len(path)-1].node
	found := false
	for i, h := range node.handles {
		if h == handle {
			node.handles = append(node.handles[:i], node.handles[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return false
	}

	prune(path)
	return true
}

// Clear wipes the whole subtree at the node reached by levels and prunes the
// path above it. Returns the number of handles removed.
func (t *Trie) Clear(levels []string) int {
	path := t.descend(levels)
	if path == nil {
		return 0
	}

	node := path[len(path)-1].node
	removed := countHandles(node)

	node.handles = nil
	node.children = make(map[string]*trieNode)
	node.plus = nil
	node.hash = nil

	prune(path)
	return removed
}

// HasAny returns true if the node reached by exact descent holds a handle.
func (t *Trie) HasAny(levels []string) bool {
	path := t.descend(levels)
	if path == nil {
		return false
	}
	return len(path[len(path)-1].node.handles) > 0
}

// Match returns the handles whose filters match the concrete topic levels.
//
// Each level is explored in the order literal, "+", "#". A "#" child
// contributes its handles without descending further. When the topic is
// exhausted, the node's own handles are collected along with its "#" child,
// since "a/#" also matches "a".
func (t *Trie) Match(topic []string) []*routingtable.Handle {
	if t.root == nil || len(topic) == 0 {
		return nil
	}

	var matches []*routingtable.Handle
	t.matchRecursive(t.root, topic, 0, &matches)
	return matches
}

// matchRecursive performs the depth-first walk used by Match.
func (t *Trie) matchRecursive(node *trieNode, topic []string, depth int, matches *[]*routingtable.Handle) {
	if depth == len(topic) {
		*matches = append(*matches, node.handles...)
		if node.hash != nil {
			*matches = append(*matches, node.hash.handles...)
		}
		return
	}

	if child := node.children[topic[depth]]; child != nil {
		t.matchRecursive(child, topic, depth+1, matches)
	}

	if node.plus != nil {
		t.matchRecursive(node.plus, topic, depth+1, matches)
	}

	if node.hash != nil {
		*matches = append(*matches, node.hash.handles...)
	}
}

// Filters returns every filter that holds at least one handle.
// Order follows a depth-first walk and is not otherwise meaningful.
func (t *Trie) Filters() []string {
	var filters []string
	t.collectFilters(t.root, nil, &filters)
	return filters
}

// collectFilters recursively rebuilds filter strings from trie paths.
func (t *Trie) collectFilters(node *trieNode, prefix []string, filters *[]string) {
	if node == nil {
		return
	}

	if len(node.handles) > 0 && len(prefix) > 0 {
		*filters = append(*filters, strings.Join(prefix, routingtable.Separator))
	}

	for level, child := range node.children {
		t.collectFilters(child, append(prefix, level), filters)
	}
	t.collectFilters(node.plus, append(prefix, routingtable.WildcardSingle), filters)
	t.collectFilters(node.hash, append(prefix, routingtable.WildcardMulti), filters)
}

// Size returns the number of registered handles.
func (t *Trie) Size() int {
	return countHandles(t.root)
}

// countHandles recursively counts handles beneath node, inclusive.
func countHandles(node *trieNode) int {
	if node == nil {
		return 0
	}

	count := len(node.handles)
	for _, child := range node.children {
		count += countHandles(child)
	}
	count += countHandles(node.plus)
	count += countHandles(node.hash)
	return count
}

// NodeCount returns the total number of nodes, including the root.
// This is useful for checking that removals leave no residual structure.
func (t *Trie) NodeCount() int {
	return countNodes(t.root)
}

// countNodes recursively counts nodes.
func countNodes(node *trieNode) int {
	if node == nil {
		return 0
	}

	count := 1
	for _, child := range node.children {
		count += countNodes(child)
	}
	count += countNodes(node.plus)
	count += countNodes(node.hash)
	return count
}

// Reset removes everything from the trie.
func (t *Trie) Reset() {
	t.root = newTrieNode()
}
