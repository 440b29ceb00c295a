// Package nodestore provides node stores for persisted per-function metadata:
// an in-memory store and a bbolt-backed file store.
package nodestore

import (
	"sync"

	"symres/internal/symbol"
)

// Memory keeps nodes in a map. It is the store for one-off sessions and tests.
type Memory struct {
	mu    sync.Mutex
	nodes map[string]*string
}

func NewMemory() *Memory {
	return &Memory{nodes: make(map[string]*string)}
}

var _ symbol.Store = (*Memory)(nil)

// Open returns the node at key, creating an empty one if needed.
func (m *Memory) Open(key string) (symbol.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nodes[key]; !ok {
		m.nodes[key] = nil
	}
	return &memoryNode{m: m, key: key}, nil
}

// Len is the number of opened or written nodes.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.nodes)
}

type memoryNode struct {
	m   *Memory
	key string
}

func (n *memoryNode) Get() (string, bool, error) {
	n.m.mu.Lock()
	defer n.m.mu.Unlock()
	v := n.m.nodes[n.key]
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (n *memoryNode) Set(value string) error {
	n.m.mu.Lock()
	defer n.m.mu.Unlock()
	n.m.nodes[n.key] = &value
	return nil
}
