package core

import (
	"fmt"
	"sync"
)

// SparseNode keeps counters only for addresses seen in training. Memory
// grows with the number of distinct trained addresses, not with 2^n, so
// no capacity bound applies beyond MaxAddressWidth.
type SparseNode struct {
	width int

	mu       sync.RWMutex
	counters map[Address]uint64
}

// NewSparseNode creates an empty sparse node.
func NewSparseNode(width int) (*SparseNode, error) {
	if err := validateWidth(width); err != nil {
		return nil, fmt.Errorf("sparse node: %w", err)
	}
	return &SparseNode{
		width:    width,
		counters: make(map[Address]uint64),
	}, nil
}

// Train inserts or increments the counter at addr.
func (n *SparseNode) Train(addr Address) error {
	if err := checkAddress(addr, n.width); err != nil {
		return err
	}
	n.mu.Lock()
	n.counters[addr]++
	n.mu.Unlock()
	return nil
}

// Response looks up addr, defaulting to 0 on a miss.
func (n *SparseNode) Response(addr Address) (uint64, error) {
	if err := checkAddress(addr, n.width); err != nil {
		return 0, err
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.counters[addr], nil
}

// Fire reports whether addr was trained.
func (n *SparseNode) Fire(addr Address) (bool, error) {
	c, err := n.Response(addr)
	return c > 0, err
}

// AddressWidth returns n.
func (n *SparseNode) AddressWidth() int { return n.width }

// StorageKind returns Sparse.
func (n *SparseNode) StorageKind() StorageKind { return Sparse }

// Size returns 2^n even though only visited cells are stored.
func (n *SparseNode) Size() uint64 { return uint64(1) << uint(n.width) }

// HammingWeight returns the number of stored addresses.
func (n *SparseNode) HammingWeight() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.counters)
}

// MemoryBytes estimates the map footprint from the number of entries.
func (n *SparseNode) MemoryBytes() int {
	return SparseTableBytes(n.HammingWeight())
}
