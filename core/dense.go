package core

import (
	"fmt"
	"sync/atomic"
)

// DenseNode keeps one counter per address in a contiguous table of 2^n
// entries. Train and Response are direct index operations.
type DenseNode struct {
	width    int
	counters []atomic.Uint64
	weight   atomic.Int64
}

// NewDenseNode allocates a dense node bounded by DefaultMaxDenseWidth.
func NewDenseNode(width int) (*DenseNode, error) {
	return newDenseNode(width, DefaultMaxDenseWidth)
}

func newDenseNode(width, maxWidth int) (*DenseNode, error) {
	if width < 1 {
		return nil, fmt.Errorf("dense node: width %d: %w", width, ErrInvalidAddressWidth)
	}
	if width > maxWidth {
		return nil, fmt.Errorf("dense node width %d above bound %d: %w", width, maxWidth, ErrCapacity)
	}
	return &DenseNode{
		width:    width,
		counters: make([]atomic.Uint64, 1<<uint(width)),
	}, nil
}

// Train increments the counter at addr.
func (n *DenseNode) Train(addr Address) error {
	if err := checkAddress(addr, n.width); err != nil {
		return err
	}
	if n.counters[addr].Add(1) == 1 {
		n.weight.Add(1)
	}
	return nil
}

// Response returns the counter at addr.
func (n *DenseNode) Response(addr Address) (uint64, error) {
	if err := checkAddress(addr, n.width); err != nil {
		return 0, err
	}
	return n.counters[addr].Load(), nil
}

// Fire reports whether addr was trained.
func (n *DenseNode) Fire(addr Address) (bool, error) {
	c, err := n.Response(addr)
	return c > 0, err
}

// AddressWidth returns n.
func (n *DenseNode) AddressWidth() int { return n.width }

// StorageKind returns Dense.
func (n *DenseNode) StorageKind() StorageKind { return Dense }

// Size returns len(table), 2^n.
func (n *DenseNode) Size() uint64 { return uint64(len(n.counters)) }

// HammingWeight returns the number of non-zero counters.
func (n *DenseNode) HammingWeight() int { return int(n.weight.Load()) }

// MemoryBytes returns the table footprint rounded to cache lines.
func (n *DenseNode) MemoryBytes() int {
	return DenseTableBytes(n.width)
}
