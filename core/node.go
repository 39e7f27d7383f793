// Package core provides the fundamental primitives of the ramnet weightless
// neural network engine.
//
// The central type is the RAM node: a binary lookup table addressed by a
// fixed-width bit pattern that counts how often each address was seen during
// training. A class is represented by a set of such tables rather than by
// weighted connections, and learning is a direct counter increment.
//
// Key components:
//   - Node: capability interface shared by every storage strategy
//   - DenseNode: contiguous 2^n counter table with O(1) indexing
//   - SparseNode: counters for visited addresses only
//   - Bit addressing: Decode, Encode and ExtractAddress
//   - Memory footprint helpers for capacity planning
//
// Nodes are safe for concurrent use. Training increments are atomic per
// address; reads never block each other.
package core

import (
	"fmt"
	"strings"
)

// StorageKind selects the backing storage of a node.
type StorageKind uint8

const (
	// Dense stores every one of the 2^n counters contiguously.
	Dense StorageKind = iota + 1
	// Sparse stores counters only for addresses that were trained.
	Sparse
)

// String returns the lowercase kind name.
func (k StorageKind) String() string {
	switch k {
	case Dense:
		return "dense"
	case Sparse:
		return "sparse"
	default:
		return fmt.Sprintf("StorageKind(%d)", uint8(k))
	}
}

// Valid reports whether k names a known storage strategy.
func (k StorageKind) Valid() bool {
	return k == Dense || k == Sparse
}

// ParseStorageKind parses "dense" or "sparse", case-insensitively.
func ParseStorageKind(s string) (StorageKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dense":
		return Dense, nil
	case "sparse":
		return Sparse, nil
	default:
		return 0, fmt.Errorf("parse storage kind %q: %w", s, ErrUnknownStorageKind)
	}
}

// Node is a single RAM lookup table of fixed address width.
type Node interface {
	// Train increments the counter at addr by one.
	Train(addr Address) error
	// Response returns the counter at addr, 0 if it was never trained.
	Response(addr Address) (uint64, error)
	// Fire reports whether addr was trained at least once.
	Fire(addr Address) (bool, error)
	// AddressWidth returns n, the number of address bits.
	AddressWidth() int
	// StorageKind returns the backing storage strategy.
	StorageKind() StorageKind
	// Size returns the number of addressable cells, 2^n.
	Size() uint64
	// HammingWeight returns the number of addresses with a non-zero counter.
	HammingWeight() int
	// MemoryBytes estimates the bytes held by the counter storage.
	MemoryBytes() int
}

// DefaultMaxDenseWidth bounds dense allocations made through MakeNode:
// 2^20 counters of 8 bytes, 8 MiB per node.
const DefaultMaxDenseWidth = 20

// NodeOptions configures node construction.
type NodeOptions struct {
	// MaxDenseWidth is the widest dense node that may be allocated.
	// Values <= 0 select DefaultMaxDenseWidth; values above MaxAddressWidth
	// are clamped to it.
	MaxDenseWidth int
}

// DefaultNodeOptions returns the construction defaults.
func DefaultNodeOptions() NodeOptions {
	return NodeOptions{MaxDenseWidth: DefaultMaxDenseWidth}
}

func (o NodeOptions) maxDenseWidth() int {
	switch {
	case o.MaxDenseWidth <= 0:
		return DefaultMaxDenseWidth
	case o.MaxDenseWidth > MaxAddressWidth:
		return MaxAddressWidth
	default:
		return o.MaxDenseWidth
	}
}

// MakeNode builds a node with the default options.
func MakeNode(width int, kind StorageKind) (Node, error) {
	return MakeNodeWithOptions(width, kind, DefaultNodeOptions())
}

// MakeNodeWithOptions builds a node of the given width and storage kind.
// Structural errors are reported here and never produce a usable node.
func MakeNodeWithOptions(width int, kind StorageKind, opts NodeOptions) (Node, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("make node: %s: %w", kind, ErrUnknownStorageKind)
	}
	switch kind {
	case Dense:
		n, err := newDenseNode(width, opts.maxDenseWidth())
		if err != nil {
			return nil, err
		}
		return n, nil
	default:
		n, err := NewSparseNode(width)
		if err != nil {
			return nil, err
		}
		return n, nil
	}
}

func validateWidth(width int) error {
	if width < 1 || width > MaxAddressWidth {
		return fmt.Errorf("width %d not in [1, %d]: %w", width, MaxAddressWidth, ErrInvalidAddressWidth)
	}
	return nil
}

func checkAddress(addr Address, width int) error {
	if addr >= Address(1)<<uint(width) {
		return fmt.Errorf("address %d for width %d: %w", addr, width, ErrAddressOutOfRange)
	}
	return nil
}
