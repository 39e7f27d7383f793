// Package model defines how a discriminator's input bits are wired to its
// RAM nodes.
//
// A Mapping partitions the global input bit range [0, totalBits) into ordered
// groups, one group per node. Group i lists the global bit positions that
// form node i's address, least significant bit first. Every input bit belongs
// to exactly one group.
//
// Key operations:
//   - Build: seeded pseudo-random partition, reproducible across runs
//   - Linear: identity-order partition (consecutive bits per node)
//   - FromGroups: explicit partition, validated on construction
//   - UniformGroupSizes: equal tuple sizes for a given input width
//
// Mappings are immutable after construction and may be shared by any number
// of discriminators, including concurrently.
package model

import (
	"fmt"
	"math/rand/v2"

	"go.uber.org/multierr"

	"github.com/sbl8/ramnet/core"
)

// seedStream is the fixed PCG stream selector; only the seed varies.
const seedStream = 0x72616d6e6574 // "ramnet"

// Mapping is a partition of input bit indices into per-node groups.
type Mapping struct {
	groups    [][]int
	totalBits int
	seed      uint64
	shuffled  bool
}

// Build produces a pseudo-random partition of [0, totalBits) into groups of
// the given sizes. The same seed always yields the same partition.
func Build(totalBits int, groupSizes []int, seed uint64) (*Mapping, error) {
	if err := checkSizes(totalBits, groupSizes); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(seed, seedStream))
	m := split(rng.Perm(totalBits), groupSizes)
	m.seed = seed
	m.shuffled = true
	return m, nil
}

// Linear maps consecutive input bits to consecutive nodes: the first
// groupSizes[0] bits address node 0, and so on.
func Linear(totalBits int, groupSizes []int) (*Mapping, error) {
	if err := checkSizes(totalBits, groupSizes); err != nil {
		return nil, err
	}
	order := make([]int, totalBits)
	for i := range order {
		order[i] = i
	}
	return split(order, groupSizes), nil
}

// FromGroups builds a mapping from explicit groups. The groups are copied.
func FromGroups(groups [][]int) (*Mapping, error) {
	m := &Mapping{groups: make([][]int, len(groups))}
	for i, g := range groups {
		m.groups[i] = append([]int(nil), g...)
		m.totalBits += len(g)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// UniformGroupSizes splits totalBits into tuples of tupleSize bits. The
// input width must be a positive multiple of the tuple size.
func UniformGroupSizes(totalBits, tupleSize int) ([]int, error) {
	if tupleSize < 1 || totalBits < 1 {
		return nil, fmt.Errorf("uniform groups of %d over %d bits: %w", tupleSize, totalBits, core.ErrMalformedMapping)
	}
	if totalBits%tupleSize != 0 {
		return nil, fmt.Errorf("input width %d is not a multiple of tuple size %d: %w", totalBits, tupleSize, core.ErrMalformedMapping)
	}
	sizes := make([]int, totalBits/tupleSize)
	for i := range sizes {
		sizes[i] = tupleSize
	}
	return sizes, nil
}

func checkSizes(totalBits int, groupSizes []int) error {
	if len(groupSizes) == 0 {
		return fmt.Errorf("no groups: %w", core.ErrMalformedMapping)
	}
	sum := 0
	for i, s := range groupSizes {
		if s < 1 || s > core.MaxAddressWidth {
			return fmt.Errorf("group %d size %d not in [1, %d]: %w", i, s, core.MaxAddressWidth, core.ErrMalformedMapping)
		}
		sum += s
	}
	if sum != totalBits {
		return fmt.Errorf("group sizes sum to %d, want %d: %w", sum, totalBits, core.ErrMalformedMapping)
	}
	return nil
}

func split(order []int, groupSizes []int) *Mapping {
	m := &Mapping{groups: make([][]int, len(groupSizes)), totalBits: len(order)}
	off := 0
	for i, s := range groupSizes {
		m.groups[i] = append([]int(nil), order[off:off+s]...)
		off += s
	}
	return m
}

// Validate checks that the groups form a partition of [0, TotalBits()).
// Every defect found is reported, combined into one error.
func (m *Mapping) Validate() error {
	if len(m.groups) == 0 {
		return fmt.Errorf("no groups: %w", core.ErrMalformedMapping)
	}

	var err error
	seen := make([]int, m.totalBits)
	for i := range seen {
		seen[i] = -1
	}
	for gi, g := range m.groups {
		if len(g) < 1 || len(g) > core.MaxAddressWidth {
			err = multierr.Append(err, fmt.Errorf("group %d has %d bits: %w", gi, len(g), core.ErrMalformedMapping))
		}
		for _, idx := range g {
			switch {
			case idx < 0 || idx >= m.totalBits:
				err = multierr.Append(err, fmt.Errorf("group %d: bit %d outside [0, %d): %w", gi, idx, m.totalBits, core.ErrMalformedMapping))
			case seen[idx] >= 0:
				err = multierr.Append(err, fmt.Errorf("bit %d in groups %d and %d: %w", idx, seen[idx], gi, core.ErrMalformedMapping))
			default:
				seen[idx] = gi
			}
		}
	}
	for idx, gi := range seen {
		if gi < 0 {
			err = multierr.Append(err, fmt.Errorf("bit %d unassigned: %w", idx, core.ErrMalformedMapping))
		}
	}
	return err
}

// TotalBits returns the input width the mapping partitions.
func (m *Mapping) TotalBits() int { return m.totalBits }

// NodeCount returns the number of groups.
func (m *Mapping) NodeCount() int { return len(m.groups) }

// GroupSize returns the width of group i.
func (m *Mapping) GroupSize(i int) int { return len(m.groups[i]) }

// GroupSizes returns every group width in node order.
func (m *Mapping) GroupSizes() []int {
	sizes := make([]int, len(m.groups))
	for i, g := range m.groups {
		sizes[i] = len(g)
	}
	return sizes
}

// Group returns a copy of group i.
func (m *Mapping) Group(i int) []int {
	return append([]int(nil), m.groups[i]...)
}

// Groups returns a deep copy of every group.
func (m *Mapping) Groups() [][]int {
	out := make([][]int, len(m.groups))
	for i := range m.groups {
		out[i] = m.Group(i)
	}
	return out
}

// Seed returns the permutation seed; zero with Shuffled false for linear
// and explicit mappings.
func (m *Mapping) Seed() uint64 { return m.seed }

// Shuffled reports whether the mapping came from a seeded permutation.
func (m *Mapping) Shuffled() bool { return m.shuffled }

// Address extracts node i's address from input. The caller guarantees
// len(input) == TotalBits().
func (m *Mapping) Address(input []bool, i int) (core.Address, error) {
	return core.ExtractAddress(input, m.groups[i])
}

// Addresses extracts every node's address from input.
func (m *Mapping) Addresses(input []bool) ([]core.Address, error) {
	if len(input) != m.totalBits {
		return nil, fmt.Errorf("input has %d bits, mapping covers %d: %w", len(input), m.totalBits, core.ErrInputSize)
	}
	addrs := make([]core.Address, len(m.groups))
	for i, g := range m.groups {
		a, err := core.ExtractAddress(input, g)
		if err != nil {
			return nil, err
		}
		addrs[i] = a
	}
	return addrs, nil
}
