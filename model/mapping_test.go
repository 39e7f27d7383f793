package model

import (
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/multierr"

	"github.com/sbl8/ramnet/core"
)

func coversExactlyOnce(t *testing.T, m *Mapping) {
	t.Helper()
	var all []int
	for _, g := range m.Groups() {
		all = append(all, g...)
	}
	sort.Ints(all)
	if len(all) != m.TotalBits() {
		t.Fatalf("groups hold %d indices, want %d", len(all), m.TotalBits())
	}
	for i, idx := range all {
		if idx != i {
			t.Fatalf("sorted indices[%d] = %d, want %d", i, idx, i)
		}
	}
}

func TestBuildIsPartition(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		total int
		sizes []int
	}{
		{name: "uniform", total: 8, sizes: []int{2, 2, 2, 2}},
		{name: "mixed", total: 23, sizes: []int{5, 7, 1, 10}},
		{name: "single", total: 12, sizes: []int{12}},
		{name: "wide", total: 784, sizes: mustUniform(t, 784, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Build(tt.total, tt.sizes, 42)
			if err != nil {
				t.Fatalf("Build() failed: %v", err)
			}
			if err := m.Validate(); err != nil {
				t.Fatalf("Validate() = %v", err)
			}
			coversExactlyOnce(t, m)
			if diff := cmp.Diff(tt.sizes, m.GroupSizes()); diff != "" {
				t.Errorf("GroupSizes() mismatch (-want +got):\n%s", diff)
			}
			if !m.Shuffled() || m.Seed() != 42 {
				t.Errorf("Shuffled() = %v, Seed() = %d", m.Shuffled(), m.Seed())
			}
		})
	}
}

func mustUniform(t *testing.T, total, tuple int) []int {
	t.Helper()
	sizes, err := UniformGroupSizes(total, tuple)
	if err != nil {
		t.Fatal(err)
	}
	return sizes
}

func TestBuildDeterministic(t *testing.T) {
	t.Parallel()
	sizes := []int{4, 4, 4, 4}
	a, _ := Build(16, sizes, 7)
	b, _ := Build(16, sizes, 7)
	if diff := cmp.Diff(a.Groups(), b.Groups()); diff != "" {
		t.Errorf("same seed gave different mappings (-a +b):\n%s", diff)
	}
	c, _ := Build(16, sizes, 8)
	if cmp.Equal(a.Groups(), c.Groups()) {
		t.Error("different seeds gave identical mappings")
	}
}

func TestLinear(t *testing.T) {
	t.Parallel()
	m, err := Linear(6, []int{2, 3, 1})
	if err != nil {
		t.Fatal(err)
	}
	want := [][]int{{0, 1}, {2, 3, 4}, {5}}
	if diff := cmp.Diff(want, m.Groups()); diff != "" {
		t.Errorf("Groups() mismatch (-want +got):\n%s", diff)
	}
	if m.Shuffled() {
		t.Error("Linear mapping reports Shuffled() = true")
	}
}

func TestBuildErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		total int
		sizes []int
	}{
		{name: "no groups", total: 4},
		{name: "sum short", total: 8, sizes: []int{2, 2}},
		{name: "sum long", total: 3, sizes: []int{2, 2}},
		{name: "zero group", total: 2, sizes: []int{2, 0}},
		{name: "too wide", total: 64, sizes: []int{64}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Build(tt.total, tt.sizes, 1); !errors.Is(err, core.ErrMalformedMapping) {
				t.Errorf("Build() error = %v, want ErrMalformedMapping", err)
			}
			if _, err := Linear(tt.total, tt.sizes); !errors.Is(err, core.ErrMalformedMapping) {
				t.Errorf("Linear() error = %v, want ErrMalformedMapping", err)
			}
		})
	}
}

func TestFromGroupsReportsEveryDefect(t *testing.T) {
	t.Parallel()
	// bit 1 repeated, bit 9 out of range, bits 3 and 4 unassigned
	_, err := FromGroups([][]int{{0, 1}, {1, 2}, {9}})
	if !errors.Is(err, core.ErrMalformedMapping) {
		t.Fatalf("FromGroups() error = %v, want ErrMalformedMapping", err)
	}
	if got := len(multierr.Errors(err)); got != 4 {
		t.Errorf("FromGroups() reported %d defects, want 4: %v", got, err)
	}

	m, err := FromGroups([][]int{{3, 0}, {1, 2}})
	if err != nil {
		t.Fatalf("FromGroups(valid) failed: %v", err)
	}
	coversExactlyOnce(t, m)
}

func TestUniformGroupSizes(t *testing.T) {
	t.Parallel()
	sizes, err := UniformGroupSizes(12, 4)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{4, 4, 4}, sizes); diff != "" {
		t.Errorf("UniformGroupSizes mismatch (-want +got):\n%s", diff)
	}
	for _, tc := range [][2]int{{10, 4}, {0, 2}, {8, 0}} {
		if _, err := UniformGroupSizes(tc[0], tc[1]); !errors.Is(err, core.ErrMalformedMapping) {
			t.Errorf("UniformGroupSizes(%d, %d) error = %v, want ErrMalformedMapping", tc[0], tc[1], err)
		}
	}
}

func TestAddresses(t *testing.T) {
	t.Parallel()
	m, _ := Linear(8, []int{2, 2, 2, 2})
	input := core.BitsFromInts([]int{1, 0, 1, 1, 0, 0, 1, 1})
	got, err := m.Addresses(input)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]core.Address{1, 3, 0, 3}, got); diff != "" {
		t.Errorf("Addresses() mismatch (-want +got):\n%s", diff)
	}
	if _, err := m.Addresses(input[:7]); !errors.Is(err, core.ErrInputSize) {
		t.Errorf("Addresses(short) error = %v, want ErrInputSize", err)
	}
}

func TestGroupsAreCopies(t *testing.T) {
	t.Parallel()
	m, _ := Linear(4, []int{2, 2})
	g := m.Group(0)
	g[0] = 3
	if m.Group(0)[0] != 0 {
		t.Error("mutating Group() result changed the mapping")
	}
}
