package runtime

import (
	"errors"
	"fmt"

	"github.com/sbl8/ramnet/core"
	"github.com/sbl8/ramnet/model"
)

// NodeSpec describes one node of a discriminator.
type NodeSpec struct {
	AddressWidth int
	Storage      core.StorageKind
}

// Discriminator represents one class: an ordered set of RAM nodes, each fed
// the slice of the input selected by the mapping. Its structure is fixed at
// construction; only node counters change afterwards.
type Discriminator struct {
	nodes   []core.Node
	mapping *model.Mapping
}

// NewDiscriminator builds a discriminator with default node options.
func NewDiscriminator(specs []NodeSpec, mapping *model.Mapping) (*Discriminator, error) {
	return NewDiscriminatorWithOptions(specs, mapping, core.DefaultNodeOptions())
}

// NewDiscriminatorWithOptions builds one node per spec and binds node i to
// mapping group i. Group i must be exactly specs[i].AddressWidth bits wide.
func NewDiscriminatorWithOptions(specs []NodeSpec, mapping *model.Mapping, opts core.NodeOptions) (*Discriminator, error) {
	if mapping == nil {
		return nil, errors.New("mapping cannot be nil")
	}
	if err := mapping.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mapping: %w", err)
	}
	if len(specs) != mapping.NodeCount() {
		return nil, fmt.Errorf("%d node specs for %d mapping groups: %w", len(specs), mapping.NodeCount(), core.ErrMalformedMapping)
	}

	d := &Discriminator{
		nodes:   make([]core.Node, len(specs)),
		mapping: mapping,
	}
	for i, spec := range specs {
		if got := mapping.GroupSize(i); got != spec.AddressWidth {
			return nil, fmt.Errorf("node %d: width %d but mapping group has %d bits: %w", i, spec.AddressWidth, got, core.ErrMalformedMapping)
		}
		n, err := core.MakeNodeWithOptions(spec.AddressWidth, spec.Storage, opts)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		d.nodes[i] = n
	}
	return d, nil
}

// Train records input in every node. All addresses are computed before any
// counter changes, so a rejected input leaves the discriminator untouched.
func (d *Discriminator) Train(input []bool) error {
	addrs, err := d.mapping.Addresses(input)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	return d.trainAddresses(addrs)
}

func (d *Discriminator) trainAddresses(addrs []core.Address) error {
	for i, a := range addrs {
		if err := d.nodes[i].Train(a); err != nil {
			return fmt.Errorf("train node %d: %w", i, err)
		}
	}
	return nil
}

// Addresses returns the address input selects in each node.
func (d *Discriminator) Addresses(input []bool) ([]core.Address, error) {
	return d.mapping.Addresses(input)
}

// Responses returns the counter each node holds for its slice of input.
func (d *Discriminator) Responses(input []bool) ([]uint64, error) {
	addrs, err := d.mapping.Addresses(input)
	if err != nil {
		return nil, fmt.Errorf("response: %w", err)
	}
	counts := make([]uint64, len(addrs))
	for i, a := range addrs {
		c, err := d.nodes[i].Response(a)
		if err != nil {
			return nil, fmt.Errorf("response node %d: %w", i, err)
		}
		counts[i] = c
	}
	return counts, nil
}

// Response returns the number of nodes whose counter for input is strictly
// greater than bleach.
func (d *Discriminator) Response(input []bool, bleach uint64) (int, error) {
	counts, err := d.Responses(input)
	if err != nil {
		return 0, err
	}
	return ScoreCounts(counts, bleach), nil
}

// Score is Response at bleach 0: the number of nodes that recognise input.
func (d *Discriminator) Score(input []bool) (int, error) {
	return d.Response(input, 0)
}

// TrainValue trains on the integer-encoded input x, bit i of x being input
// bit i. The discriminator must be at most 64 bits wide.
func (d *Discriminator) TrainValue(x uint64) error {
	input, err := d.expand(x)
	if err != nil {
		return err
	}
	return d.Train(input)
}

// ResponseValue is Response for an integer-encoded input.
func (d *Discriminator) ResponseValue(x uint64, bleach uint64) (int, error) {
	input, err := d.expand(x)
	if err != nil {
		return 0, err
	}
	return d.Response(input, bleach)
}

func (d *Discriminator) expand(x uint64) ([]bool, error) {
	if d.InputBits() > 64 {
		return nil, fmt.Errorf("integer input for %d-bit discriminator: %w", d.InputBits(), core.ErrInputSize)
	}
	return core.Encode(core.Address(x), d.InputBits()), nil
}

// ScoreCounts counts the entries of counts strictly greater than bleach.
func ScoreCounts(counts []uint64, bleach uint64) int {
	score := 0
	for _, c := range counts {
		if c > bleach {
			score++
		}
	}
	return score
}

// InputBits returns the accepted input vector length.
func (d *Discriminator) InputBits() int { return d.mapping.TotalBits() }

// NodeCount returns the number of nodes.
func (d *Discriminator) NodeCount() int { return len(d.nodes) }

// Node returns node i.
func (d *Discriminator) Node(i int) core.Node { return d.nodes[i] }

// Mapping returns the bit mapping the discriminator was built with.
func (d *Discriminator) Mapping() *model.Mapping { return d.mapping }

// HammingWeights returns each node's number of trained addresses.
func (d *Discriminator) HammingWeights() []int {
	w := make([]int, len(d.nodes))
	for i, n := range d.nodes {
		w[i] = n.HammingWeight()
	}
	return w
}

// MemoryBytes sums the estimated counter storage of every node.
func (d *Discriminator) MemoryBytes() int {
	total := 0
	for _, n := range d.nodes {
		total += n.MemoryBytes()
	}
	return total
}

// DiscriminatorConfig describes a discriminator of equal-width nodes.
type DiscriminatorConfig struct {
	// InputBits is the input vector length; a multiple of TupleSize.
	InputBits int
	// TupleSize is the address width of every node.
	TupleSize int
	// Storage selects dense or sparse nodes.
	Storage core.StorageKind
	// Seed drives the input bit permutation.
	Seed uint64
	// Linear disables the permutation: consecutive bits feed each node.
	Linear bool
	// Node bounds node allocation.
	Node core.NodeOptions
}

// BuildMapping creates the mapping described by c.
func (c DiscriminatorConfig) BuildMapping() (*model.Mapping, error) {
	sizes, err := model.UniformGroupSizes(c.InputBits, c.TupleSize)
	if err != nil {
		return nil, err
	}
	if c.Linear {
		return model.Linear(c.InputBits, sizes)
	}
	return model.Build(c.InputBits, sizes, c.Seed)
}

// Specs returns one NodeSpec per mapping group.
func (c DiscriminatorConfig) Specs(mapping *model.Mapping) []NodeSpec {
	specs := make([]NodeSpec, mapping.NodeCount())
	for i := range specs {
		specs[i] = NodeSpec{AddressWidth: mapping.GroupSize(i), Storage: c.Storage}
	}
	return specs
}

// BuildDiscriminator creates a discriminator from c with its own mapping.
func BuildDiscriminator(c DiscriminatorConfig) (*Discriminator, error) {
	mapping, err := c.BuildMapping()
	if err != nil {
		return nil, err
	}
	return NewDiscriminatorWithOptions(c.Specs(mapping), mapping, c.Node)
}
