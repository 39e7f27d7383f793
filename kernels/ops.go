// Package kernels provides input binarization kernels for ramnet.
//
// RAM nodes are addressed by bits, so numeric features must be turned into
// binary vectors before training or classification. Each kernel encodes a
// slice of values into a fixed number of bits per value and appends them to
// a destination vector, so a record's features can be encoded back to back
// without intermediate allocations.
//
// Available operations:
//   - Threshold: one bit per value, set when the value reaches a cut point
//   - Thermometer: Levels bits per value, a prefix of ones proportional to
//     the value's position in [Min, Max]
//   - OneHot: Levels bits per value, exactly one bit set for its bucket
//   - Bytes: eight bits per value, the value's byte least significant first
//
// All kernels are registered in the Catalog array for dispatch by op code,
// and by name through Lookup.
package kernels

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sbl8/ramnet/core"
)

// Params configures a kernel.
type Params struct {
	// Min and Max bound the value range for Thermometer and OneHot.
	Min, Max float64
	// Levels is the number of bits per value for Thermometer and OneHot.
	Levels int
	// Cut is the Threshold kernel's cut point; values >= Cut encode as 1.
	Cut float64
}

// KernelFn appends the encoding of values to dst and returns the extended
// vector. Params are validated by the caller.
type KernelFn func(dst []bool, values []float64, p Params) []bool

// Op identifies a kernel.
type Op uint8

// Kernel operation codes
const (
	OpNoop        Op = 0x00
	OpThreshold   Op = 0x01
	OpThermometer Op = 0x02
	OpOneHot      Op = 0x03
	OpBytes       Op = 0x04
)

// Catalog maps op codes to kernel implementations
var Catalog = [256]KernelFn{
	OpNoop:        noop,
	OpThreshold:   threshold,
	OpThermometer: thermometer,
	OpOneHot:      oneHot,
	OpBytes:       unpackBytes,
}

var opNames = map[string]Op{
	"threshold":   OpThreshold,
	"thermometer": OpThermometer,
	"onehot":      OpOneHot,
	"bytes":       OpBytes,
}

// ErrUnknownOp reports a kernel name or code with no implementation.
var ErrUnknownOp = errors.New("unknown kernel")

// String returns the kernel name.
func (op Op) String() string {
	for name, o := range opNames {
		if o == op {
			return name
		}
	}
	if op == OpNoop {
		return "noop"
	}
	return fmt.Sprintf("Op(%#02x)", uint8(op))
}

// Lookup resolves a kernel name, case-insensitively.
func Lookup(name string) (Op, error) {
	op, ok := opNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("kernel %q: %w", name, ErrUnknownOp)
	}
	return op, nil
}

// BitsPerValue returns how many bits op emits for one value.
func BitsPerValue(op Op, p Params) int {
	switch op {
	case OpThreshold:
		return 1
	case OpThermometer, OpOneHot:
		return p.Levels
	case OpBytes:
		return 8
	default:
		return 0
	}
}

// -------- Kernels ----------

func noop(dst []bool, _ []float64, _ Params) []bool {
	return dst
}

// threshold emits v >= Cut
func threshold(dst []bool, values []float64, p Params) []bool {
	for _, v := range values {
		dst = append(dst, v >= p.Cut)
	}
	return dst
}

// thermometer sets the first k of Levels bits, k = round(Levels * frac(v))
func thermometer(dst []bool, values []float64, p Params) []bool {
	for _, v := range values {
		k := int(math.Round(fraction(v, p) * float64(p.Levels)))
		for i := 0; i < p.Levels; i++ {
			dst = append(dst, i < k)
		}
	}
	return dst
}

// oneHot sets bit floor(Levels * frac(v)), the top bucket including Max
func oneHot(dst []bool, values []float64, p Params) []bool {
	for _, v := range values {
		k := int(fraction(v, p) * float64(p.Levels))
		if k >= p.Levels {
			k = p.Levels - 1
		}
		for i := 0; i < p.Levels; i++ {
			dst = append(dst, i == k)
		}
	}
	return dst
}

// unpackBytes emits the low byte of each value, clamped to [0, 255], LSB first
func unpackBytes(dst []bool, values []float64, _ Params) []bool {
	for _, v := range values {
		b := math.Round(math.Min(math.Max(v, 0), 255))
		dst = append(dst, core.Encode(core.Address(b), 8)...)
	}
	return dst
}

// fraction maps v into [0, 1] over [Min, Max], clamping outside values.
// NaN maps to 0.
func fraction(v float64, p Params) float64 {
	f := (v - p.Min) / (p.Max - p.Min)
	switch {
	case math.IsNaN(f) || f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
