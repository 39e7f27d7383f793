package kernels

import (
	"errors"
	"fmt"
)

// Encoder binds a kernel to validated parameters and a fixed feature count.
type Encoder struct {
	op       Op
	params   Params
	features int
	fn       KernelFn
}

// NewEncoder validates p for op and returns an encoder of features values.
func NewEncoder(op Op, p Params, features int) (*Encoder, error) {
	fn := Catalog[op]
	if fn == nil || op == OpNoop {
		return nil, fmt.Errorf("op %s: %w", op, ErrUnknownOp)
	}
	if features < 1 {
		return nil, fmt.Errorf("encoder needs at least one feature, got %d", features)
	}
	switch op {
	case OpThermometer, OpOneHot:
		if p.Levels < 1 {
			return nil, fmt.Errorf("%s: levels %d must be positive", op, p.Levels)
		}
		if !(p.Max > p.Min) {
			return nil, fmt.Errorf("%s: empty range [%g, %g]", op, p.Min, p.Max)
		}
	}
	return &Encoder{op: op, params: p, features: features, fn: fn}, nil
}

// Op returns the encoder's kernel.
func (e *Encoder) Op() Op { return e.op }

// Features returns the number of values per record.
func (e *Encoder) Features() int { return e.features }

// Width returns the length of every encoded vector.
func (e *Encoder) Width() int { return e.features * BitsPerValue(e.op, e.params) }

// Encode converts one record into a binary vector of Width bits.
func (e *Encoder) Encode(values []float64) ([]bool, error) {
	return e.AppendEncode(make([]bool, 0, e.Width()), values)
}

// AppendEncode appends the encoding of values to dst.
func (e *Encoder) AppendEncode(dst []bool, values []float64) ([]bool, error) {
	if len(values) != e.features {
		return dst, fmt.Errorf("record has %d values, want %d", len(values), e.features)
	}
	return e.fn(dst, values, e.params), nil
}

// ErrEmptyRange is returned by FitRange for an empty value set.
var ErrEmptyRange = errors.New("no values to fit")

// FitRange returns Params spanning the minimum and maximum over every
// record, keeping levels and cut from base. A constant column widens Max by
// one so the range stays non-empty.
func FitRange(records [][]float64, base Params) (Params, error) {
	first := true
	p := base
	for _, r := range records {
		for _, v := range r {
			if first {
				p.Min, p.Max = v, v
				first = false
				continue
			}
			p.Min = min(p.Min, v)
			p.Max = max(p.Max, v)
		}
	}
	if first {
		return base, ErrEmptyRange
	}
	if p.Max == p.Min {
		p.Max = p.Min + 1
	}
	return p, nil
}
