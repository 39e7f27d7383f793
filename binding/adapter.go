// Package binding exposes ramnet nodes and discriminators to foreign callers
// through integer handles.
//
// The adapter only marshals plain values (ints, strings, 0/1 slices) into
// the core and runtime constructors and operations; it holds no ramnet logic
// of its own. Objects live in the adapter's registry until Release.
package binding

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sbl8/ramnet/core"
	"github.com/sbl8/ramnet/model"
	"github.com/sbl8/ramnet/runtime"
)

// Handle identifies an object owned by an Adapter. Zero is never issued.
type Handle uint64

// ErrInvalidHandle reports a released, unknown or wrongly typed handle.
var ErrInvalidHandle = errors.New("invalid handle")

// Adapter is a handle registry. It is safe for concurrent use.
type Adapter struct {
	mu      sync.RWMutex
	next    Handle
	objects map[Handle]any
}

// NewAdapter returns an empty registry.
func NewAdapter() *Adapter {
	return &Adapter{objects: make(map[Handle]any)}
}

func (a *Adapter) put(obj any) Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next++
	a.objects[a.next] = obj
	return a.next
}

func lookup[T any](a *Adapter, h Handle) (T, error) {
	a.mu.RLock()
	obj, ok := a.objects[h]
	a.mu.RUnlock()

	v, typed := obj.(T)
	if !ok || !typed {
		var zero T
		return zero, fmt.Errorf("handle %d: %w", h, ErrInvalidHandle)
	}
	return v, nil
}

// Release drops the object behind h.
func (a *Adapter) Release(h Handle) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.objects[h]; !ok {
		return fmt.Errorf("release handle %d: %w", h, ErrInvalidHandle)
	}
	delete(a.objects, h)
	return nil
}

// Len returns the number of live handles.
func (a *Adapter) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.objects)
}

// MakeNode creates a node; kind is "dense" or "sparse".
func (a *Adapter) MakeNode(width int, kind string) (Handle, error) {
	k, err := core.ParseStorageKind(kind)
	if err != nil {
		return 0, err
	}
	n, err := core.MakeNode(width, k)
	if err != nil {
		return 0, err
	}
	return a.put(n), nil
}

// NodeTrain increments the counter at addr.
func (a *Adapter) NodeTrain(h Handle, addr uint64) error {
	n, err := lookup[core.Node](a, h)
	if err != nil {
		return err
	}
	return n.Train(core.Address(addr))
}

// NodeResponse returns the counter at addr.
func (a *Adapter) NodeResponse(h Handle, addr uint64) (uint64, error) {
	n, err := lookup[core.Node](a, h)
	if err != nil {
		return 0, err
	}
	return n.Response(core.Address(addr))
}

// MakeDiscriminator creates a discriminator of inputBits/tupleSize nodes of
// the given kind. A zero seed selects the linear mapping.
func (a *Adapter) MakeDiscriminator(inputBits, tupleSize int, kind string, seed uint64) (Handle, error) {
	k, err := core.ParseStorageKind(kind)
	if err != nil {
		return 0, err
	}
	d, err := runtime.BuildDiscriminator(runtime.DiscriminatorConfig{
		InputBits: inputBits,
		TupleSize: tupleSize,
		Storage:   k,
		Seed:      seed,
		Linear:    seed == 0,
	})
	if err != nil {
		return 0, err
	}
	return a.put(d), nil
}

// MakeDiscriminatorFromGroups creates a discriminator over an explicit
// mapping, one node per group.
func (a *Adapter) MakeDiscriminatorFromGroups(groups [][]int, kind string) (Handle, error) {
	k, err := core.ParseStorageKind(kind)
	if err != nil {
		return 0, err
	}
	m, err := model.FromGroups(groups)
	if err != nil {
		return 0, err
	}
	specs := make([]runtime.NodeSpec, m.NodeCount())
	for i := range specs {
		specs[i] = runtime.NodeSpec{AddressWidth: m.GroupSize(i), Storage: k}
	}
	d, err := runtime.NewDiscriminator(specs, m)
	if err != nil {
		return 0, err
	}
	return a.put(d), nil
}

// DiscriminatorTrain trains on a 0/1 vector.
func (a *Adapter) DiscriminatorTrain(h Handle, bits []int) error {
	d, err := lookup[*runtime.Discriminator](a, h)
	if err != nil {
		return err
	}
	return d.Train(core.BitsFromInts(bits))
}

// DiscriminatorResponse scores a 0/1 vector at bleach.
func (a *Adapter) DiscriminatorResponse(h Handle, bits []int, bleach uint64) (int, error) {
	d, err := lookup[*runtime.Discriminator](a, h)
	if err != nil {
		return 0, err
	}
	return d.Response(core.BitsFromInts(bits), bleach)
}
