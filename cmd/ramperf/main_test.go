package main

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/sbl8/ramnet/core"
)

func TestTrainAllReportsErrors(t *testing.T) {
	t.Parallel()
	for _, kind := range []core.StorageKind{core.Dense, core.Sparse} {
		t.Run(kind.String(), func(t *testing.T) {
			n, err := core.MakeNode(4, kind)
			if err != nil {
				t.Fatalf("MakeNode() failed: %v", err)
			}
			addrs := []core.Address{1, 2, 16}
			if err := trainAll(n, addrs); !errors.Is(err, core.ErrAddressOutOfRange) {
				t.Errorf("trainAll() error = %v, want ErrAddressOutOfRange", err)
			}
			if err := respondAll(n, addrs); !errors.Is(err, core.ErrAddressOutOfRange) {
				t.Errorf("respondAll() error = %v, want ErrAddressOutOfRange", err)
			}
		})
	}
}

func TestTrainAllRandomAddresses(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(1, 0))
	n, err := core.MakeNode(8, core.Sparse)
	if err != nil {
		t.Fatalf("MakeNode() failed: %v", err)
	}
	addrs := randomAddresses(rng, 500, 8)
	if err := trainAll(n, addrs); err != nil {
		t.Fatalf("trainAll() failed: %v", err)
	}
	if err := respondAll(n, addrs); err != nil {
		t.Fatalf("respondAll() failed: %v", err)
	}
	if n.HammingWeight() == 0 || n.HammingWeight() > 256 {
		t.Errorf("HammingWeight() = %d, want in [1, 256]", n.HammingWeight())
	}
}
