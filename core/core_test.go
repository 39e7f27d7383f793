package core

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		bits []int
		want Address
	}{
		{name: "empty", bits: nil, want: 0},
		{name: "byte", bits: []int{0, 0, 0, 1, 1, 0, 1, 1}, want: 216},
		{name: "reversed byte", bits: []int{1, 1, 1, 0, 0, 1, 0, 0}, want: 39},
		{name: "twelve bits", bits: []int{1, 0, 1, 0, 1, 0, 1, 1, 1, 0, 0, 1}, want: 2517},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decode(BitsFromInts(tt.bits)); got != tt.want {
				t.Errorf("Decode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEncodeInvertsDecode(t *testing.T) {
	t.Parallel()
	for a := Address(0); a < 1<<10; a++ {
		if got := Decode(Encode(a, 10)); got != a {
			t.Fatalf("Decode(Encode(%d)) = %d", a, got)
		}
	}
	if diff := cmp.Diff([]int{0, 0, 0, 1, 1, 0, 1, 1}, BitsToInts(Encode(216, 8))); diff != "" {
		t.Errorf("Encode(216, 8) mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractAddress(t *testing.T) {
	t.Parallel()
	input := BitsFromInts([]int{1, 0, 1, 1, 0, 0, 1, 1})

	tests := []struct {
		name    string
		indices []int
		want    Address
		wantErr error
	}{
		{name: "lsb first", indices: []int{0, 1}, want: 1},
		{name: "order matters", indices: []int{1, 0}, want: 2},
		{name: "scattered", indices: []int{7, 4, 2}, want: 0b101},
		{name: "no bits", indices: nil, want: 0},
		{name: "index past end", indices: []int{0, 8}, wantErr: ErrInputSize},
		{name: "negative index", indices: []int{-1}, wantErr: ErrInputSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractAddress(input, tt.indices)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ExtractAddress() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ExtractAddress() = %d, want %d", got, tt.want)
			}
		})
	}
}

func newNodes(t *testing.T, width int) []Node {
	t.Helper()
	var nodes []Node
	for _, kind := range []StorageKind{Dense, Sparse} {
		n, err := MakeNode(width, kind)
		if err != nil {
			t.Fatalf("MakeNode(%d, %s) failed: %v", width, kind, err)
		}
		nodes = append(nodes, n)
	}
	return nodes
}

func TestFreshNodeRespondsZero(t *testing.T) {
	t.Parallel()
	const width = 6
	for _, n := range newNodes(t, width) {
		for a := Address(0); a < 1<<width; a++ {
			got, err := n.Response(a)
			if err != nil {
				t.Fatalf("%s Response(%d) failed: %v", n.StorageKind(), a, err)
			}
			if got != 0 {
				t.Errorf("%s Response(%d) = %d, want 0", n.StorageKind(), a, got)
			}
		}
		if n.HammingWeight() != 0 {
			t.Errorf("%s HammingWeight() = %d, want 0", n.StorageKind(), n.HammingWeight())
		}
	}
}

func TestTrainCountsFrequency(t *testing.T) {
	t.Parallel()
	for _, n := range newNodes(t, 4) {
		for i := 0; i < 5; i++ {
			if err := n.Train(9); err != nil {
				t.Fatalf("Train failed: %v", err)
			}
		}
		if got, _ := n.Response(9); got != 5 {
			t.Errorf("%s Response(9) = %d, want 5", n.StorageKind(), got)
		}
		if got, _ := n.Response(8); got != 0 {
			t.Errorf("%s Response(8) = %d, want 0", n.StorageKind(), got)
		}
		if fire, _ := n.Fire(9); !fire {
			t.Errorf("%s Fire(9) = false, want true", n.StorageKind())
		}
		if n.HammingWeight() != 1 {
			t.Errorf("%s HammingWeight() = %d, want 1", n.StorageKind(), n.HammingWeight())
		}
		if n.Size() != 16 {
			t.Errorf("%s Size() = %d, want 16", n.StorageKind(), n.Size())
		}
	}
}

func TestDenseSparseParity(t *testing.T) {
	t.Parallel()
	const width = 5
	dense, err := NewDenseNode(width)
	if err != nil {
		t.Fatal(err)
	}
	sparse, err := NewSparseNode(width)
	if err != nil {
		t.Fatal(err)
	}

	sequence := []Address{3, 3, 0, 31, 17, 3, 31, 8}
	for _, a := range sequence {
		if err := dense.Train(a); err != nil {
			t.Fatal(err)
		}
		if err := sparse.Train(a); err != nil {
			t.Fatal(err)
		}
	}

	for a := Address(0); a < 1<<width; a++ {
		d, _ := dense.Response(a)
		s, _ := sparse.Response(a)
		if d != s {
			t.Errorf("Response(%d): dense = %d, sparse = %d", a, d, s)
		}
	}
	if dense.HammingWeight() != sparse.HammingWeight() {
		t.Errorf("HammingWeight: dense = %d, sparse = %d", dense.HammingWeight(), sparse.HammingWeight())
	}
}

func TestAddressOutOfRange(t *testing.T) {
	t.Parallel()
	for _, n := range newNodes(t, 3) {
		if err := n.Train(8); !errors.Is(err, ErrAddressOutOfRange) {
			t.Errorf("%s Train(8) error = %v, want ErrAddressOutOfRange", n.StorageKind(), err)
		}
		if _, err := n.Response(1 << 40); !errors.Is(err, ErrAddressOutOfRange) {
			t.Errorf("%s Response(2^40) error = %v, want ErrAddressOutOfRange", n.StorageKind(), err)
		}
		if n.HammingWeight() != 0 {
			t.Errorf("%s failed Train changed state", n.StorageKind())
		}
	}
}

func TestMakeNodeErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		width   int
		kind    StorageKind
		opts    NodeOptions
		wantErr error
	}{
		{name: "dense at bound", width: DefaultMaxDenseWidth, kind: Dense},
		{name: "dense above bound", width: DefaultMaxDenseWidth + 1, kind: Dense, wantErr: ErrCapacity},
		{name: "dense above word limit", width: MaxAddressWidth + 1, kind: Dense, wantErr: ErrCapacity},
		{name: "dense far above word limit", width: 100, kind: Dense, opts: NodeOptions{MaxDenseWidth: 100}, wantErr: ErrCapacity},
		{name: "dense negative width", width: -1, kind: Dense, wantErr: ErrInvalidAddressWidth},
		{name: "custom bound", width: 8, kind: Dense, opts: NodeOptions{MaxDenseWidth: 7}, wantErr: ErrCapacity},
		{name: "sparse wide", width: 48, kind: Sparse},
		{name: "sparse too wide", width: MaxAddressWidth + 1, kind: Sparse, wantErr: ErrInvalidAddressWidth},
		{name: "zero width", width: 0, kind: Dense, wantErr: ErrInvalidAddressWidth},
		{name: "unknown kind", width: 4, kind: StorageKind(9), wantErr: ErrUnknownStorageKind},
		{name: "zero kind", width: 4, kind: 0, wantErr: ErrUnknownStorageKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := MakeNodeWithOptions(tt.width, tt.kind, tt.opts)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("MakeNodeWithOptions() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil && n != nil {
				t.Error("MakeNodeWithOptions() returned a node alongside an error")
			}
			if err == nil && n.StorageKind() != tt.kind {
				t.Errorf("StorageKind() = %s, want %s", n.StorageKind(), tt.kind)
			}
		})
	}
}

func TestParseStorageKind(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]StorageKind{"dense": Dense, " Sparse ": Sparse, "DENSE": Dense} {
		got, err := ParseStorageKind(in)
		if err != nil || got != want {
			t.Errorf("ParseStorageKind(%q) = %v, %v, want %v", in, got, err, want)
		}
	}
	if _, err := ParseStorageKind("bitset"); !errors.Is(err, ErrUnknownStorageKind) {
		t.Errorf("ParseStorageKind(bitset) error = %v, want ErrUnknownStorageKind", err)
	}
}

func TestConcurrentTrainNoLostUpdates(t *testing.T) {
	t.Parallel()
	const (
		workers = 8
		perWork = 500
	)
	for _, n := range newNodes(t, 4) {
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < perWork; i++ {
					_ = n.Train(5)
					_, _ = n.Response(5)
				}
			}()
		}
		wg.Wait()
		if got, _ := n.Response(5); got != workers*perWork {
			t.Errorf("%s Response(5) = %d, want %d", n.StorageKind(), got, workers*perWork)
		}
	}
}

func TestMemoryFootprint(t *testing.T) {
	t.Parallel()
	if got := DenseTableBytes(10); got != 1024*CounterSize {
		t.Errorf("DenseTableBytes(10) = %d, want %d", got, 1024*CounterSize)
	}
	if got := DenseTableBytes(MaxAddressWidth + 1); got != -1 {
		t.Errorf("DenseTableBytes(64) = %d, want -1", got)
	}
	if !PreferDense(4, 100, DefaultMaxDenseWidth) {
		t.Error("PreferDense(4, 100) = false, want true")
	}
	if PreferDense(30, 100, DefaultMaxDenseWidth) {
		t.Error("PreferDense(30, 100) = true, want false")
	}
	for _, tt := range []struct{ bytes, want int }{{0, 0}, {1, 1}, {64, 1}, {65, 2}} {
		if got := CacheLines(tt.bytes); got != tt.want {
			t.Errorf("CacheLines(%d) = %d, want %d", tt.bytes, got, tt.want)
		}
	}
	if got := SparseTableBytes(2); got != CacheLineSize {
		t.Errorf("SparseTableBytes(2) = %d, want %d", got, CacheLineSize)
	}
}

func BenchmarkDenseTrain(b *testing.B) {
	n, _ := NewDenseNode(16)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = n.Train(Address(i) & 0xFFFF)
	}
}

func BenchmarkSparseTrain(b *testing.B) {
	n, _ := NewSparseNode(16)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = n.Train(Address(i) & 0xFFFF)
	}
}

func BenchmarkExtractAddress(b *testing.B) {
	input := Encode(0xDEADBEEF, 32)
	indices := []int{31, 7, 12, 3, 22, 18, 0, 9}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ExtractAddress(input, indices)
	}
}
