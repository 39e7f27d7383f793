package core

import "fmt"

// Address is a node-local table index in [0, 2^n).
type Address uint64

// MaxAddressWidth is the widest address any node accepts. One bit of the
// 64-bit word is kept free so that 2^n is itself representable.
const MaxAddressWidth = 63

// Decode packs a binary word into an address, little endian: bit i
// contributes 2^i. Words longer than MaxAddressWidth are truncated.
func Decode(bits []bool) Address {
	var a Address
	for i := len(bits) - 1; i >= 0; i-- {
		a <<= 1
		if bits[i] {
			a |= 1
		}
	}
	return a
}

// Encode expands the low length bits of a into a binary word, the inverse
// of Decode.
func Encode(a Address, length int) []bool {
	bits := make([]bool, length)
	for i := 0; i < length && i < 64; i++ {
		bits[i] = (a>>uint(i))&1 == 1
	}
	return bits
}

// ExtractAddress reads the bits of input at the ordered positions in
// indices and packs them LSB-first: input[indices[j]] contributes 2^j.
func ExtractAddress(input []bool, indices []int) (Address, error) {
	if len(indices) > MaxAddressWidth {
		return 0, fmt.Errorf("extract %d bits: %w", len(indices), ErrInvalidAddressWidth)
	}
	var a Address
	for j, idx := range indices {
		if idx < 0 || idx >= len(input) {
			return 0, fmt.Errorf("bit index %d for input of %d bits: %w", idx, len(input), ErrInputSize)
		}
		if input[idx] {
			a |= 1 << uint(j)
		}
	}
	return a, nil
}

// BitsFromInts converts a 0/1 integer slice into a binary vector. Any
// non-zero value is a set bit.
func BitsFromInts(values []int) []bool {
	bits := make([]bool, len(values))
	for i, v := range values {
		bits[i] = v != 0
	}
	return bits
}

// BitsToInts is the inverse of BitsFromInts.
func BitsToInts(bits []bool) []int {
	values := make([]int, len(bits))
	for i, b := range bits {
		if b {
			values[i] = 1
		}
	}
	return values
}
