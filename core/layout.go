package core

import "unsafe"

// Footprint estimates round every table up to whole cache lines.
const (
	CacheLineSize = 64
	CounterSize   = int(unsafe.Sizeof(uint64(0)))

	// sparseEntryOverhead approximates per-entry map cost: key, value and
	// bucket bookkeeping.
	sparseEntryOverhead = 2*CounterSize + 8
)

// CacheLines returns the number of cache lines needed to hold n bytes.
func CacheLines(n int) int {
	return (n + CacheLineSize - 1) / CacheLineSize
}

func lineBytes(n int) int { return CacheLines(n) * CacheLineSize }

// DenseTableBytes returns the cache-aligned size of a dense table of the
// given width. Widths above MaxAddressWidth report -1.
func DenseTableBytes(width int) int {
	if width < 0 || width > MaxAddressWidth {
		return -1
	}
	cells := uint64(1) << uint(width)
	maxInt := uint64(^uint(0) >> 1)
	if cells > (maxInt-CacheLineSize)/uint64(CounterSize) {
		return -1
	}
	return lineBytes(int(cells) * CounterSize)
}

// SparseTableBytes estimates the map footprint for entries stored addresses.
func SparseTableBytes(entries int) int {
	return lineBytes(entries * sparseEntryOverhead)
}

// PreferDense reports whether a dense table of width costs no more than a
// sparse one holding expectedEntries addresses, within the given bound.
func PreferDense(width, expectedEntries, maxDenseWidth int) bool {
	if width > maxDenseWidth {
		return false
	}
	dense := DenseTableBytes(width)
	return dense >= 0 && dense <= SparseTableBytes(expectedEntries)
}
