package core

import "errors"

// Error kinds returned by nodes, mappings and discriminators. Callers match
// them with errors.Is; the returned errors wrap these with call context.
var (
	// ErrInputSize reports an input vector whose length does not match the
	// width the receiver was built for, or a bit index beyond the input.
	ErrInputSize = errors.New("input size mismatch")
	// ErrCapacity reports a dense address width above the safety bound.
	ErrCapacity = errors.New("address width exceeds dense capacity bound")
	// ErrAddressOutOfRange reports an address outside [0, 2^n).
	ErrAddressOutOfRange = errors.New("address out of range")
	// ErrUnknownStorageKind reports a storage kind that is neither dense nor sparse.
	ErrUnknownStorageKind = errors.New("unknown storage kind")
	// ErrInvalidAddressWidth reports a width outside [1, MaxAddressWidth].
	ErrInvalidAddressWidth = errors.New("invalid address width")
	// ErrMalformedMapping reports a bit mapping that is not a partition of
	// the input range or does not match the node layout.
	ErrMalformedMapping = errors.New("malformed bit mapping")
	// ErrUnknownClass reports a class label no discriminator was built for.
	ErrUnknownClass = errors.New("unknown class")
)
