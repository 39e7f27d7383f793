package kernels

// VectorPool recycles encoded vectors of one width between records, for
// callers that encode, classify and discard inputs in a loop.
type VectorPool struct {
	buffers chan []bool
	width   int
}

// NewVectorPool creates a pool holding up to poolSize vectors of width bits
func NewVectorPool(width, poolSize int) *VectorPool {
	vp := &VectorPool{
		buffers: make(chan []bool, poolSize),
		width:   width,
	}

	for i := 0; i < poolSize; i++ {
		vp.buffers <- make([]bool, 0, width)
	}

	return vp
}

// Get retrieves an empty vector with capacity for width bits
func (vp *VectorPool) Get() []bool {
	select {
	case buf := <-vp.buffers:
		return buf[:0]
	default:
		// Pool empty, allocate new vector
		return make([]bool, 0, vp.width)
	}
}

// Put returns a vector to the pool
func (vp *VectorPool) Put(buf []bool) {
	if cap(buf) < vp.width {
		return
	}
	select {
	case vp.buffers <- buf:
	default:
		// Pool full, let GC handle it
	}
}

// EncodePooled encodes values into a vector taken from pool. The caller
// returns the vector with pool.Put once done with it.
func (e *Encoder) EncodePooled(pool *VectorPool, values []float64) ([]bool, error) {
	buf := pool.Get()
	out, err := e.AppendEncode(buf, values)
	if err != nil {
		pool.Put(buf)
		return nil, err
	}
	return out, nil
}
