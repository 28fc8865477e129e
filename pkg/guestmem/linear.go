package guestmem

// PageSize is the WASM linear memory page size.
const PageSize = 65536

// Linear is an in-process linear memory. It backs tests and embedders that
// drive the bridge without a sandbox runtime.
type Linear struct {
	data []byte
}

// NewLinear allocates a linear memory of the given number of pages.
func NewLinear(pages uint32) *Linear {
	return &Linear{data: make([]byte, int(pages)*PageSize)}
}

// Range implements Memory.
func (l *Linear) Range(offset, length uint32) ([]byte, bool) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(l.data)) {
		return nil, false
	}
	return l.data[offset:end:end], true
}

// Size implements Memory.
func (l *Linear) Size() uint32 {
	return uint32(len(l.data))
}
