// Package guestmem resolves guest-supplied pointer/length pairs into
// bounds-checked views over guest linear memory.
//
// A View never owns the bytes it covers. The guest's allocator handed the
// region out and will reclaim it; host code may read and write through the
// view for the duration of one bridge call but must never free, grow, or
// retain it.
package guestmem

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrLengthMismatch is returned when a copy through a view does not match
// the view's declared length exactly.
var ErrLengthMismatch = errors.New("buffer length mismatch")

// Memory is one guest's linear memory. Implementations are provided by the
// sandbox runtime; Linear is an in-process implementation for embedders and
// tests.
type Memory interface {
	// Range returns the bytes in [offset, offset+length) of guest memory.
	// The returned slice aliases guest memory; writes through it are
	// visible to the guest. ok is false when the range is out of bounds.
	Range(offset, length uint32) (data []byte, ok bool)

	// Size returns the current byte size of the memory.
	Size() uint32
}

// AddressError reports a guest-supplied range that does not resolve inside
// guest memory.
type AddressError struct {
	Offset uint32
	Length uint32
	Size   uint32
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("address range [%d, %d) outside guest memory of %d bytes", e.Offset, uint64(e.Offset)+uint64(e.Length), e.Size)
}

// View is a borrowed window over guest memory, valid for one bridge call.
// The capacity records how much the guest's allocator actually reserved, so
// the region can be handed back untouched; the view itself only ever spans
// the declared length.
type View struct {
	data     []byte
	capacity uint32
}

// Resolve translates (ptr, length) into a view over mem.
func Resolve(mem Memory, ptr, length uint32) (View, error) {
	return ResolveWithCapacity(mem, ptr, length, length)
}

// ResolveWithCapacity translates (ptr, length, capacity) into a view over
// mem. Only the length bytes are addressable through the view; the
// capacity is carried for the guest allocator's sake.
func ResolveWithCapacity(mem Memory, ptr, length, capacity uint32) (View, error) {
	data, ok := mem.Range(ptr, length)
	if !ok {
		return View{}, &AddressError{Offset: ptr, Length: length, Size: mem.Size()}
	}
	return View{data: data, capacity: capacity}, nil
}

// Len returns the declared length of the view.
func (v View) Len() int {
	return len(v.data)
}

// Cap returns the guest-declared capacity of the underlying allocation.
func (v View) Cap() uint32 {
	return v.capacity
}

// Bytes returns the viewed bytes. The slice aliases guest memory and must
// not be retained past the current call.
func (v View) Bytes() []byte {
	return v.data
}

// CopyFrom writes src through the view into guest memory. src must be
// exactly the view's length; ErrLengthMismatch is returned otherwise and
// guest memory is left untouched.
func (v View) CopyFrom(src []byte) error {
	if len(src) != len(v.data) {
		return fmt.Errorf("%w: view is %d bytes, source is %d", ErrLengthMismatch, len(v.data), len(src))
	}
	copy(v.data, src)
	return nil
}

// CopyOut copies the viewed bytes into a host-owned buffer.
func (v View) CopyOut() []byte {
	out := make([]byte, len(v.data))
	copy(out, v.data)
	return out
}

// ResolveString resolves (ptr, length, capacity) and decodes the viewed
// bytes as UTF-8 text. The returned string is a host-side copy; the guest
// region is left exactly as it was.
func ResolveString(mem Memory, ptr, length, capacity uint32) (string, error) {
	v, err := ResolveWithCapacity(mem, ptr, length, capacity)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(v.data) {
		return "", fmt.Errorf("string at offset %d is not valid UTF-8", ptr)
	}
	return string(v.data), nil
}

// WriteUint32 stores v little-endian at ptr in guest memory. Guest linear
// memory is little-endian by definition.
func WriteUint32(mem Memory, ptr, v uint32) error {
	data, ok := mem.Range(ptr, 4)
	if !ok {
		return &AddressError{Offset: ptr, Length: 4, Size: mem.Size()}
	}
	binary.LittleEndian.PutUint32(data, v)
	return nil
}

// ReadUint32 loads a little-endian uint32 from ptr in guest memory.
func ReadUint32(mem Memory, ptr uint32) (uint32, error) {
	data, ok := mem.Range(ptr, 4)
	if !ok {
		return 0, &AddressError{Offset: ptr, Length: 4, Size: mem.Size()}
	}
	return binary.LittleEndian.Uint32(data), nil
}
