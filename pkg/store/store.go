// Package store holds the authoritative frame and metadata state shared by
// all bridge operations.
package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/videolab/framehost/pkg/frame"
	"github.com/videolab/framehost/pkg/video"
)

// Common errors
var (
	ErrFrameNotFound = errors.New("frame index out of range")
	ErrNoMetadata    = errors.New("no video loaded")
	ErrSizeMismatch  = errors.New("buffer size does not match frame size")
)

// IncompleteSetError reports the frame indices still missing a processed
// output when assembly was requested.
type IncompleteSetError struct {
	Missing []int
}

func (e *IncompleteSetError) Error() string {
	return fmt.Sprintf("incomplete frame set: %d frames missing output %v", len(e.Missing), e.Missing)
}

// Output is one assembled frame handed to the encoder: the processed pixels
// plus the kind and timestamp carried over from decode.
type Output struct {
	Pixels []byte
	Kind   frame.Kind
	PTS    int64
}

// Store is the mutex-guarded aggregate of video metadata and the ordered
// frame sequence. A successful decode replaces the whole aggregate; nothing
// survives a replace.
//
// All methods are safe for concurrent use. Each method is atomic with
// respect to ReplaceAll: callers never observe a half-replaced store.
type Store struct {
	mu     sync.Mutex
	meta   *video.Metadata
	frames []*frame.Frame
}

// New returns an empty store. Len is 0 and Metadata fails until the first
// ReplaceAll.
func New() *Store {
	return &Store{}
}

// ReplaceAll installs a new metadata descriptor and frame sequence,
// discarding any previous content.
func (s *Store) ReplaceAll(meta *video.Metadata, frames []*frame.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta = meta
	s.frames = frames
}

// Len returns the number of frames currently held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

// Metadata returns the metadata of the currently loaded video, or
// ErrNoMetadata before the first successful load.
func (s *Store) Metadata() (*video.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meta == nil {
		return nil, ErrNoMetadata
	}
	return s.meta, nil
}

// CopyInput copies the decoded input bytes of one plane of the frame at
// index into dst. dst must be exactly the plane's length; ErrSizeMismatch
// is returned otherwise and dst is left untouched.
func (s *Store) CopyInput(index, plane int, dst []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.frames) {
		return fmt.Errorf("%w: index %d, have %d frames", ErrFrameNotFound, index, len(s.frames))
	}
	src := s.frames[index].InputPlane(plane)
	if src == nil {
		return fmt.Errorf("%w: frame %d has no plane %d", ErrFrameNotFound, index, plane)
	}
	if len(dst) != len(src) {
		return fmt.Errorf("%w: plane is %d bytes, destination is %d", ErrSizeMismatch, len(src), len(dst))
	}
	copy(dst, src)
	return nil
}

// InputLen returns the byte length of one input plane of the frame at index.
func (s *Store) InputLen(index, plane int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.frames) {
		return 0, fmt.Errorf("%w: index %d, have %d frames", ErrFrameNotFound, index, len(s.frames))
	}
	src := s.frames[index].InputPlane(plane)
	if src == nil {
		return 0, fmt.Errorf("%w: frame %d has no plane %d", ErrFrameNotFound, index, plane)
	}
	return len(src), nil
}

// WriteOutput installs pixels as the processed output of the frame at
// index, overwriting any previous output. The pixel length is validated
// against the current metadata's frame size so a write raced against a
// reload cannot install a wrong-sized buffer. The store keeps its own copy
// of pixels; the caller's buffer is not retained.
func (s *Store) WriteOutput(index int, pixels []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meta == nil {
		return ErrNoMetadata
	}
	if want := s.meta.FrameSize(); len(pixels) != want {
		return fmt.Errorf("%w: frame size is %d bytes, got %d", ErrSizeMismatch, want, len(pixels))
	}
	if index < 0 || index >= len(s.frames) {
		return fmt.Errorf("%w: index %d, have %d frames", ErrFrameNotFound, index, len(s.frames))
	}
	buf := make([]byte, len(pixels))
	copy(buf, pixels)
	s.frames[index].SetOutput(buf)
	return nil
}

// CollectOutputs scans all frames in index order and returns their
// processed outputs as ordered (pixels, kind, pts) triples. If any frame is
// still in StateDecoded the scan fails with an IncompleteSetError naming
// every missing index, and no outputs are returned.
func (s *Store) CollectOutputs() ([]Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meta == nil {
		return nil, ErrNoMetadata
	}

	outputs := make([]Output, 0, len(s.frames))
	var missing []int
	for i, f := range s.frames {
		pixels, ok := f.Output()
		if !ok {
			missing = append(missing, i)
			continue
		}
		outputs = append(outputs, Output{Pixels: pixels, Kind: f.Kind, PTS: f.PTS})
	}
	if len(missing) > 0 {
		return nil, &IncompleteSetError{Missing: missing}
	}
	return outputs, nil
}
