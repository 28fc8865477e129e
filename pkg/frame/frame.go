// Package frame provides the per-frame model for the host-side frame store.
package frame

import "math"

// NoPTS marks a frame without a presentation timestamp.
const NoPTS int64 = math.MinInt64

// Kind is the frame kind reported by the decoder.
type Kind int

const (
	// KindUnknown is used when the decoder did not report a picture type.
	KindUnknown Kind = iota

	// KindKey is an intra-coded (key) frame.
	KindKey

	// KindDelta is a predicted frame.
	KindDelta

	// KindBidirectional is a bidirectionally predicted frame.
	KindBidirectional
)

// String returns the string representation of the frame kind.
func (k Kind) String() string {
	switch k {
	case KindKey:
		return "key"
	case KindDelta:
		return "delta"
	case KindBidirectional:
		return "bidirectional"
	default:
		return "unknown"
	}
}

// PictType returns the single-letter picture type used by common decoders.
func (k Kind) PictType() string {
	switch k {
	case KindKey:
		return "I"
	case KindDelta:
		return "P"
	case KindBidirectional:
		return "B"
	default:
		return "?"
	}
}

// KindFromPictType maps a decoder picture type letter to a Kind.
func KindFromPictType(s string) Kind {
	switch s {
	case "I":
		return KindKey
	case "P":
		return KindDelta
	case "B":
		return KindBidirectional
	default:
		return KindUnknown
	}
}

// State tags where a frame is in its lifecycle.
type State int

const (
	// StateDecoded means the frame holds decoded input pixels only.
	StateDecoded State = iota

	// StateProcessed means the guest has supplied processed output pixels.
	StateProcessed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateDecoded:
		return "decoded"
	case StateProcessed:
		return "processed"
	default:
		return "unknown"
	}
}

// Frame is one position in the decoded frame sequence: the immutable input
// planes from the decoder, plus the processed output pixels once the guest
// has written them back.
type Frame struct {
	// Input holds the decoded pixel planes. Plane 0 is the full frame for
	// interleaved formats. Input is set at decode time and never mutated.
	Input [][]byte

	// Kind is the picture type the decoder reported for this frame.
	Kind Kind

	// PTS is the presentation timestamp, or NoPTS when the decoder did
	// not report one.
	PTS int64

	output []byte
	state  State
}

// NewDecoded creates a frame in StateDecoded.
func NewDecoded(input [][]byte, kind Kind, pts int64) *Frame {
	return &Frame{
		Input: input,
		Kind:  kind,
		PTS:   pts,
	}
}

// HasPTS reports whether the frame carries a presentation timestamp.
func (f *Frame) HasPTS() bool {
	return f.PTS != NoPTS
}

// State returns the lifecycle state of the frame.
func (f *Frame) State() State {
	return f.state
}

// InputPlane returns the decoded input bytes for one plane, or nil if the
// plane does not exist.
func (f *Frame) InputPlane(plane int) []byte {
	if plane < 0 || plane >= len(f.Input) {
		return nil
	}
	return f.Input[plane]
}

// SetOutput installs the processed output pixels and moves the frame to
// StateProcessed. A later call overwrites an earlier one; last write wins.
func (f *Frame) SetOutput(pixels []byte) {
	f.output = pixels
	f.state = StateProcessed
}

// Output returns the processed output pixels. The second return value is
// false while the frame is still in StateDecoded.
func (f *Frame) Output() ([]byte, bool) {
	if f.state != StateProcessed {
		return nil, false
	}
	return f.output, true
}
