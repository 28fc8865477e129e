// Package testutil provides shared test helpers: deterministic frame
// patterns and stub decode/encode collaborators.
package testutil

import (
	"context"
	"fmt"

	"github.com/videolab/framehost/pkg/bridge"
	"github.com/videolab/framehost/pkg/frame"
	"github.com/videolab/framehost/pkg/store"
	"github.com/videolab/framehost/pkg/video"
)

// RGBPattern fills an RGB24 buffer with a deterministic per-frame gradient.
// The seed makes each frame's pattern distinct and recognizable.
func RGBPattern(width, height, seed int) []byte {
	buf := make([]byte, width*height*3)
	for i := 0; i < width*height; i++ {
		x := i % width
		y := i / width
		buf[i*3+0] = byte((x + seed) % 256)
		buf[i*3+1] = byte((y + seed) % 256)
		buf[i*3+2] = byte((x + y + seed) % 256)
	}
	return buf
}

// TestMetadata returns a metadata descriptor for a width x height RGB24
// video with plausible stream attributes.
func TestMetadata(width, height int) *video.Metadata {
	return &video.Metadata{
		Codec:         "h264",
		Format:        video.PixelFormatRGB24,
		Width:         width,
		Height:        height,
		AspectRatio:   video.Rational{Num: width, Den: height},
		FrameRate:     video.Rational{Num: 25, Den: 1},
		ContainerTags: map[string]string{"encoder": "testutil"},
		StreamCount:   1,
		Bitrate:       500_000,
	}
}

// TestFrames returns count decoded frames of distinct RGB patterns. Frame 0
// is a key frame; the rest are delta frames with consecutive timestamps.
func TestFrames(width, height, count int) []*frame.Frame {
	frames := make([]*frame.Frame, 0, count)
	for i := 0; i < count; i++ {
		kind := frame.KindDelta
		if i == 0 {
			kind = frame.KindKey
		}
		frames = append(frames, frame.NewDecoded([][]byte{RGBPattern(width, height, i)}, kind, int64(i)))
	}
	return frames
}

// StubDecoder is a decode collaborator returning canned frames.
type StubDecoder struct {
	Width  int
	Height int
	Frames int

	// Err, when set, fails every Decode call.
	Err error

	// Calls counts Decode invocations.
	Calls int

	// LastFilename records the most recently requested filename.
	LastFilename string
}

// Decode returns Frames fresh test frames, or Err.
func (d *StubDecoder) Decode(_ context.Context, filename string) ([]*frame.Frame, *video.Metadata, error) {
	d.Calls++
	d.LastFilename = filename
	if d.Err != nil {
		return nil, nil, d.Err
	}
	return TestFrames(d.Width, d.Height, d.Frames), TestMetadata(d.Width, d.Height), nil
}

// StubEncoder records what the bridge feeds it.
type StubEncoder struct {
	Meta     *video.Metadata
	Filename string
	Wrote    []store.Output
	Closed   bool

	WriteErr error
	CloseErr error
}

// Write records the outputs, or fails with WriteErr.
func (e *StubEncoder) Write(outputs []store.Output) error {
	if e.WriteErr != nil {
		return e.WriteErr
	}
	e.Wrote = append(e.Wrote, outputs...)
	return nil
}

// Close marks the encoder finalized, or fails with CloseErr.
func (e *StubEncoder) Close() error {
	e.Closed = true
	return e.CloseErr
}

// StubEncoderFactory hands out stub encoders and keeps them for
// inspection.
type StubEncoderFactory struct {
	// NewErr, when set, fails every New call.
	NewErr error

	// WriteErr and CloseErr are copied onto every created encoder.
	WriteErr error
	CloseErr error

	Encoders []*StubEncoder
}

// New returns a fresh stub encoder, or NewErr.
func (f *StubEncoderFactory) New(_ context.Context, meta *video.Metadata, filename string) (bridge.Encoder, error) {
	if f.NewErr != nil {
		return nil, f.NewErr
	}
	enc := &StubEncoder{
		Meta:     meta,
		Filename: filename,
		WriteErr: f.WriteErr,
		CloseErr: f.CloseErr,
	}
	f.Encoders = append(f.Encoders, enc)
	return enc, nil
}

// Last returns the most recently created encoder.
func (f *StubEncoderFactory) Last() (*StubEncoder, error) {
	if len(f.Encoders) == 0 {
		return nil, fmt.Errorf("no encoder was created")
	}
	return f.Encoders[len(f.Encoders)-1], nil
}

var (
	_ bridge.Decoder        = (*StubDecoder)(nil)
	_ bridge.EncoderFactory = (*StubEncoderFactory)(nil)
)
