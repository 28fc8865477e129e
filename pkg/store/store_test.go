package store

import (
	"bytes"
	"errors"
	"testing"

	"github.com/videolab/framehost/pkg/frame"
	"github.com/videolab/framehost/pkg/video"
)

func testMetadata(width, height int) *video.Metadata {
	return &video.Metadata{
		Codec:  "h264",
		Format: video.PixelFormatRGB24,
		Width:  width,
		Height: height,
	}
}

func testFrames(width, height, count int) []*frame.Frame {
	frames := make([]*frame.Frame, 0, count)
	for i := 0; i < count; i++ {
		pixels := bytes.Repeat([]byte{byte(i)}, width*height*3)
		frames = append(frames, frame.NewDecoded([][]byte{pixels}, frame.KindDelta, int64(i)))
	}
	return frames
}

func TestEmptyStore(t *testing.T) {
	s := New()

	if got := s.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
	if _, err := s.Metadata(); !errors.Is(err, ErrNoMetadata) {
		t.Errorf("Metadata() error = %v, want ErrNoMetadata", err)
	}
	if err := s.WriteOutput(0, nil); !errors.Is(err, ErrNoMetadata) {
		t.Errorf("WriteOutput() error = %v, want ErrNoMetadata", err)
	}
	if _, err := s.CollectOutputs(); !errors.Is(err, ErrNoMetadata) {
		t.Errorf("CollectOutputs() error = %v, want ErrNoMetadata", err)
	}
	if _, err := s.InputLen(0, 0); !errors.Is(err, ErrFrameNotFound) {
		t.Errorf("InputLen() error = %v, want ErrFrameNotFound", err)
	}
}

func TestReplaceAll(t *testing.T) {
	s := New()
	s.ReplaceAll(testMetadata(4, 2), testFrames(4, 2, 3))

	if got := s.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}
	meta, err := s.Metadata()
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}
	if meta.Width != 4 || meta.Height != 2 {
		t.Errorf("Metadata() = %dx%d, want 4x2", meta.Width, meta.Height)
	}

	// a second load discards everything from the first
	if err := s.WriteOutput(2, bytes.Repeat([]byte{9}, 4*2*3)); err != nil {
		t.Fatalf("WriteOutput() error = %v", err)
	}
	s.ReplaceAll(testMetadata(2, 2), testFrames(2, 2, 1))

	if got := s.Len(); got != 1 {
		t.Errorf("Len() after replace = %d, want 1", got)
	}
	if _, err := s.InputLen(2, 0); !errors.Is(err, ErrFrameNotFound) {
		t.Errorf("InputLen(2) after replace error = %v, want ErrFrameNotFound", err)
	}
	if _, err := s.CollectOutputs(); err == nil {
		t.Error("CollectOutputs() succeeded after replace discarded outputs")
	}
}

func TestCopyInput(t *testing.T) {
	s := New()
	s.ReplaceAll(testMetadata(4, 2), testFrames(4, 2, 2))

	dst := make([]byte, 4*2*3)
	if err := s.CopyInput(1, 0, dst); err != nil {
		t.Fatalf("CopyInput() error = %v", err)
	}
	if !bytes.Equal(dst, bytes.Repeat([]byte{1}, 4*2*3)) {
		t.Error("CopyInput() copied wrong frame")
	}

	if err := s.CopyInput(5, 0, dst); !errors.Is(err, ErrFrameNotFound) {
		t.Errorf("CopyInput(5) error = %v, want ErrFrameNotFound", err)
	}
	if err := s.CopyInput(0, 3, dst); !errors.Is(err, ErrFrameNotFound) {
		t.Errorf("CopyInput(plane 3) error = %v, want ErrFrameNotFound", err)
	}
	if err := s.CopyInput(0, 0, make([]byte, 5)); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("CopyInput(short dst) error = %v, want ErrSizeMismatch", err)
	}
}

func TestWriteOutput(t *testing.T) {
	s := New()
	s.ReplaceAll(testMetadata(2, 2), testFrames(2, 2, 2))
	size := 2 * 2 * 3

	if err := s.WriteOutput(9, bytes.Repeat([]byte{1}, size)); !errors.Is(err, ErrFrameNotFound) {
		t.Errorf("WriteOutput(9) error = %v, want ErrFrameNotFound", err)
	}
	if err := s.WriteOutput(0, make([]byte, size-1)); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("WriteOutput(short) error = %v, want ErrSizeMismatch", err)
	}

	// the store copies the caller's buffer
	buf := bytes.Repeat([]byte{5}, size)
	if err := s.WriteOutput(0, buf); err != nil {
		t.Fatalf("WriteOutput() error = %v", err)
	}
	buf[0] = 77
	if err := s.WriteOutput(1, bytes.Repeat([]byte{6}, size)); err != nil {
		t.Fatalf("WriteOutput() error = %v", err)
	}

	outputs, err := s.CollectOutputs()
	if err != nil {
		t.Fatalf("CollectOutputs() error = %v", err)
	}
	if outputs[0].Pixels[0] != 5 {
		t.Error("WriteOutput() retained the caller's buffer instead of copying")
	}
}

func TestOverwriteLastWins(t *testing.T) {
	s := New()
	s.ReplaceAll(testMetadata(2, 2), testFrames(2, 2, 1))
	size := 2 * 2 * 3

	if err := s.WriteOutput(0, bytes.Repeat([]byte{1}, size)); err != nil {
		t.Fatalf("WriteOutput() error = %v", err)
	}
	if err := s.WriteOutput(0, bytes.Repeat([]byte{2}, size)); err != nil {
		t.Fatalf("WriteOutput() overwrite error = %v", err)
	}

	outputs, err := s.CollectOutputs()
	if err != nil {
		t.Fatalf("CollectOutputs() error = %v", err)
	}
	if len(outputs) != 1 || !bytes.Equal(outputs[0].Pixels, bytes.Repeat([]byte{2}, size)) {
		t.Error("CollectOutputs() did not return the most recent output")
	}
}

func TestCollectOutputsMissing(t *testing.T) {
	s := New()
	s.ReplaceAll(testMetadata(2, 2), testFrames(2, 2, 5))
	size := 2 * 2 * 3

	for _, idx := range []int{0, 2, 4} {
		if err := s.WriteOutput(idx, bytes.Repeat([]byte{byte(idx)}, size)); err != nil {
			t.Fatalf("WriteOutput(%d) error = %v", idx, err)
		}
	}

	_, err := s.CollectOutputs()
	var incomplete *IncompleteSetError
	if !errors.As(err, &incomplete) {
		t.Fatalf("CollectOutputs() error = %v, want IncompleteSetError", err)
	}
	want := []int{1, 3}
	if len(incomplete.Missing) != len(want) {
		t.Fatalf("Missing = %v, want %v", incomplete.Missing, want)
	}
	for i := range want {
		if incomplete.Missing[i] != want[i] {
			t.Fatalf("Missing = %v, want %v", incomplete.Missing, want)
		}
	}
}

func TestCollectOutputsOrdered(t *testing.T) {
	s := New()
	s.ReplaceAll(testMetadata(2, 2), testFrames(2, 2, 3))
	size := 2 * 2 * 3

	// write out of order; collection is by index
	for _, idx := range []int{2, 0, 1} {
		if err := s.WriteOutput(idx, bytes.Repeat([]byte{byte(10 + idx)}, size)); err != nil {
			t.Fatalf("WriteOutput(%d) error = %v", idx, err)
		}
	}

	outputs, err := s.CollectOutputs()
	if err != nil {
		t.Fatalf("CollectOutputs() error = %v", err)
	}
	if len(outputs) != 3 {
		t.Fatalf("len(outputs) = %d, want 3", len(outputs))
	}
	for i, out := range outputs {
		if out.Pixels[0] != byte(10+i) {
			t.Errorf("outputs[%d].Pixels[0] = %d, want %d", i, out.Pixels[0], 10+i)
		}
		if out.PTS != int64(i) {
			t.Errorf("outputs[%d].PTS = %d, want %d", i, out.PTS, i)
		}
	}
}
