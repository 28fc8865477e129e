// Package bridge implements the boundary-facing operations a sandboxed
// guest uses to exchange video frames with the host.
//
// Each operation takes raw 32-bit offsets into the guest's linear memory,
// resolves them into bounds-checked views, and drives the frame store and
// the decode/encode collaborators. Every failure is converted into a
// guest-visible status code; nothing unwinds past the bridge boundary.
package bridge

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/videolab/framehost/pkg/frame"
	"github.com/videolab/framehost/pkg/guestmem"
	"github.com/videolab/framehost/pkg/store"
	"github.com/videolab/framehost/pkg/video"
)

// Statuses returned to the guest. WriteFrame follows the 0/1 written
// convention; the other operations return StatusOK on success and a
// negative code on failure.
const (
	// StatusOK is the success status of GetFrame and AssembleVideo.
	StatusOK int32 = 1

	// StatusFailed is returned by GetFrame when the destination buffer
	// could not be filled.
	StatusFailed int32 = 0

	// StatusWritten and StatusNotWritten are the WriteFrame statuses.
	StatusWritten    int32 = 0
	StatusNotWritten int32 = 1

	// CodeAddressError reports a guest range outside linear memory.
	CodeAddressError int32 = -1

	// CodeDecodeFailed reports a decode collaborator failure.
	CodeDecodeFailed int32 = -2

	// CodeEncodeFailed reports an encode collaborator failure.
	CodeEncodeFailed int32 = -3

	// CodeIncompleteSet reports assembly attempted with frames still
	// missing their processed output.
	CodeIncompleteSet int32 = -4

	// CodeNoMetadata reports an operation that requires a prior
	// successful load.
	CodeNoMetadata int32 = -5
)

// Decoder turns a video file into an ordered frame sequence plus the
// metadata describing it.
type Decoder interface {
	Decode(ctx context.Context, filename string) ([]*frame.Frame, *video.Metadata, error)
}

// Encoder writes assembled outputs into an output video file.
type Encoder interface {
	// Write encodes the ordered outputs. May be called once with the
	// full set.
	Write(outputs []store.Output) error

	// Close finalizes the output file.
	Close() error
}

// EncoderFactory opens an encoder for one assembly.
type EncoderFactory interface {
	New(ctx context.Context, meta *video.Metadata, filename string) (Encoder, error)
}

// Bridge exposes the four guest-facing operations over one frame store.
//
// Operations serialize on an internal mutex: a decode or encode in progress
// excludes all other frame access, so no caller ever observes a
// half-replaced store or a half-written frame.
type Bridge struct {
	mu  sync.Mutex
	st  *store.Store
	dec Decoder
	enc EncoderFactory
	log *slog.Logger
}

// New creates a bridge over a fresh store. logger may be nil, in which case
// slog.Default() is used.
func New(dec Decoder, enc EncoderFactory, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		st:  store.New(),
		dec: dec,
		enc: enc,
		log: logger,
	}
}

// Store returns the bridge's frame store.
func (b *Bridge) Store() *store.Store {
	return b.st
}

// LoadVideo decodes the video named by the guest string at (filenamePtr,
// filenameLen, filenameCap) and replaces the store contents with the
// result. On success the first frame's width and height are written to the
// guest out-pointers and the frame count is returned. On failure a negative
// code is returned and the store keeps its previous content.
func (b *Bridge) LoadVideo(ctx context.Context, mem guestmem.Memory, filenamePtr, filenameLen, filenameCap, widthOutPtr, heightOutPtr uint32) (int32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log.Debug("load_video")

	filename, err := guestmem.ResolveString(mem, filenamePtr, filenameLen, filenameCap)
	if err != nil {
		b.log.Error("load_video: resolve filename", "error", err)
		return CodeAddressError, err
	}
	// Validate the out-pointers before decoding so a bad pointer cannot
	// fail the call after the store has been replaced.
	if _, ok := mem.Range(widthOutPtr, 4); !ok {
		err := &guestmem.AddressError{Offset: widthOutPtr, Length: 4, Size: mem.Size()}
		b.log.Error("load_video: resolve width out-pointer", "error", err)
		return CodeAddressError, err
	}
	if _, ok := mem.Range(heightOutPtr, 4); !ok {
		err := &guestmem.AddressError{Offset: heightOutPtr, Length: 4, Size: mem.Size()}
		b.log.Error("load_video: resolve height out-pointer", "error", err)
		return CodeAddressError, err
	}

	frames, meta, err := b.dec.Decode(ctx, filename)
	if err != nil {
		b.log.Error("load_video: decode", "filename", filename, "error", err)
		return CodeDecodeFailed, err
	}
	if meta.ID == uuid.Nil {
		meta.ID = uuid.New()
	}

	b.st.ReplaceAll(meta, frames)
	if len(frames) > 0 {
		// Resolved above; cannot fail now.
		_ = guestmem.WriteUint32(mem, widthOutPtr, uint32(meta.Width))
		_ = guestmem.WriteUint32(mem, heightOutPtr, uint32(meta.Height))
	}

	b.log.Debug("load_video: loaded",
		"video-id", meta.ID,
		"filename", filename,
		"frames", len(frames),
		"width", meta.Width,
		"height", meta.Height,
	)
	return int32(len(frames)), nil
}

// GetFrame copies the decoded input pixels of the frame at index into the
// guest buffer at (bufPtr, bufLen, bufCap). The declared length must equal
// the source plane's byte length; a mismatch fails the call and leaves the
// buffer untouched. An out-of-range index is logged and leaves the buffer
// untouched without failing the call; callers must not assume zero-fill.
func (b *Bridge) GetFrame(ctx context.Context, mem guestmem.Memory, index, bufPtr, bufLen, bufCap uint32) (int32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log.Debug("get_frame", "index", index, "buf-len", bufLen, "buf-cap", bufCap)

	srcLen, err := b.st.InputLen(int(index), 0)
	if err != nil {
		b.log.Error("get_frame: no such frame", "index", index, "error", err)
		return StatusOK, err
	}

	view, err := guestmem.ResolveWithCapacity(mem, bufPtr, bufLen, bufCap)
	if err != nil {
		b.log.Error("get_frame: resolve buffer", "error", err)
		return StatusFailed, err
	}
	if view.Len() != srcLen {
		err := &LengthMismatchError{Index: int(index), Want: srcLen, Got: view.Len()}
		b.log.Error("get_frame: buffer length mismatch", "error", err)
		return StatusFailed, err
	}
	if err := b.st.CopyInput(int(index), 0, view.Bytes()); err != nil {
		b.log.Error("get_frame: copy", "index", index, "error", err)
		return StatusFailed, err
	}
	return StatusOK, nil
}

// WriteFrame installs the guest buffer at bufPtr as the processed output of
// the frame at index. The buffer is read as exactly
// metadata.Width*Height*3 bytes of interleaved RGB; the guest-declared
// length is not trusted. Returns StatusWritten on success and
// StatusNotWritten when the index is out of range or no video is loaded.
func (b *Bridge) WriteFrame(ctx context.Context, mem guestmem.Memory, index, bufPtr, bufLen uint32) (int32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log.Debug("write_frame", "index", index, "buf-len", bufLen)

	meta, err := b.st.Metadata()
	if err != nil {
		b.log.Error("write_frame: no video loaded", "error", err)
		return StatusNotWritten, err
	}
	want := meta.FrameSize()
	if int(bufLen) != want {
		b.log.Debug("write_frame: ignoring guest-declared length", "declared", bufLen, "derived", want)
	}

	view, err := guestmem.Resolve(mem, bufPtr, uint32(want))
	if err != nil {
		b.log.Error("write_frame: resolve buffer", "error", err)
		return StatusNotWritten, err
	}
	if err := b.st.WriteOutput(int(index), view.Bytes()); err != nil {
		b.log.Error("write_frame: not written", "index", index, "error", err)
		return StatusNotWritten, err
	}
	return StatusWritten, nil
}

// AssembleVideo encodes all processed outputs, in index order, into the
// output file named by the guest string. Assembly only proceeds when every
// frame has an output; otherwise CodeIncompleteSet is returned along with
// an IncompleteSetError naming the missing indices, and the encoder is
// never invoked. On an encode failure the partially written output file is
// removed best-effort.
func (b *Bridge) AssembleVideo(ctx context.Context, mem guestmem.Memory, filenamePtr, filenameLen, filenameCap uint32) (int32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log.Debug("assemble_video")

	filename, err := guestmem.ResolveString(mem, filenamePtr, filenameLen, filenameCap)
	if err != nil {
		b.log.Error("assemble_video: resolve filename", "error", err)
		return CodeAddressError, err
	}

	outputs, err := b.st.CollectOutputs()
	if err != nil {
		var incomplete *store.IncompleteSetError
		if errors.As(err, &incomplete) {
			b.log.Error("assemble_video: missing frames", "missing", incomplete.Missing)
			return CodeIncompleteSet, err
		}
		b.log.Error("assemble_video: collect", "error", err)
		return CodeNoMetadata, err
	}
	meta, err := b.st.Metadata()
	if err != nil {
		return CodeNoMetadata, err
	}

	enc, err := b.enc.New(ctx, meta, filename)
	if err != nil {
		b.log.Error("assemble_video: open encoder", "filename", filename, "error", err)
		return CodeEncodeFailed, err
	}
	writeErr := enc.Write(outputs)
	closeErr := enc.Close()
	if writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		b.log.Error("assemble_video: encode", "filename", filename, "error", writeErr)
		if rmErr := os.Remove(filename); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			b.log.Error("assemble_video: remove partial output", "filename", filename, "error", rmErr)
		}
		return CodeEncodeFailed, writeErr
	}

	b.log.Debug("assemble_video: wrote output", "filename", filename, "frames", len(outputs))
	return StatusOK, nil
}
