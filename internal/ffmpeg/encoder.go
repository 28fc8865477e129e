package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/videolab/framehost/pkg/store"
	"github.com/videolab/framehost/pkg/video"
)

// Encoder re-encodes processed RGB24 frames into an output video file. One
// encoder instance writes one file.
type Encoder struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	closed bool
}

// encodeArgs builds the ffmpeg invocation that reads raw RGB24 frames on
// stdin and muxes them into filename. Output codec and container come from
// ffmpeg's defaults for the file extension; bitrate hints carry over from
// the source when known.
func encodeArgs(meta *video.Metadata, filename string) []string {
	args := []string{
		"-y",
		"-v", "error",
		"-f", "rawvideo",
		"-pixel_format", "rgb24",
		"-video_size", fmt.Sprintf("%dx%d", meta.Width, meta.Height),
	}
	if !meta.FrameRate.IsZero() {
		args = append(args, "-framerate", meta.FrameRate.String())
	}
	args = append(args, "-i", "pipe:0", "-pix_fmt", "yuv420p")
	if meta.Bitrate > 0 {
		args = append(args, "-b:v", strconv.FormatInt(meta.Bitrate, 10))
	}
	if meta.MaxBitrate > 0 {
		args = append(args, "-maxrate", strconv.FormatInt(meta.MaxBitrate, 10), "-bufsize", strconv.FormatInt(2*meta.MaxBitrate, 10))
	}
	if !meta.AspectRatio.IsZero() {
		args = append(args, "-aspect", fmt.Sprintf("%d:%d", meta.AspectRatio.Num, meta.AspectRatio.Den))
	}
	return append(args, filename)
}

// NewEncoder starts an ffmpeg process writing to filename.
func NewEncoder(ctx context.Context, ffmpegPath string, meta *video.Metadata, filename string) (*Encoder, error) {
	e := &Encoder{}
	e.cmd = exec.CommandContext(ctx, ffmpegPath, encodeArgs(meta, filename)...)
	e.cmd.Stderr = &e.stderr

	stdin, err := e.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("encoder stdin pipe: %w", err)
	}
	e.stdin = stdin

	if err := e.cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg encoder: %w", err)
	}
	return e, nil
}

// Write streams the ordered outputs into the encoder.
func (e *Encoder) Write(outputs []store.Output) error {
	for i, out := range outputs {
		if _, err := e.stdin.Write(out.Pixels); err != nil {
			return fmt.Errorf("write frame %d: %w: %s", i, err, strings.TrimSpace(e.stderr.String()))
		}
	}
	return nil
}

// Close finishes the stream and waits for ffmpeg to finalize the file.
// Safe to call more than once.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	if err := e.stdin.Close(); err != nil {
		return fmt.Errorf("close encoder stdin: %w", err)
	}
	if err := e.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg encoder: %w: %s", err, strings.TrimSpace(e.stderr.String()))
	}
	return nil
}
