package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/videolab/framehost/pkg/frame"
	"github.com/videolab/framehost/pkg/video"
)

// Decoder decodes a video file into host memory as RGB24 frames.
type Decoder struct {
	ffmpegPath  string
	ffprobePath string
	log         *slog.Logger
}

// NewDecoder locates the ffmpeg and ffprobe binaries and returns a decoder.
// logger may be nil.
func NewDecoder(logger *slog.Logger) (*Decoder, error) {
	ffmpegPath, err := FindFFmpeg()
	if err != nil {
		return nil, err
	}
	ffprobePath, err := FindFFprobe()
	if err != nil {
		return nil, err
	}
	return NewDecoderWithPaths(ffmpegPath, ffprobePath, logger), nil
}

// NewDecoderWithPaths returns a decoder using explicit binary paths.
func NewDecoderWithPaths(ffmpegPath, ffprobePath string, logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		log:         logger,
	}
}

// decodeArgs builds the ffmpeg invocation that streams every frame of the
// input as raw interleaved RGB24 on stdout.
func decodeArgs(filename string) []string {
	return []string{
		"-v", "error",
		"-i", filename,
		"-map", "0:v:0",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"pipe:1",
	}
}

// Decode probes the input, extracts per-frame kind and timestamp, and
// decodes all frames into RGB24 buffers. The returned sequence and
// metadata are independent of any prior decode.
func (d *Decoder) Decode(ctx context.Context, filename string) ([]*frame.Frame, *video.Metadata, error) {
	var pr probeResult
	if err := runProbe(ctx, d.ffprobePath, probeArgs(filename), &pr); err != nil {
		return nil, nil, fmt.Errorf("probe %s: %w", filename, err)
	}
	vs, err := pr.videoStream()
	if err != nil {
		return nil, nil, fmt.Errorf("probe %s: %w", filename, err)
	}
	meta := buildMetadata(&pr, vs)
	if meta.FrameSize() <= 0 {
		return nil, nil, fmt.Errorf("probe %s: invalid dimensions %dx%d", filename, meta.Width, meta.Height)
	}

	var pf probeFrames
	if err := runProbe(ctx, d.ffprobePath, probeFramesArgs(filename), &pf); err != nil {
		return nil, nil, fmt.Errorf("probe frames %s: %w", filename, err)
	}

	raw, err := d.extractRGB(ctx, filename)
	if err != nil {
		return nil, nil, err
	}

	frames, err := splitFrames(raw, meta.FrameSize(), pf.Frames)
	if err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", filename, err)
	}

	d.log.Debug("decoded video",
		"filename", filename,
		"codec", meta.Codec,
		"frames", len(frames),
		"width", meta.Width,
		"height", meta.Height,
	)
	return frames, meta, nil
}

// extractRGB runs ffmpeg and collects the raw frame bytes from stdout.
func (d *Decoder) extractRGB(ctx context.Context, filename string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, d.ffmpegPath, decodeArgs(filename)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	raw, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w: %s", filename, err, strings.TrimSpace(stderr.String()))
	}
	return raw, nil
}

// splitFrames slices the raw RGB stream into per-frame buffers, attaching
// the probed kind and timestamp by position. ffprobe and ffmpeg walk the
// stream in the same order, so positions line up; frames beyond the probed
// list get KindUnknown and no timestamp.
func splitFrames(raw []byte, frameSize int, infos []probeFrame) ([]*frame.Frame, error) {
	if len(raw)%frameSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes with frame size %d", ErrTruncatedOutput, len(raw), frameSize)
	}
	count := len(raw) / frameSize

	frames := make([]*frame.Frame, 0, count)
	for i := 0; i < count; i++ {
		pixels := make([]byte, frameSize)
		copy(pixels, raw[i*frameSize:(i+1)*frameSize])

		kind := frame.KindUnknown
		pts := frame.NoPTS
		if i < len(infos) {
			kind = frame.KindFromPictType(infos[i].PictType)
			if infos[i].PTS != nil {
				pts = *infos[i].PTS
			}
		}
		frames = append(frames, frame.NewDecoded([][]byte{pixels}, kind, pts))
	}
	return frames, nil
}
