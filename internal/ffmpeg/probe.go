package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/videolab/framehost/pkg/video"
)

// probeResult is the ffprobe -show_format -show_streams JSON shape.
type probeResult struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

type probeFormat struct {
	Filename   string            `json:"filename"`
	FormatName string            `json:"format_name"`
	NBStreams  int               `json:"nb_streams"`
	BitRate    string            `json:"bit_rate"`
	Tags       map[string]string `json:"tags"`
}

type probeStream struct {
	Index              int    `json:"index"`
	CodecName          string `json:"codec_name"`
	CodecType          string `json:"codec_type"`
	Width              int    `json:"width,omitempty"`
	Height             int    `json:"height,omitempty"`
	PixFmt             string `json:"pix_fmt,omitempty"`
	DisplayAspectRatio string `json:"display_aspect_ratio,omitempty"`
	RFrameRate         string `json:"r_frame_rate,omitempty"`
	AvgFrameRate       string `json:"avg_frame_rate,omitempty"`
	BitRate            string `json:"bit_rate,omitempty"`
	MaxBitRate         string `json:"max_bit_rate,omitempty"`
}

// probeFrame is one entry of ffprobe -show_frames, restricted to the
// fields the frame store carries.
type probeFrame struct {
	PictType string `json:"pict_type"`
	PTS      *int64 `json:"pts"`
}

type probeFrames struct {
	Frames []probeFrame `json:"frames"`
}

// videoStream returns the first video stream, or ErrNoVideoStream.
func (r *probeResult) videoStream() (*probeStream, error) {
	for i := range r.Streams {
		if r.Streams[i].CodecType == "video" {
			return &r.Streams[i], nil
		}
	}
	return nil, ErrNoVideoStream
}

// probeArgs builds the ffprobe invocation for container and stream metadata.
func probeArgs(filename string) []string {
	return []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filename,
	}
}

// probeFramesArgs builds the ffprobe invocation for per-frame kind and pts.
func probeFramesArgs(filename string) []string {
	return []string{
		"-v", "quiet",
		"-select_streams", "v:0",
		"-print_format", "json",
		"-show_frames",
		"-show_entries", "frame=pict_type,pts",
		filename,
	}
}

func runProbe(ctx context.Context, probePath string, args []string, out any) error {
	cmd := exec.CommandContext(ctx, probePath, args...)
	output, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("ffprobe failed: %w", err)
	}
	if err := json.Unmarshal(output, out); err != nil {
		return fmt.Errorf("parse ffprobe output: %w", err)
	}
	return nil
}

// parseRational parses "30000/1001" or "16:9" forms. Unparseable or zero
// inputs yield the zero rational.
func parseRational(s string) video.Rational {
	sep := "/"
	if strings.Contains(s, ":") {
		sep = ":"
	}
	parts := strings.SplitN(s, sep, 2)
	if len(parts) != 2 {
		return video.Rational{}
	}
	num, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return video.Rational{}
	}
	den, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || den == 0 {
		return video.Rational{}
	}
	if num == 0 {
		return video.Rational{}
	}
	return video.Rational{Num: num, Den: den}
}

func parseBitrate(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// buildMetadata maps a probe result onto the store's metadata descriptor.
// Frames cross the guest boundary as RGB24 regardless of the source pixel
// format, so Format is fixed.
func buildMetadata(r *probeResult, vs *probeStream) *video.Metadata {
	aspect := parseRational(vs.DisplayAspectRatio)
	if aspect.IsZero() && vs.Height > 0 {
		aspect = video.Rational{Num: vs.Width, Den: vs.Height}
	}

	rate := parseRational(vs.AvgFrameRate)
	if rate.IsZero() {
		rate = parseRational(vs.RFrameRate)
	}

	bitrate := parseBitrate(vs.BitRate)
	if bitrate == 0 {
		bitrate = parseBitrate(r.Format.BitRate)
	}

	tags := r.Format.Tags
	if tags == nil {
		tags = map[string]string{}
	}

	return &video.Metadata{
		Codec:         vs.CodecName,
		Format:        video.PixelFormatRGB24,
		Width:         vs.Width,
		Height:        vs.Height,
		AspectRatio:   aspect,
		FrameRate:     rate,
		ContainerTags: tags,
		StreamCount:   r.Format.NBStreams,
		Bitrate:       bitrate,
		MaxBitrate:    parseBitrate(vs.MaxBitRate),
	}
}
