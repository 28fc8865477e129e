// Package video defines the metadata describing a decoded video stream.
package video

import (
	"fmt"

	"github.com/google/uuid"
)

// PixelFormat represents the pixel format of raw frame data.
type PixelFormat int

const (
	// PixelFormatRGB24 is 8-bit-per-channel interleaved RGB, 3 bytes per
	// pixel, single plane. This is the format frames cross the guest
	// boundary in.
	PixelFormatRGB24 PixelFormat = iota

	// PixelFormatYUV420P is planar YUV 4:2:0, the most common decoder
	// output format.
	PixelFormatYUV420P

	// PixelFormatNV12 is semi-planar YUV 4:2:0 (Y plane plus interleaved
	// UV plane), common on hardware decoders.
	PixelFormatNV12
)

// String returns the string representation of the pixel format.
func (f PixelFormat) String() string {
	switch f {
	case PixelFormatRGB24:
		return "RGB24"
	case PixelFormatYUV420P:
		return "YUV420P"
	case PixelFormatNV12:
		return "NV12"
	default:
		return "Unknown"
	}
}

// BytesPerPixel returns the packed bytes per pixel for interleaved formats.
// Planar formats return 0; their plane sizes are not per-pixel uniform.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormatRGB24:
		return 3
	default:
		return 0
	}
}

// Rational is an exact fraction, used for aspect ratios and frame rates.
type Rational struct {
	Num int
	Den int
}

// String returns the fraction in "num/den" form.
func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// Float returns the fraction as a float64, or 0 for a zero denominator.
func (r Rational) Float() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// IsZero reports whether the rational is unset.
func (r Rational) IsZero() bool {
	return r.Num == 0 && r.Den == 0
}

// Metadata describes the source video a frame sequence was decoded from.
// It is created once per successful decode and never mutated afterwards.
type Metadata struct {
	// ID uniquely identifies one load of a source video.
	ID uuid.UUID

	// Codec is the decoder codec name, e.g. "h264".
	Codec string

	// Format is the pixel format frames are exchanged in.
	Format PixelFormat

	// Width and Height of the video in pixels.
	Width  int
	Height int

	// AspectRatio is the display aspect ratio.
	AspectRatio Rational

	// FrameRate is the stream frame rate. Zero when the container does
	// not declare one.
	FrameRate Rational

	// ContainerTags holds the input container's key/value metadata.
	ContainerTags map[string]string

	// StreamCount is the number of streams in the input container.
	StreamCount int

	// Bitrate and MaxBitrate in bits per second. Zero when unknown.
	Bitrate    int64
	MaxBitrate int64
}

// FrameSize returns the byte size of one full frame in the exchange
// format: width * height * bytes per pixel.
func (m *Metadata) FrameSize() int {
	return m.Width * m.Height * m.Format.BytesPerPixel()
}
