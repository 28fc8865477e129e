// Package ffmpeg implements the decode and encode collaborators by driving
// the ffmpeg and ffprobe binaries as external processes.
package ffmpeg

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// Common errors
var (
	ErrFFmpegNotFound  = errors.New("ffmpeg not found in PATH or common locations")
	ErrFFprobeNotFound = errors.New("ffprobe not found in PATH or common locations")
	ErrNoVideoStream   = errors.New("input has no video stream")
	ErrTruncatedOutput = errors.New("raw frame output is not a whole number of frames")
)

// findBinary locates a binary in PATH or common install locations.
func findBinary(name string) (string, error) {
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	var paths []string
	switch runtime.GOOS {
	case "darwin":
		paths = []string{
			"/opt/homebrew/bin/" + name,
			"/usr/local/bin/" + name,
		}
	case "linux":
		paths = []string{
			"/usr/bin/" + name,
			"/usr/local/bin/" + name,
		}
	case "windows":
		paths = []string{
			"C:\\ffmpeg\\bin\\" + name + ".exe",
		}
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s not found in PATH or common locations", name)
}

// FindFFmpeg returns the path to the ffmpeg binary.
func FindFFmpeg() (string, error) {
	path, err := findBinary("ffmpeg")
	if err != nil {
		return "", ErrFFmpegNotFound
	}
	return path, nil
}

// FindFFprobe returns the path to the ffprobe binary.
func FindFFprobe() (string, error) {
	path, err := findBinary("ffprobe")
	if err != nil {
		return "", ErrFFprobeNotFound
	}
	return path, nil
}
