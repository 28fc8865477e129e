// Package wasmhost runs WASM guest modules against the video frame bridge.
//
// It registers the four bridge operations as host functions on a wazero
// runtime under a fixed module name, so a guest can import and call them
// with raw pointer/length arguments into its own linear memory.
package wasmhost

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/videolab/framehost/internal/ffmpeg"
	"github.com/videolab/framehost/pkg/bridge"
	"github.com/videolab/framehost/pkg/video"
)

// Exported host function names, matching the guest-side import contract.
const (
	FuncLoadVideo     = "load_video_to_host_memory"
	FuncGetFrame      = "get_frame"
	FuncWriteFrame    = "write_frame"
	FuncAssembleVideo = "assemble_output_frames_to_video"
)

// Option customizes a Host.
type Option func(*Host)

// WithCollaborators replaces the default ffmpeg-backed decode and encode
// collaborators.
func WithCollaborators(dec bridge.Decoder, enc bridge.EncoderFactory) Option {
	return func(h *Host) {
		h.dec = dec
		h.enc = enc
	}
}

// WithLogger replaces the config-derived logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		h.log = logger
	}
}

// Host owns a wazero runtime with the bridge operations registered.
type Host struct {
	cfg     *Config
	runtime wazero.Runtime
	bridge  *bridge.Bridge
	dec     bridge.Decoder
	enc     bridge.EncoderFactory
	log     *slog.Logger
}

// New builds a runtime, instantiates WASI, and registers the bridge host
// module. cfg may be nil for defaults.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Host, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	h := &Host{cfg: cfg}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = cfg.NewLogger(os.Stderr)
	}

	if h.dec == nil {
		dec, err := newDecoder(cfg, h.log)
		if err != nil {
			return nil, err
		}
		h.dec = dec
	}
	if h.enc == nil {
		path := cfg.FFmpegPath
		if path == "" {
			found, err := ffmpeg.FindFFmpeg()
			if err != nil {
				return nil, err
			}
			path = found
		}
		h.enc = &ffmpegEncoderFactory{ffmpegPath: path}
	}
	h.bridge = bridge.New(h.dec, h.enc, h.log)

	h.runtime = wazero.NewRuntime(ctx)
	wasi_snapshot_preview1.MustInstantiate(ctx, h.runtime)
	if err := h.registerHostModule(ctx); err != nil {
		_ = h.runtime.Close(ctx)
		return nil, fmt.Errorf("register host module %s: %w", cfg.ModuleName, err)
	}
	return h, nil
}

func newDecoder(cfg *Config, logger *slog.Logger) (*ffmpeg.Decoder, error) {
	if cfg.FFmpegPath != "" && cfg.FFprobePath != "" {
		return ffmpeg.NewDecoderWithPaths(cfg.FFmpegPath, cfg.FFprobePath, logger), nil
	}
	return ffmpeg.NewDecoder(logger)
}

// registerHostModule exports the four bridge operations. Statuses are the
// only values that cross back into the guest; errors have already been
// logged by the bridge.
func (h *Host) registerHostModule(ctx context.Context) error {
	_, err := h.runtime.NewHostModuleBuilder(h.cfg.ModuleName).
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, mod api.Module, filenamePtr, filenameLen, filenameCap, widthOutPtr, heightOutPtr uint32) int32 {
			status, _ := h.bridge.LoadVideo(ctx, WrapMemory(mod.Memory()), filenamePtr, filenameLen, filenameCap, widthOutPtr, heightOutPtr)
			return status
		}).
		Export(FuncLoadVideo).
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, mod api.Module, index, bufPtr, bufLen, bufCap uint32) int32 {
			status, _ := h.bridge.GetFrame(ctx, WrapMemory(mod.Memory()), index, bufPtr, bufLen, bufCap)
			return status
		}).
		Export(FuncGetFrame).
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, mod api.Module, index, bufPtr, bufLen uint32) int32 {
			status, _ := h.bridge.WriteFrame(ctx, WrapMemory(mod.Memory()), index, bufPtr, bufLen)
			return status
		}).
		Export(FuncWriteFrame).
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, mod api.Module, filenamePtr, filenameLen, filenameCap uint32) int32 {
			status, _ := h.bridge.AssembleVideo(ctx, WrapMemory(mod.Memory()), filenamePtr, filenameLen, filenameCap)
			return status
		}).
		Export(FuncAssembleVideo).
		Instantiate(ctx)
	return err
}

// Bridge returns the bridge backing the host functions.
func (h *Host) Bridge() *bridge.Bridge {
	return h.bridge
}

// Runtime returns the underlying wazero runtime, for embedders that
// instantiate guests themselves.
func (h *Host) Runtime() wazero.Runtime {
	return h.runtime
}

// Run instantiates the guest module at wasmPath and executes its entry
// function, wiring its stdio through the host process.
func (h *Host) Run(ctx context.Context, wasmPath string, args ...string) error {
	bin, err := os.ReadFile(wasmPath)
	if err != nil {
		return fmt.Errorf("read guest module: %w", err)
	}

	modCfg := wazero.NewModuleConfig().
		WithStdout(os.Stdout).
		WithStderr(os.Stderr).
		WithArgs(append([]string{filepath.Base(wasmPath)}, args...)...)

	mod, err := h.runtime.InstantiateWithConfig(ctx, bin, modCfg)
	if err != nil {
		return fmt.Errorf("run guest module %s: %w", wasmPath, err)
	}
	return mod.Close(ctx)
}

// Close releases the runtime and all instantiated modules.
func (h *Host) Close(ctx context.Context) error {
	return h.runtime.Close(ctx)
}

// ffmpegEncoderFactory opens one ffmpeg encoder per assembly.
type ffmpegEncoderFactory struct {
	ffmpegPath string
}

func (f *ffmpegEncoderFactory) New(ctx context.Context, meta *video.Metadata, filename string) (bridge.Encoder, error) {
	enc, err := ffmpeg.NewEncoder(ctx, f.ffmpegPath, meta, filename)
	if err != nil {
		return nil, err
	}
	return enc, nil
}

var (
	_ bridge.EncoderFactory = (*ffmpegEncoderFactory)(nil)
	_ bridge.Encoder        = (*ffmpeg.Encoder)(nil)
)
