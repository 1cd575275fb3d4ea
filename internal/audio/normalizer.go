// Package audio validates uploaded audio containers and converts them into
// mono 16 kHz WAV files suitable for speech recognition.
package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file type")
	ErrDecode            = errors.New("audio decode failed")
	// ErrUnavailable reports a decoder that could not run to completion,
	// such as a missing ffmpeg binary or an exceeded deadline.
	ErrUnavailable = errors.New("audio decoder unavailable")
)

// Runner executes an external command.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands with os/exec and reports their stderr on failure.
type ExecRunner struct{}

// Run executes name with args and waits for it to exit.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Normalizer checks extensions against an allow-list and decodes accepted
// containers with ffmpeg.
type Normalizer struct {
	allowed map[string]struct{}
	ffmpeg  string
	timeout time.Duration
	runner  Runner
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithRunner replaces the command runner.
func WithRunner(r Runner) Option {
	return func(n *Normalizer) { n.runner = r }
}

// WithFFmpeg sets the ffmpeg binary path.
func WithFFmpeg(path string) Option {
	return func(n *Normalizer) { n.ffmpeg = path }
}

// WithTimeout bounds a single normalization. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(n *Normalizer) { n.timeout = d }
}

// NewNormalizer creates a Normalizer accepting the given extensions
// (case-insensitive, with or without a leading dot).
func NewNormalizer(extensions []string, opts ...Option) *Normalizer {
	n := &Normalizer{
		allowed: make(map[string]struct{}, len(extensions)),
		ffmpeg:  "ffmpeg",
		runner:  ExecRunner{},
	}
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			n.allowed[ext] = struct{}{}
		}
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Accepts returns the lower-cased extension of filename and whether it is on
// the allow-list. Only the text after the last dot counts.
func (n *Normalizer) Accepts(filename string) (string, bool) {
	i := strings.LastIndex(filename, ".")
	if i < 0 || i == len(filename)-1 {
		return "", false
	}
	ext := strings.ToLower(filename[i+1:])
	_, ok := n.allowed[ext]
	return ext, ok
}

// Normalize decodes rawPath into a mono 16 kHz WAV at wavPath. Input the
// decoder rejects, including audio without samples, wraps ErrDecode. A
// decoder that cannot run or exceeds its deadline wraps ErrUnavailable.
func (n *Normalizer) Normalize(ctx context.Context, rawPath, wavPath string) error {
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	err := n.runner.Run(ctx, n.ffmpeg,
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", rawPath,
		"-ac", "1", "-ar", "16000",
		"-fflags", "+bitexact", "-map_metadata", "-1",
		"-f", "wav", wavPath,
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, ctxErr)
		}
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}

	size, err := dataChunkSize(wavPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if size == 0 {
		return fmt.Errorf("%w: no audio samples", ErrDecode)
	}
	return nil
}

// dataChunkSize walks the RIFF chunks of a WAVE file and returns the
// declared size of its data chunk.
func dataChunkSize(path string) (uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var riff [12]byte
	if _, err := io.ReadFull(f, riff[:]); err != nil {
		return 0, fmt.Errorf("read riff header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return 0, errors.New("not a wave file")
	}

	var hdr [8]byte
	for {
		if _, err := io.ReadFull(f, hdr[:]); err != nil {
			return 0, errors.New("missing data chunk")
		}
		size := binary.LittleEndian.Uint32(hdr[4:8])
		if string(hdr[0:4]) == "data" {
			return size, nil
		}
		// Chunks are padded to an even length.
		skip := int64(size) + int64(size&1)
		if _, err := f.Seek(skip, io.SeekCurrent); err != nil {
			return 0, fmt.Errorf("skip %q chunk: %w", hdr[0:4], err)
		}
	}
}
