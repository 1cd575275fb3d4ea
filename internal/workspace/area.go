// Package workspace manages the upload working directories: the canonical
// per-user raw and waveform files, and the per-request staging files that
// are renamed into them once an upload has been persisted.
package workspace

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	stagingSuffix = ".part"
	wavExt        = "wav"

	// maxEscapedName bounds the readable part of a slot. Longer escaped
	// usernames fall back to a hashed slot so file names stay under the
	// common 255-byte limit.
	maxEscapedName = 128
)

// Area is a pair of working directories for raw uploads and waveforms.
type Area struct {
	RawDir string
	WavDir string
}

// Staged holds the per-request staging paths of one upload and the
// canonical paths they are committed to.
type Staged struct {
	Raw      string
	Wav      string
	FinalRaw string
	FinalWav string
}

// New creates both directories if needed and returns the Area.
func New(rawDir, wavDir string) (*Area, error) {
	for _, dir := range []string{rawDir, wavDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create working dir %s: %w", dir, err)
		}
	}
	return &Area{RawDir: rawDir, WavDir: wavDir}, nil
}

// Slot returns the file stem owned by username. The name is escaped so it
// can never leave the working directories. Usernames whose escaped form is
// too long use the "userh_" prefix with a SHA-256 digest, which cannot
// collide with an escaped slot.
func Slot(username string) string {
	escaped := url.PathEscape(username)
	if len(escaped) <= maxEscapedName {
		return "user_" + escaped + "_motto"
	}
	sum := sha256.Sum256([]byte(username))
	return "userh_" + hex.EncodeToString(sum[:]) + "_motto"
}

// Stage returns fresh staging paths for an upload by username with the
// given raw extension. Raw and wav staging names differ even when both
// directories are the same.
func (a *Area) Stage(username, ext string) Staged {
	slot := Slot(username)
	id := uuid.NewString()
	return Staged{
		Raw:      filepath.Join(a.RawDir, slot+"."+id+".raw"+stagingSuffix),
		Wav:      filepath.Join(a.WavDir, slot+"."+id+"."+wavExt+stagingSuffix),
		FinalRaw: filepath.Join(a.RawDir, slot+"."+strings.ToLower(ext)),
		FinalWav: filepath.Join(a.WavDir, slot+"."+wavExt),
	}
}

// WriteRaw copies r into the staged raw file, which must not exist yet.
func (a *Area) WriteRaw(s Staged, r io.Reader) (int64, error) {
	f, err := os.OpenFile(s.Raw, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return 0, fmt.Errorf("create staging file: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("write staging file: %w", err)
	}
	return n, nil
}

// Commit renames the staged files over the canonical ones.
func (a *Area) Commit(s Staged) error {
	if err := os.Rename(s.Raw, s.FinalRaw); err != nil {
		return fmt.Errorf("commit raw file: %w", err)
	}
	if err := os.Rename(s.Wav, s.FinalWav); err != nil {
		return fmt.Errorf("commit wav file: %w", err)
	}
	return nil
}

// Discard removes whatever staging files exist for s.
func (a *Area) Discard(s Staged) error {
	var errs []error
	for _, p := range []string{s.Raw, s.Wav} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
