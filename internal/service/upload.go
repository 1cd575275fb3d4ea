package service

import (
	"context"
	"fmt"

	"github.com/atinyakov/mottokeeper/internal/audio"
	"github.com/atinyakov/mottokeeper/internal/common"
	"github.com/atinyakov/mottokeeper/internal/models"
	"github.com/atinyakov/mottokeeper/internal/transcribe"
	"github.com/atinyakov/mottokeeper/internal/workspace"
	"go.uber.org/zap"
)

// FailurePolicy decides what a transcription failure does to the motto.
type FailurePolicy string

const (
	// RejectFailures fails the upload and leaves the motto untouched.
	RejectFailures FailurePolicy = "reject"
	// StoreFailures stores the failure description as the motto.
	StoreFailures FailurePolicy = "store"
)

// MottoRepository persists the encrypted motto.
type MottoRepository interface {
	// UpdateMotto returns common.ErrNotFound when the user row is gone.
	UpdateMotto(ctx context.Context, username, motto string) error
}

// AudioNormalizer validates upload names and converts raw audio to WAV.
type AudioNormalizer interface {
	Accepts(filename string) (string, bool)
	Normalize(ctx context.Context, rawPath, wavPath string) error
}

// Transcriber turns a WAV file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, wavPath string) (string, error)
}

// Encrypter encrypts motto text.
type Encrypter interface {
	Encrypt(plaintext string) (string, error)
}

// UploadService runs the upload pipeline: stage, normalize, transcribe,
// encrypt, persist, then commit the working files.
type UploadService struct {
	repo       MottoRepository
	normalizer AudioNormalizer
	stt        Transcriber
	cipher     Encrypter
	area       *workspace.Area
	policy     FailurePolicy
	locks      *userLocks
	log        *zap.Logger
}

// UploadOption configures an UploadService.
type UploadOption func(*UploadService)

// WithFailurePolicy sets the transcription failure policy. Unknown values
// are ignored.
func WithFailurePolicy(p FailurePolicy) UploadOption {
	return func(s *UploadService) {
		if p == RejectFailures || p == StoreFailures {
			s.policy = p
		}
	}
}

// NewUploadService constructs an UploadService.
func NewUploadService(
	repo MottoRepository,
	normalizer AudioNormalizer,
	stt Transcriber,
	cipher Encrypter,
	area *workspace.Area,
	log *zap.Logger,
	opts ...UploadOption,
) *UploadService {
	s := &UploadService{
		repo:       repo,
		normalizer: normalizer,
		stt:        stt,
		cipher:     cipher,
		area:       area,
		policy:     RejectFailures,
		locks:      newUserLocks(),
		log:        log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleUpload processes one upload. On any error the stored motto and the
// committed working files are left as they were.
func (s *UploadService) HandleUpload(ctx context.Context, req models.UploadRequest) error {
	if req.Filename == "" || req.Content == nil {
		return common.ErrMissingFile
	}
	ext, ok := s.normalizer.Accepts(req.Filename)
	if !ok {
		return fmt.Errorf("%w: %s", audio.ErrUnsupportedFormat, req.Filename)
	}

	unlock, err := s.locks.Lock(ctx, req.Username)
	if err != nil {
		return fmt.Errorf("wait for user lock: %w", err)
	}
	defer unlock()

	staged := s.area.Stage(req.Username, ext)
	committed := false
	defer func() {
		if committed {
			return
		}
		if err := s.area.Discard(staged); err != nil {
			s.log.Warn("failed to remove staging files",
				zap.String("username", req.Username), zap.Error(err))
		}
	}()

	size, err := s.area.WriteRaw(staged, req.Content)
	if err != nil {
		return err
	}

	if err := s.normalizer.Normalize(ctx, staged.Raw, staged.Wav); err != nil {
		return err
	}

	text, err := s.stt.Transcribe(ctx, staged.Wav)
	if err != nil {
		kind := transcribe.Classify(err)
		if s.policy != StoreFailures {
			s.log.Warn("transcription failed",
				zap.String("username", req.Username), zap.Stringer("kind", kind), zap.Error(err))
			return err
		}
		s.log.Warn("transcription failed, storing description",
			zap.String("username", req.Username), zap.Stringer("kind", kind), zap.Error(err))
		text = transcribe.Describe(err)
	}

	ciphertext, err := s.cipher.Encrypt(text)
	if err != nil {
		return fmt.Errorf("encrypt motto: %w", err)
	}

	if err := s.repo.UpdateMotto(ctx, req.Username, ciphertext); err != nil {
		return err
	}

	if err := s.area.Commit(staged); err != nil {
		// The motto is already stored; only the working copies are stale.
		s.log.Error("failed to commit upload files",
			zap.String("username", req.Username), zap.Error(err))
		return nil
	}
	committed = true

	s.log.Info("motto updated",
		zap.String("username", req.Username), zap.Int64("bytes", size))
	return nil
}
