package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/atinyakov/mottokeeper/internal/audio"
	"github.com/atinyakov/mottokeeper/internal/common"
	"github.com/atinyakov/mottokeeper/internal/middleware"
	"github.com/atinyakov/mottokeeper/internal/models"
	"github.com/atinyakov/mottokeeper/internal/transcribe"
	"go.uber.org/zap"
)

// multipartMemory is how much of a multipart body is kept in memory
// before parts spill to temporary files.
const multipartMemory = 4 << 20

// UploadService runs the motto upload pipeline.
type UploadService interface {
	HandleUpload(ctx context.Context, req models.UploadRequest) error
}

// UploadHandler accepts a multipart audio upload in the "file" field.
type UploadHandler struct {
	UploadService UploadService
	// MaxBytes caps the request body; zero means no cap.
	MaxBytes int64
	Logger   *zap.Logger
}

// Upload handles POST /upload.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	username := middleware.GetUsernameFromContext(r.Context())

	if h.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isTooLarge(err) {
			common.WriteMessage(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		common.WriteMessage(w, http.StatusBadRequest, "No file part")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		// A part with an empty filename is parsed as a plain form value.
		if _, ok := r.MultipartForm.Value["file"]; ok {
			common.WriteMessage(w, http.StatusBadRequest, "No selected file")
			return
		}
		common.WriteMessage(w, http.StatusBadRequest, "No file part")
		return
	}
	header := files[0]
	if header.Filename == "" {
		common.WriteMessage(w, http.StatusBadRequest, "No selected file")
		return
	}

	f, err := header.Open()
	if err != nil {
		h.Logger.Error("open uploaded part failed", zap.String("username", username), zap.Error(err))
		common.WriteMessage(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer f.Close()

	err = h.UploadService.HandleUpload(r.Context(), models.UploadRequest{
		Username: username,
		Filename: header.Filename,
		Content:  f,
	})
	if err != nil {
		h.writeUploadError(w, username, err)
		return
	}

	common.WriteMessage(w, http.StatusOK, "File uploaded and motto updated successfully")
}

func (h *UploadHandler) writeUploadError(w http.ResponseWriter, username string, err error) {
	switch {
	case errors.Is(err, common.ErrMissingFile):
		common.WriteMessage(w, http.StatusBadRequest, "No selected file")
	case errors.Is(err, audio.ErrUnsupportedFormat):
		common.WriteMessage(w, http.StatusBadRequest, "Unsupported file type")
	case errors.Is(err, audio.ErrDecode):
		common.WriteMessage(w, http.StatusUnprocessableEntity, "Could not decode audio")
	case errors.Is(err, audio.ErrUnavailable):
		h.Logger.Error("audio decoder unavailable", zap.String("username", username), zap.Error(err))
		common.WriteMessage(w, http.StatusServiceUnavailable, "Audio processing unavailable")
	case errors.Is(err, transcribe.ErrNoSpeech):
		common.WriteMessage(w, http.StatusUnprocessableEntity, "No speech detected")
	case errors.Is(err, transcribe.ErrProviderUnavailable):
		common.WriteMessage(w, http.StatusServiceUnavailable, "Transcription provider unavailable")
	case errors.Is(err, transcribe.ErrFailed):
		common.WriteMessage(w, http.StatusBadGateway, "Transcription failed")
	case errors.Is(err, common.ErrNotFound):
		common.WriteMessage(w, http.StatusNotFound, "User not found")
	case isTooLarge(err):
		common.WriteMessage(w, http.StatusRequestEntityTooLarge, "File too large")
	default:
		h.Logger.Error("upload failed", zap.String("username", username), zap.Error(err))
		common.WriteMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return true
	}
	// mime/multipart does not always wrap the reader's error.
	return strings.Contains(err.Error(), "request body too large")
}
