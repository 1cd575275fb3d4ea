package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/atinyakov/mottokeeper/internal/audio"
	"github.com/atinyakov/mottokeeper/internal/common"
	"github.com/atinyakov/mottokeeper/internal/middleware"
	"github.com/atinyakov/mottokeeper/internal/models"
	"github.com/atinyakov/mottokeeper/internal/transcribe"
	"go.uber.org/zap"
)

// fakeUploadService records the requests it receives.
type fakeUploadService struct {
	err      error
	calls    int
	username string
	filename string
	content  string
}

func (f *fakeUploadService) HandleUpload(_ context.Context, req models.UploadRequest) error {
	f.calls++
	f.username = req.Username
	f.filename = req.Filename
	data, _ := io.ReadAll(req.Content)
	f.content = string(data)
	return f.err
}

// multipartBody builds a multipart body. A nil filename writes a plain
// form field instead of a file part.
func multipartBody(t *testing.T, field string, filename *string, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	var (
		part io.Writer
		err  error
	)
	if filename != nil {
		part, err = w.CreateFormFile(field, *filename)
	} else {
		part, err = w.CreateFormField(field)
	}
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, w.FormDataContentType()
}

func ptr(s string) *string { return &s }

func TestUploadHandler_Upload(t *testing.T) {
	tests := []struct {
		name         string
		field        string
		filename     *string
		content      string
		rawBody      string
		serviceErr   error
		maxBytes     int64
		expectedCode int
		expectedMsg  string
		expectCalled bool
	}{
		{
			name:         "success",
			field:        "file",
			filename:     ptr("clip.webm"),
			content:      "audio",
			expectedCode: http.StatusOK,
			expectedMsg:  "File uploaded and motto updated successfully",
			expectCalled: true,
		},
		{
			name:         "not multipart",
			rawBody:      `{"file":"x"}`,
			expectedCode: http.StatusBadRequest,
			expectedMsg:  "No file part",
		},
		{
			name:         "wrong field",
			field:        "audio",
			filename:     ptr("clip.webm"),
			content:      "audio",
			expectedCode: http.StatusBadRequest,
			expectedMsg:  "No file part",
		},
		{
			name:         "empty filename",
			field:        "file",
			filename:     ptr(""),
			content:      "audio",
			expectedCode: http.StatusBadRequest,
			expectedMsg:  "No selected file",
		},
		{
			name:         "too large",
			field:        "file",
			filename:     ptr("clip.webm"),
			content:      strings.Repeat("a", 4096),
			maxBytes:     512,
			expectedCode: http.StatusRequestEntityTooLarge,
			expectedMsg:  "File too large",
		},
		{
			name:         "unsupported type",
			field:        "file",
			filename:     ptr("clip.mp3"),
			content:      "audio",
			serviceErr:   audio.ErrUnsupportedFormat,
			expectedCode: http.StatusBadRequest,
			expectedMsg:  "Unsupported file type",
			expectCalled: true,
		},
		{
			name:         "decode error",
			field:        "file",
			filename:     ptr("clip.webm"),
			serviceErr:   fmt.Errorf("%w: ffmpeg", audio.ErrDecode),
			expectedCode: http.StatusUnprocessableEntity,
			expectedMsg:  "Could not decode audio",
			expectCalled: true,
		},
		{
			name:         "decoder unavailable",
			field:        "file",
			filename:     ptr("clip.webm"),
			serviceErr:   fmt.Errorf("%w: ffmpeg: executable file not found", audio.ErrUnavailable),
			expectedCode: http.StatusServiceUnavailable,
			expectedMsg:  "Audio processing unavailable",
			expectCalled: true,
		},
		{
			name:         "no speech",
			field:        "file",
			filename:     ptr("clip.webm"),
			serviceErr:   transcribe.ErrNoSpeech,
			expectedCode: http.StatusUnprocessableEntity,
			expectedMsg:  "No speech detected",
			expectCalled: true,
		},
		{
			name:         "provider unavailable",
			field:        "file",
			filename:     ptr("clip.webm"),
			serviceErr:   fmt.Errorf("%w: dial tcp", transcribe.ErrProviderUnavailable),
			expectedCode: http.StatusServiceUnavailable,
			expectedMsg:  "Transcription provider unavailable",
			expectCalled: true,
		},
		{
			name:         "transcription failed",
			field:        "file",
			filename:     ptr("clip.webm"),
			serviceErr:   transcribe.ErrFailed,
			expectedCode: http.StatusBadGateway,
			expectedMsg:  "Transcription failed",
			expectCalled: true,
		},
		{
			name:         "user gone",
			field:        "file",
			filename:     ptr("clip.webm"),
			serviceErr:   common.ErrNotFound,
			expectedCode: http.StatusNotFound,
			expectedMsg:  "User not found",
			expectCalled: true,
		},
		{
			name:         "persistence error",
			field:        "file",
			filename:     ptr("clip.webm"),
			serviceErr:   errors.New("db error: broken pipe"),
			expectedCode: http.StatusInternalServerError,
			expectedMsg:  "internal error",
			expectCalled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				body        io.Reader
				contentType string
			)
			if tt.rawBody != "" {
				body, contentType = strings.NewReader(tt.rawBody), "application/json"
			} else {
				body, contentType = multipartBody(t, tt.field, tt.filename, tt.content)
			}

			svc := &fakeUploadService{err: tt.serviceErr}
			h := &UploadHandler{UploadService: svc, MaxBytes: tt.maxBytes, Logger: zap.NewNop()}

			req := httptest.NewRequest(http.MethodPost, "/upload", body)
			req.Header.Set("Content-Type", contentType)
			req = req.WithContext(middleware.WithUsername(req.Context(), "alice"))
			rec := httptest.NewRecorder()
			h.Upload(rec, req)

			if rec.Code != tt.expectedCode {
				t.Fatalf("expected status %d, got %d (%s)", tt.expectedCode, rec.Code, rec.Body.String())
			}
			var payload common.MessageResponse
			if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
				t.Fatalf("failed to decode JSON: %v", err)
			}
			if payload.Message != tt.expectedMsg {
				t.Errorf("message = %q; want %q", payload.Message, tt.expectedMsg)
			}
			if (svc.calls > 0) != tt.expectCalled {
				t.Fatalf("service called = %v; want %v", svc.calls > 0, tt.expectCalled)
			}
			if tt.expectCalled && (svc.username != "alice" || svc.filename != *tt.filename || svc.content != tt.content) {
				t.Errorf("unexpected request: user=%q file=%q content=%q", svc.username, svc.filename, svc.content)
			}
		})
	}
}

func TestUploadHandler_PlainFileField(t *testing.T) {
	body, contentType := multipartBody(t, "file", nil, "")
	svc := &fakeUploadService{}
	h := &UploadHandler{UploadService: svc, Logger: zap.NewNop()}

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "No selected file") {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
	if svc.calls != 0 {
		t.Errorf("service must not be called")
	}
}
