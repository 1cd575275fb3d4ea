package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// maxErrorBody caps how much of a provider error body is kept in messages.
const maxErrorBody = 512

// HTTPConfig holds configuration for an OpenAI/whisper-compatible
// speech-to-text endpoint.
type HTTPConfig struct {
	URL      string
	APIKey   string
	Model    string
	Language string
}

// HTTPProvider posts WAV files as multipart forms and reads {"text": "..."}.
type HTTPProvider struct {
	cfg    HTTPConfig
	client *http.Client
}

// NewHTTPProvider creates an HTTPProvider. A nil client uses http.DefaultClient.
func NewHTTPProvider(cfg HTTPConfig, client *http.Client) *HTTPProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPProvider{cfg: cfg, client: client}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe sends the file at audioPath and returns the recognized text.
func (p *HTTPProvider) Transcribe(ctx context.Context, audioPath string) (string, error) {
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("%w: read audio file: %v", ErrFailed, err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("%w: creating form file: %v", ErrFailed, err)
	}
	if _, err = part.Write(audio); err != nil {
		return "", fmt.Errorf("%w: writing audio: %v", ErrFailed, err)
	}
	if p.cfg.Model != "" {
		if err = writer.WriteField("model", p.cfg.Model); err != nil {
			return "", fmt.Errorf("%w: writing model field: %v", ErrFailed, err)
		}
	}
	if p.cfg.Language != "" {
		if err = writer.WriteField("language", p.cfg.Language); err != nil {
			return "", fmt.Errorf("%w: writing language field: %v", ErrFailed, err)
		}
	}
	if err = writer.Close(); err != nil {
		return "", fmt.Errorf("%w: closing writer: %v", ErrFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, body)
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %v", ErrFailed, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(respBody))
		if isRetryableStatus(resp.StatusCode) {
			return "", fmt.Errorf("%w: provider status %d: %s", ErrProviderUnavailable, resp.StatusCode, msg)
		}
		return "", fmt.Errorf("%w: provider status %d: %s", ErrFailed, resp.StatusCode, msg)
	}

	var result transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrFailed, err)
	}
	return result.Text, nil
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
