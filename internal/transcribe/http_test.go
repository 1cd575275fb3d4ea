package transcribe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWav(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "motto.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF-fake-wave"), 0o600))
	return path
}

func TestHTTPProvider_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "en", r.FormValue("language"))

		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "motto.wav", hdr.Filename)
		assert.Equal(t, "RIFF-fake-wave", string(data))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"hello world"}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(HTTPConfig{
		URL:      srv.URL,
		APIKey:   "secret",
		Model:    "whisper-1",
		Language: "en",
	}, srv.Client())

	got, err := p.Transcribe(context.Background(), writeWav(t))
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
}

func TestHTTPProvider_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind Kind
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: "slow down", wantKind: KindProviderUnavailable},
		{name: "server error", status: http.StatusBadGateway, body: "upstream", wantKind: KindProviderUnavailable},
		{name: "bad request", status: http.StatusBadRequest, body: "bad model", wantKind: KindOther},
		{name: "garbage body", status: http.StatusOK, body: "not json", wantKind: KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := NewHTTPProvider(HTTPConfig{URL: srv.URL}, srv.Client())
			_, err := p.Transcribe(context.Background(), writeWav(t))
			assert.Equal(t, tt.wantKind, Classify(err))
		})
	}
}

func TestHTTPProvider_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := NewHTTPProvider(HTTPConfig{URL: url}, nil)
	_, err := p.Transcribe(context.Background(), writeWav(t))
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestHTTPProvider_MissingFile(t *testing.T) {
	p := NewHTTPProvider(HTTPConfig{URL: "http://127.0.0.1:1"}, nil)
	_, err := p.Transcribe(context.Background(), filepath.Join(t.TempDir(), "absent.wav"))
	assert.ErrorIs(t, err, ErrFailed)
}
