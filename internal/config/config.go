// Package config provides functionality for managing configuration options
// for the application using command-line flags, an optional YAML file,
// a .env file and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Failure policies for transcription errors.
const (
	// PolicyReject treats transcription failures as upload failures.
	PolicyReject = "reject"
	// PolicyStore writes the failure description as the motto.
	PolicyStore = "store"
)

var (
	ErrMissingEncryptionKey = errors.New("encryption key not found in environment variables")
	ErrMissingJWTSecret     = errors.New("jwt secret key is required")
)

// TranscriptionOptions configures the speech-to-text provider.
type TranscriptionOptions struct {
	// URL is the provider's transcription endpoint.
	URL string `yaml:"url"`
	// APIKey is sent as a bearer token when set.
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	Language string `yaml:"language"`
	// Timeout bounds a single provider round-trip.
	Timeout time.Duration `yaml:"timeout"`
	// Retries is the number of extra attempts when the provider is unavailable.
	Retries int `yaml:"retries"`
	// MinDelay and MaxDelay bound the simulated processing latency.
	// Both zero disables it.
	MinDelay time.Duration `yaml:"min_delay"`
	MaxDelay time.Duration `yaml:"max_delay"`
	// FailurePolicy is either "reject" or "store".
	FailurePolicy string `yaml:"failure_policy"`
}

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `yaml:"address"`

	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string `yaml:"database_dsn"`

	// Config is the path to the YAML config file.
	Config string `yaml:"-"`

	// EnvFile is the path to an optional .env file.
	EnvFile string `yaml:"-"`

	LogLevel string `yaml:"log_level"`

	// UploadDir holds raw uploads, WavUploadDir the normalized waveforms.
	UploadDir    string `yaml:"upload_folder"`
	WavUploadDir string `yaml:"wav_upload_folder"`

	// EncryptionKey is the key material for motto encryption.
	EncryptionKey   string `yaml:"encryption_key"`
	CipherAlgorithm string `yaml:"cipher_algorithm"`

	JWTSecret  string        `yaml:"jwt_secret_key"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`

	// MinAppVersion is the lowest app-version header accepted.
	MinAppVersion string `yaml:"min_app_version"`

	MaxUploadBytes    int64         `yaml:"max_upload_bytes"`
	AllowedExtensions []string      `yaml:"allowed_extensions"`
	FFmpegPath        string        `yaml:"ffmpeg_path"`
	NormalizeTimeout  time.Duration `yaml:"normalize_timeout"`

	CleanupInterval  time.Duration `yaml:"cleanup_interval"`
	CleanupRetention time.Duration `yaml:"cleanup_retention"`

	TLSCert string `yaml:"tls_cert"`
	TLSKey  string `yaml:"tls_key"`

	Transcription TranscriptionOptions `yaml:"transcription"`
}

// RegisterFlags binds the options to fs and returns them populated with defaults.
func RegisterFlags(fs *pflag.FlagSet) *Options {
	o := &Options{}
	fs.StringVarP(&o.Port, "address", "a", "localhost:3002", "run on ip:port server")
	fs.StringVarP(&o.DatabaseDSN, "database-dsn", "d", "", "db address")
	fs.StringVarP(&o.Config, "config", "c", "config.yaml", "path to config file")
	fs.StringVar(&o.EnvFile, "env-file", ".env", "path to .env file")
	fs.StringVar(&o.LogLevel, "log-level", "info", "log level")
	fs.StringVar(&o.UploadDir, "upload-folder", "uploads", "directory for raw uploads")
	fs.StringVar(&o.WavUploadDir, "wav-upload-folder", "uploads/wav", "directory for normalized audio")
	fs.StringVar(&o.CipherAlgorithm, "cipher", "fernet", "motto cipher: fernet | chacha20-poly1305")
	fs.DurationVar(&o.TokenTTL, "token-ttl", 15*time.Minute, "access token lifetime")
	fs.IntVar(&o.BcryptCost, "bcrypt-cost", 12, "bcrypt cost")
	fs.StringVar(&o.MinAppVersion, "min-app-version", "1.2.0", "minimum accepted app-version header")
	fs.Int64Var(&o.MaxUploadBytes, "max-upload-bytes", 10<<20, "maximum upload body size")
	fs.StringSliceVar(&o.AllowedExtensions, "allowed-extensions", []string{"webm"}, "accepted audio container extensions")
	fs.StringVar(&o.FFmpegPath, "ffmpeg", "ffmpeg", "path to ffmpeg binary")
	fs.DurationVar(&o.NormalizeTimeout, "normalize-timeout", 30*time.Second, "audio normalization timeout")
	fs.DurationVar(&o.CleanupInterval, "cleanup-interval", time.Hour, "stale upload cleanup interval")
	fs.DurationVar(&o.CleanupRetention, "cleanup-retention", 24*time.Hour, "age after which staged uploads are removed")
	fs.StringVar(&o.TLSCert, "tls-cert", "", "TLS certificate file")
	fs.StringVar(&o.TLSKey, "tls-key", "", "TLS key file")
	fs.StringVar(&o.Transcription.URL, "transcription-url", "http://localhost:8387/v1/audio/transcriptions", "speech-to-text endpoint")
	fs.StringVar(&o.Transcription.Model, "transcription-model", "whisper-1", "speech-to-text model")
	fs.StringVar(&o.Transcription.Language, "transcription-language", "en", "expected language")
	fs.DurationVar(&o.Transcription.Timeout, "transcription-timeout", 60*time.Second, "speech-to-text call timeout")
	fs.IntVar(&o.Transcription.Retries, "transcription-retries", 2, "retries when the provider is unavailable")
	fs.DurationVar(&o.Transcription.MinDelay, "transcription-min-delay", 0, "minimum simulated processing delay")
	fs.DurationVar(&o.Transcription.MaxDelay, "transcription-max-delay", 0, "maximum simulated processing delay")
	fs.StringVar(&o.Transcription.FailurePolicy, "failure-policy", PolicyReject, "transcription failure policy: reject | store")
	return o
}

// Resolve loads the configuration sources and validates the result.
func (o *Options) Resolve() error {
	if err := o.Load(); err != nil {
		return err
	}
	return o.Validate()
}

// Load reads the .env file, overlays the YAML config file and then the
// environment variables, without validating.
func (o *Options) Load() error {
	if o.EnvFile != "" {
		if _, err := os.Stat(o.EnvFile); err == nil {
			if err := godotenv.Load(o.EnvFile); err != nil {
				return fmt.Errorf("error while loading env file: %w", err)
			}
		}
	}

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		o.Config = configPath
	}

	if o.Config != "" {
		if _, err := os.Stat(o.Config); err == nil {
			data, err := os.ReadFile(o.Config)
			if err != nil {
				return fmt.Errorf("error while reading config file: %w", err)
			}
			if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), o); err != nil {
				return fmt.Errorf("error while parsing config file: %w", err)
			}
		}
	}

	o.applyEnv()
	return nil
}

func (o *Options) applyEnv() {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("SERVER_ADDRESS", &o.Port)
	setString("DATABASE_DSN", &o.DatabaseDSN)
	setString("LOG_LEVEL", &o.LogLevel)
	setString("UPLOAD_FOLDER", &o.UploadDir)
	setString("WAV_UPLOAD_FOLDER", &o.WavUploadDir)
	setString("ENCRYPTION_KEY", &o.EncryptionKey)
	setString("CIPHER_ALGORITHM", &o.CipherAlgorithm)
	setString("JWT_SECRET_KEY", &o.JWTSecret)
	setString("MIN_APP_VERSION", &o.MinAppVersion)
	setString("FFMPEG_PATH", &o.FFmpegPath)
	setString("TRANSCRIPTION_URL", &o.Transcription.URL)
	setString("TRANSCRIPTION_API_KEY", &o.Transcription.APIKey)
	setString("TRANSCRIPTION_FAILURE_POLICY", &o.Transcription.FailurePolicy)

	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			o.MaxUploadBytes = n
		}
	}
}

// Validate reports configuration that must stop the process from starting.
func (o *Options) Validate() error {
	if o.EncryptionKey == "" {
		return ErrMissingEncryptionKey
	}
	if o.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	if strings.TrimSpace(o.UploadDir) == "" || strings.TrimSpace(o.WavUploadDir) == "" {
		return errors.New("upload folders must be set")
	}
	if filepath.Clean(o.UploadDir) == filepath.Clean(o.WavUploadDir) {
		for _, ext := range o.AllowedExtensions {
			if strings.EqualFold(strings.TrimPrefix(ext, "."), "wav") {
				return errors.New("wav uploads need separate upload folders")
			}
		}
	}
	switch o.Transcription.FailurePolicy {
	case PolicyReject, PolicyStore:
	default:
		return fmt.Errorf("unknown failure policy %q", o.Transcription.FailurePolicy)
	}
	if o.Transcription.MaxDelay < o.Transcription.MinDelay {
		return errors.New("transcription max_delay is lower than min_delay")
	}
	return nil
}
