// Package api is a small HTTP client for the mottokeeper server.
package api

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

	"github.com/atinyakov/mottokeeper/internal/models"
)

const (
	pathRegister = "/register"
	pathLogin    = "/login"
	pathUser     = "/user"
	pathUpload   = "/upload"
)

// Error is a non-2xx answer from the server.
type Error struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client talks to one server. Token, when set, is sent as a bearer token.
type Client struct {
	BaseURL    string
	AppVersion string
	Token      string
	HTTP       *http.Client
}

// New creates a Client for baseURL.
func New(baseURL, appVersion string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		AppVersion: appVersion,
		HTTP:       http.DefaultClient,
	}
}

// RegisterResult is the server's answer to a registration.
type RegisterResult struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates an account and returns the issued token.
func (c *Client) Register(ctx context.Context, username, password string) (*RegisterResult, error) {
	var out RegisterResult
	if err := c.postJSON(ctx, pathRegister, credentials{username, password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login returns a fresh token for the credentials.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	if err := c.postJSON(ctx, pathLogin, credentials{username, password}, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

// Profile returns the authenticated user's profile.
func (c *Client) Profile(ctx context.Context) (*models.Profile, error) {
	req, err := c.newRequest(ctx, http.MethodGet, pathUser, nil)
	if err != nil {
		return nil, err
	}
	var out models.Profile
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Upload sends the recording at path and returns the server's message.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, http.MethodPost, pathUpload, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var out struct {
		Message string `json:"message"`
	}
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.AppVersion != "" {
		req.Header.Set("app-version", c.AppVersion)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg struct {
			Message string `json:"message"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &msg) != nil {
			msg.Message = strings.TrimSpace(string(raw))
		}
		return &Error{Status: resp.StatusCode, Message: msg.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
