// Package storage keeps the client's session on disk and reads user input
// for the interactive shell.
package storage

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

const storageFile = "session.json"

// LocalStorage persists the current Session as JSON.
type LocalStorage struct {
	Session Session `json:"session"`
	// Path overrides the default session file.
	Path string `json:"-"`
	mu   sync.Mutex
}

func (ls *LocalStorage) file() string {
	if ls.Path != "" {
		return ls.Path
	}
	return storageFile
}

// Load reads the session file. A missing file yields an empty session.
func (ls *LocalStorage) Load() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	f, err := os.Open(ls.file())
	if err != nil {
		if os.IsNotExist(err) {
			ls.Session = Session{}
			return nil
		}
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(ls)
}

// Save writes the session file readable by the owner only.
func (ls *LocalStorage) Save() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	f, err := os.OpenFile(ls.file(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(ls)
}

// Set records a fresh login.
func (ls *LocalStorage) Set(baseURL, username, token string) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.Session = Session{
		BaseURL:  baseURL,
		Username: username,
		Token:    token,
		SavedAt:  time.Now().Unix(),
	}
}

// Token returns the stored token if it was issued by baseURL.
func (ls *LocalStorage) Token(baseURL string) string {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.Session.BaseURL != baseURL {
		return ""
	}
	return ls.Session.Token
}

// Clear forgets the session.
func (ls *LocalStorage) Clear() {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.Session = Session{}
}
