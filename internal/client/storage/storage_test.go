package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_FileNotExist(t *testing.T) {
	// Use temp dir and chdir
	dir := t.TempDir()
	cwd, _ := os.Getwd()
	defer os.Chdir(cwd)
	os.Chdir(dir)

	ls := &LocalStorage{}
	if err := ls.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if ls.Session != (Session{}) {
		t.Errorf("expected empty session, got %+v", ls.Session)
	}
}

func TestLoad_FileExists(t *testing.T) {
	dir := t.TempDir()
	cwd, _ := os.Getwd()
	defer os.Chdir(cwd)
	os.Chdir(dir)

	// prepare file
	data := LocalStorage{Session: Session{BaseURL: "http://x", Username: "alice", Token: "tok", SavedAt: 5}}
	buf, _ := json.Marshal(&data)
	os.WriteFile(storageFile, buf, 0o600)

	ls := &LocalStorage{}
	if err := ls.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if ls.Session.Username != "alice" || ls.Session.Token != "tok" {
		t.Errorf("unexpected session: %+v", ls.Session)
	}
}

func TestLoad_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	os.WriteFile(path, []byte("{not json"), 0o600)

	ls := &LocalStorage{Path: path}
	if err := ls.Load(); err == nil {
		t.Fatal("expected error for corrupt session file")
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	ls := &LocalStorage{Path: path}
	before := time.Now().Unix()
	ls.Set("http://localhost:3002", "bob", "tok-2")
	if err := ls.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("session file mode = %o; want 600", perm)
	}

	// read back
	out := &LocalStorage{Path: path}
	if err := out.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if out.Session.Username != "bob" || out.Session.Token != "tok-2" || out.Session.SavedAt < before {
		t.Errorf("unexpected saved session: %+v", out.Session)
	}
}

func TestTokenAndClear(t *testing.T) {
	ls := &LocalStorage{}
	ls.Set("http://a", "carol", "tok")

	if got := ls.Token("http://a"); got != "tok" {
		t.Errorf("Token = %q; want tok", got)
	}
	if got := ls.Token("http://b"); got != "" {
		t.Errorf("Token for other server = %q; want empty", got)
	}

	ls.Clear()
	if got := ls.Token("http://a"); got != "" {
		t.Errorf("Token after Clear = %q; want empty", got)
	}
}
