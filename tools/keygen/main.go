// Package main generates the secrets the server needs, a Fernet
// ENCRYPTION_KEY and a JWT_SECRET_KEY, and prints them or writes them to
// a .env file.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/atinyakov/mottokeeper/internal/cipher"
	"github.com/joho/godotenv"
)

const (
	keyEncryption = "ENCRYPTION_KEY"
	keyJWT        = "JWT_SECRET_KEY"
)

func main() {
	out := flag.String("out", "", "write to this .env file instead of stdout")
	force := flag.Bool("force", false, "replace keys already present in -out")
	flag.Parse()

	env, err := generate()
	if err != nil {
		fmt.Fprintln(os.Stderr, "keygen:", err)
		os.Exit(1)
	}

	if *out == "" {
		text, err := godotenv.Marshal(env)
		if err != nil {
			fmt.Fprintln(os.Stderr, "keygen:", err)
			os.Exit(1)
		}
		fmt.Println(text)
		return
	}

	if err := writeEnv(*out, env, *force); err != nil {
		fmt.Fprintln(os.Stderr, "keygen:", err)
		os.Exit(1)
	}
	fmt.Printf("Keys written to %s\n", *out)
}

// generate returns fresh values for every managed key.
func generate() (map[string]string, error) {
	fernetKey, err := cipher.GenerateFernetKey()
	if err != nil {
		return nil, err
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	return map[string]string{
		keyEncryption: fernetKey,
		keyJWT:        base64.RawURLEncoding.EncodeToString(secret),
	}, nil
}

// writeEnv merges env into the file at path. Existing keys are kept unless
// force is set; rotating ENCRYPTION_KEY makes stored mottos unreadable.
func writeEnv(path string, env map[string]string, force bool) error {
	merged, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read %s: %w", path, err)
		}
		merged = map[string]string{}
	}
	for k, v := range env {
		if _, ok := merged[k]; ok && !force {
			continue
		}
		merged[k] = v
	}
	if err := godotenv.Write(merged, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return os.Chmod(path, 0o600)
}
