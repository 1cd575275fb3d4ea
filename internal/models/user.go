// Package models defines the core data structures for users and uploads.
package models

import "io"

// User represents an application user with credentials.
type User struct {
	// ID is the surrogate key assigned by the store.
	ID int64
	// Username is the login name chosen by the user.
	Username string
	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string
	// Motto holds the encrypted motto; nil until the first successful upload.
	Motto *string
}

// Profile is the user view returned by GET /user, with the motto decrypted.
type Profile struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	Motto    *string `json:"motto"`
}

// UploadRequest is constructed per upload call and discarded afterwards.
type UploadRequest struct {
	// Username is the authenticated owner of the upload.
	Username string
	// Filename is the name declared by the client for the file part.
	Filename string
	// Content streams the raw file bytes.
	Content io.Reader
}
