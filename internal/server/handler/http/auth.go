// Package http provides HTTP handlers for registration, login, the user
// profile and motto uploads.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/mottokeeper/internal/common"
	"github.com/atinyakov/mottokeeper/internal/models"
	"github.com/atinyakov/mottokeeper/internal/service"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// AuthService defines the interface for authentication operations
// required by the HTTP handlers.
type AuthService interface {
	// Register creates a user and returns it with an access token.
	Register(ctx context.Context, username, password string) (*models.User, string, error)
	// Login checks credentials and returns an access token.
	Login(ctx context.Context, username, password string) (string, error)
}

// AuthHandler handles HTTP requests for user registration and login.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
	Logger      *zap.Logger
}

// CredentialsRequest represents the JSON payload for registration and login.
type CredentialsRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required"`
}

// RegisterResponse is returned on successful registration.
type RegisterResponse struct {
	Message string         `json:"message"`
	Token   string         `json:"token"`
	User    RegisteredUser `json:"user"`
}

// RegisteredUser is the public part of a freshly created user.
type RegisteredUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// TokenResponse is returned on successful login.
type TokenResponse struct {
	Token string `json:"token"`
}

// Register handles user registration requests.
// It expects a JSON body with non-empty "username" and "password" fields
// and answers 201 with an access token and the created user.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	user, token, err := h.AuthService.Register(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, common.ErrAlreadyExists):
		common.WriteMessage(w, http.StatusBadRequest, "User already exists")
		return
	case errors.Is(err, service.ErrPasswordTooLong):
		common.WriteMessage(w, http.StatusBadRequest, "Password is too long")
		return
	case err != nil:
		h.Logger.Error("register failed", zap.String("username", req.Username), zap.Error(err))
		common.WriteMessage(w, http.StatusInternalServerError, "internal error")
		return
	}

	common.WriteJSON(w, http.StatusCreated, RegisterResponse{
		Message: "User registered successfully",
		Token:   token,
		User:    RegisteredUser{ID: user.ID, Username: user.Username},
	})
}

// Login handles password login requests and answers with an access token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	token, err := h.AuthService.Login(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, common.ErrNotFound):
		common.WriteMessage(w, http.StatusUnauthorized, "User does not exist")
		return
	case errors.Is(err, common.ErrInvalidCredentials):
		common.WriteMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	case err != nil:
		h.Logger.Error("login failed", zap.String("username", req.Username), zap.Error(err))
		common.WriteMessage(w, http.StatusInternalServerError, "internal error")
		return
	}

	common.WriteJSON(w, http.StatusOK, TokenResponse{Token: token})
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (CredentialsRequest, bool) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteMessage(w, http.StatusBadRequest, "Username and password are required")
		return req, false
	}
	if err := validate.Struct(req); err != nil {
		common.WriteMessage(w, http.StatusBadRequest, validationMessage(err))
		return req, false
	}
	return req, true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == "max" {
				return fe.Field() + " is too long"
			}
		}
	}
	return "Username and password are required"
}
