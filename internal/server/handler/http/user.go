package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/atinyakov/mottokeeper/internal/common"
	"github.com/atinyakov/mottokeeper/internal/middleware"
	"github.com/atinyakov/mottokeeper/internal/models"
	"go.uber.org/zap"
)

// ProfileService loads the profile of an authenticated user.
type ProfileService interface {
	Get(ctx context.Context, username string) (*models.Profile, error)
}

// UserHandler serves the authenticated user's profile.
type UserHandler struct {
	ProfileService ProfileService
	Logger         *zap.Logger
}

// Get returns id, username and the decrypted motto (null before the first upload).
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	username := middleware.GetUsernameFromContext(r.Context())

	profile, err := h.ProfileService.Get(r.Context(), username)
	if errors.Is(err, common.ErrNotFound) {
		common.WriteMessage(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.Logger.Error("load profile failed", zap.String("username", username), zap.Error(err))
		common.WriteMessage(w, http.StatusInternalServerError, "internal error")
		return
	}

	common.WriteJSON(w, http.StatusOK, profile)
}
