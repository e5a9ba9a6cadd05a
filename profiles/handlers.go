// HTTP handlers for the profile endpoints.
package profiles

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/user/libris-go/apperror"
	"github.com/user/libris-go/auth"
	"github.com/user/libris-go/loans"
	"github.com/user/libris-go/storage"
)

// maxAvatarSize bounds avatar uploads.
const maxAvatarSize = 2 * 1024 * 1024 // 2MB

// ProfileHandlers provides HTTP handlers for profile management.
type ProfileHandlers struct {
	service *ProfileService
	loans   loans.Service
	blobs   storage.Store
}

// NewProfileHandlers creates new ProfileHandlers.
func NewProfileHandlers(service *ProfileService, loanService loans.Service, blobs storage.Store) *ProfileHandlers {
	return &ProfileHandlers{service: service, loans: loanService, blobs: blobs}
}

// HandleGetMe godoc
// @Summary Get the authenticated profile
// @Tags Profiles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} profiles.Profile
// @Failure 401 {object} apperror.ErrorResponse "Unauthorized"
// @Router /profiles/me [get]
func (h *ProfileHandlers) HandleGetMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.GetUserIDFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("authentication required", nil))
			return
		}
		profile, err := h.service.Get(r.Context(), userID)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, profile)
	}
}

// HandleUpdateMe godoc
// @Summary Update the authenticated profile
// @Description Updates the profile's name. Role and registration cannot be changed.
// @Tags Profiles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param profileBody body profiles.UpdateProfileRequest true "Fields to update"
// @Success 200 {object} profiles.Profile
// @Failure 400 {object} apperror.ErrorResponse "Invalid input"
// @Router /profiles/me [put]
func (h *ProfileHandlers) HandleUpdateMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.GetUserIDFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("authentication required", nil))
			return
		}

		var req UpdateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()

		profile, err := h.service.Update(r.Context(), userID, req)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, profile)
	}
}

// HandleUploadAvatar godoc
// @Summary Upload an avatar image
// @Tags Profiles
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param avatar formData file true "Avatar image"
// @Success 200 {object} profiles.Profile
// @Failure 400 {object} apperror.ErrorResponse "Missing or oversized file"
// @Router /profiles/me/avatar [post]
func (h *ProfileHandlers) HandleUploadAvatar() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.GetUserIDFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("authentication required", nil))
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxAvatarSize)
		file, header, err := r.FormFile("avatar")
		if err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("avatar file is required", err))
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("failed to read avatar file", err))
			return
		}

		ext := strings.ToLower(filepath.Ext(header.Filename))
		objectPath := "avatars/" + userID.String() + ext
		url, err := h.blobs.Put(r.Context(), objectPath, data)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		if err := h.service.SetAvatarURL(r.Context(), userID, url); err != nil {
			auth.WriteError(w, r, err)
			return
		}

		profile, err := h.service.Get(r.Context(), userID)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, profile)
	}
}

// HandleList godoc
// @Summary List profiles (librarian)
// @Description Lists the roster ordered by name, optionally filtered by a free-text search over name, email and registration.
// @Tags Profiles
// @Produce json
// @Security BearerAuth
// @Param search query string false "Substring match over name, email, registration"
// @Success 200 {array} profiles.Profile
// @Failure 403 {object} apperror.ErrorResponse "Not a librarian"
// @Router /profiles [get]
func (h *ProfileHandlers) HandleList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := ListQuery{Search: strings.TrimSpace(r.URL.Query().Get("search"))}
		result, err := h.service.List(r.Context(), q)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, result)
	}
}

// HandleListLoans godoc
// @Summary List a user's loan history (librarian)
// @Tags Profiles
// @Produce json
// @Security BearerAuth
// @Param id path string true "Profile id"
// @Success 200 {array} loans.Loan
// @Failure 403 {object} apperror.ErrorResponse "Not a librarian"
// @Failure 404 {object} apperror.ErrorResponse "Profile not found"
// @Router /profiles/{id}/loans [get]
func (h *ProfileHandlers) HandleListLoans() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("invalid id", err))
			return
		}

		// 404 for an unknown user rather than an empty history.
		if _, err := h.service.Get(r.Context(), id); err != nil {
			auth.WriteError(w, r, err)
			return
		}

		history, err := h.loans.List(r.Context(), loans.ListFilter{UserID: &id})
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, history)
	}
}
