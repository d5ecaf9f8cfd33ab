package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/my-app/apiserver/internal/services"
	"github.com/my-app/apiserver/internal/store"
	"github.com/my-app/apiserver/types"
)

// UserHandler provides HTTP handlers for user records.
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler constructs a handler with the provided service.
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, userService *services.UserService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewUserHandler(userService)

	r.Get("/", handler.ListUsers)
	r.Get("/{userID}", handler.GetUser)
	r.With(authMiddleware).Patch("/me", handler.UpdateMe)
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.userService.List(r.Context(), offset, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	resp := UserListResponse{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// UpdateMe updates the authenticated user's profile.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	name := user.Name
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		if err := validateName(name); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	avatar := user.Avatar
	if req.Avatar != nil {
		avatar = req.Avatar
	}

	updated, err := h.userService.UpdateProfile(r.Context(), user.ID, name, avatar)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// UserListResponse is a paginated list of users.
type UserListResponse struct {
	Items []types.User `json:"items"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
	Total int          `json:"total"`
}

// UpdateProfileRequest carries the mutable profile fields. Absent fields
// keep their current values.
type UpdateProfileRequest struct {
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
}

func parseUserID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "userID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid user id")
	}
	return id, nil
}
