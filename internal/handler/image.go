package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/accountd/accountd/internal/auth"
	"github.com/accountd/accountd/internal/handler/dto"
	"github.com/accountd/accountd/internal/model"
	"github.com/accountd/accountd/internal/service"
)

// maxImageSize caps profile image uploads at 8 MiB.
const maxImageSize = 8 << 20

// ImageHandler handles the profile image endpoints under /v1/user/self/pic.
type ImageHandler struct {
	accounts *service.AccountService
	images   *service.ImageService
	logger   *slog.Logger
}

// NewImageHandler creates a new ImageHandler.
func NewImageHandler(accounts *service.AccountService, images *service.ImageService, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{
		accounts: accounts,
		images:   images,
		logger:   logger,
	}
}

// Upload handles POST /v1/user/self/pic. The image travels as the
// "profilePic" part of a multipart form.
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	account, ok := h.requireAccount(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		h.logger.Warn("invalid multipart upload", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("profilePic")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageSize))
	if err != nil {
		h.logger.Error("failed to read uploaded image", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	image, err := h.images.Upload(r.Context(), account.ID, header.Filename, data)
	if err != nil {
		h.logger.Error("image upload failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToImageResponse(image))
}

// Get handles GET /v1/user/self/pic.
func (h *ImageHandler) Get(w http.ResponseWriter, r *http.Request) {
	account, ok := h.requireAccount(w, r)
	if !ok {
		return
	}

	image, err := h.images.Get(r.Context(), account.ID)
	if err != nil {
		if errors.Is(err, service.ErrImageNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.logger.Error("image lookup failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToImageResponse(image))
}

// Delete handles DELETE /v1/user/self/pic.
func (h *ImageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	account, ok := h.requireAccount(w, r)
	if !ok {
		return
	}

	if err := h.images.Delete(r.Context(), account.ID); err != nil {
		if errors.Is(err, service.ErrImageNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.logger.Error("image delete failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// requireAccount resolves the authenticated caller to a stored account.
func (h *ImageHandler) requireAccount(w http.ResponseWriter, r *http.Request) (*model.Account, bool) {
	email := auth.IdentityFromContext(r.Context())
	if email == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return nil, false
	}

	account, err := h.accounts.FetchSelf(r.Context(), email)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return nil, false
		}
		h.logger.Error("account lookup failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return nil, false
	}

	return account, true
}
