package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/accountd/accountd/internal/auth"
	"github.com/accountd/accountd/internal/handler/dto"
	"github.com/accountd/accountd/internal/middleware"
	"github.com/accountd/accountd/internal/service"
	"github.com/accountd/accountd/internal/validation"
)

// AccountHandler handles HTTP requests for account operations.
type AccountHandler struct {
	svc    *service.AccountService
	logger *slog.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(svc *service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		svc:    svc,
		logger: logger,
	}
}

// Create handles POST /v1/user.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	if rejectQueryParams(w, r, h.logger) {
		return
	}

	body, fields, ok := decodeFieldMap(w, r, h.logger)
	if !ok {
		return
	}

	if err := validation.CheckCreateFields(fields); err != nil {
		h.logger.Warn("registration payload rejected",
			slog.String("reason", err.Error()),
			slog.String("request_id", middleware.GetRequestID(r.Context())),
		)
		h.writeError(w, http.StatusBadRequest, "request contains invalid fields")
		return
	}

	var req dto.CreateAccountRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := h.svc.Register(r.Context(), service.RegisterInput{
		Email:     req.EmailAddress,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToAccountResponse(account))
}

// GetSelf handles GET /v1/user/self.
func (h *AccountHandler) GetSelf(w http.ResponseWriter, r *http.Request) {
	if rejectQueryParams(w, r, h.logger) {
		return
	}

	email := auth.IdentityFromContext(r.Context())
	if email == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	account, err := h.svc.FetchSelf(r.Context(), email)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToAccountResponse(account))
}

// UpdateSelf handles PUT /v1/user/self.
func (h *AccountHandler) UpdateSelf(w http.ResponseWriter, r *http.Request) {
	if rejectQueryParams(w, r, h.logger) {
		return
	}

	email := auth.IdentityFromContext(r.Context())
	if email == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	body, fields, ok := decodeFieldMap(w, r, h.logger)
	if !ok {
		return
	}

	if err := validation.CheckUpdateFields(fields); err != nil {
		h.logger.Warn("update payload rejected",
			slog.String("reason", err.Error()),
			slog.String("request_id", middleware.GetRequestID(r.Context())),
		)
		h.writeError(w, http.StatusBadRequest, "request contains invalid fields")
		return
	}

	var req dto.UpdateAccountRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	_, err := h.svc.ApplyUpdate(r.Context(), email, service.UpdateInput{
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleServiceError maps service errors to HTTP status codes. Internal
// detail stays in the logs, never on the wire.
func (h *AccountHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrAccountNotFound):
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, service.ErrEmailExists),
		errors.Is(err, validation.ErrInvalidEmail),
		errors.Is(err, validation.ErrMissingPassword):
		h.writeError(w, http.StatusBadRequest, "invalid registration request")
	default:
		h.logger.Error("account operation failed", slog.String("error", err.Error()))
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *AccountHandler) writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// rejectQueryParams enforces the "no query string" rule shared by the
// account endpoints. Returns true when the request was rejected.
func rejectQueryParams(w http.ResponseWriter, r *http.Request, logger *slog.Logger) bool {
	if len(r.URL.Query()) == 0 {
		return false
	}
	logger.Warn("query parameters are not allowed on this endpoint",
		slog.String("path", r.URL.Path),
		slog.String("query", r.URL.RawQuery),
	)
	w.WriteHeader(http.StatusBadRequest)
	return true
}

// decodeFieldMap reads the request body and returns its raw bytes together
// with the set of JSON keys actually present in the wire payload. Presence
// has to be computed before decoding into a typed request, since an absent
// key and a zero value are indistinguishable afterwards.
func decodeFieldMap(w http.ResponseWriter, r *http.Request, logger *slog.Logger) ([]byte, []string, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Warn("failed to read request body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return nil, nil, false
	}

	raw := make(map[string]json.RawMessage)
	if len(body) > 0 {
		if err := json.Unmarshal(body, &raw); err != nil {
			logger.Warn("malformed JSON payload", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusBadRequest)
			return nil, nil, false
		}
	}

	fields := make([]string, 0, len(raw))
	for key := range raw {
		fields = append(fields, key)
	}

	return body, fields, true
}
