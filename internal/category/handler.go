package category

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/exxpenses/exxpenses/internal/auth"
	"github.com/exxpenses/exxpenses/internal/httputil"
	"github.com/exxpenses/exxpenses/internal/logging"
	"github.com/exxpenses/exxpenses/internal/plan"
	"github.com/exxpenses/exxpenses/internal/validate"
)

// Handler contains HTTP handlers for category endpoints. All routes sit
// behind auth middleware.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type AddRequest struct {
	Name            string `json:"name"`
	DefaultCurrency string `json:"default_currency"`
}

type EditRequest struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	DefaultCurrency string `json:"default_currency"`
}

type OkResponse struct {
	Ok bool `json:"ok"`
}

// Add creates a category.
// @Summary      Create a category
// @Tags         categories
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body AddRequest true "Category data"
// @Success      201 {object} Category
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      409 {object} httputil.ErrorResponse "Name already in use"
// @Router       /categories [post]
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	created, err := h.service.Add(r.Context(), userID, req.Name, req.DefaultCurrency)
	if err != nil {
		h.respondMutationError(w, r, err)
		return
	}

	httputil.RespondJSON(w, created, http.StatusCreated)
}

// Edit updates a category by id. Responds ok=false when the category isn't
// the caller's.
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}
	if req.ID <= 0 {
		httputil.RespondFieldError(w, "invalid category id", "id", http.StatusBadRequest)
		return
	}

	updated, err := h.service.Edit(r.Context(), userID, req.ID, req.Name, req.DefaultCurrency)
	if err != nil {
		h.respondMutationError(w, r, err)
		return
	}

	httputil.RespondJSON(w, OkResponse{Ok: updated}, http.StatusOK)
}

// Delete removes a category by name.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	deleted, err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "name"))
	if err != nil {
		logging.GetLoggerFromContext(r.Context()).Error("category delete failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, OkResponse{Ok: deleted}, http.StatusOK)
}

// List returns the caller's categories.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	categories, err := h.service.List(r.Context(), userID)
	if err != nil {
		logging.GetLoggerFromContext(r.Context()).Error("category list failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, categories, http.StatusOK)
}

// Get returns one category by name.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	found, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondFieldError(w, "no such category", "name", http.StatusNotFound)
			return
		}
		logging.GetLoggerFromContext(r.Context()).Error("category get failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, found, http.StatusOK)
}

func (h *Handler) respondMutationError(w http.ResponseWriter, r *http.Request, err error) {
	var ferr *validate.FieldError
	switch {
	case errors.As(err, &ferr):
		httputil.RespondFieldError(w, ferr.Message, ferr.Field, http.StatusBadRequest)
	case errors.Is(err, ErrDuplicateName):
		httputil.RespondFieldError(w, "this category already exists", "name", http.StatusConflict)
	case errors.Is(err, ErrLimitReached):
		msg := fmt.Sprintf("free accounts are limited to %d categories, consider switching to a premium account", plan.FreeMaxCategories)
		httputil.RespondErrorWithCode(w, msg, httputil.CodeLimitReached, http.StatusForbidden)
	case errors.Is(err, ErrOwnerNotFound):
		// Account deleted from another session
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
	default:
		logging.GetLoggerFromContext(r.Context()).Error("category mutation failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
	}
}
