package expense

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/exxpenses/exxpenses/internal/auth"
	"github.com/exxpenses/exxpenses/internal/httputil"
	"github.com/exxpenses/exxpenses/internal/logging"
	"github.com/exxpenses/exxpenses/internal/plan"
	"github.com/exxpenses/exxpenses/internal/validate"
)

// Handler contains HTTP handlers for expense endpoints. All routes sit
// behind auth middleware and are nested under a category name.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type AddRequest struct {
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	Date        time.Time       `json:"date"`
}

type EditRequest struct {
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	Date        time.Time       `json:"date"`
}

type TotalsRequest struct {
	Categories []string   `json:"categories"`
	Since      *time.Time `json:"since,omitempty"`
	Until      *time.Time `json:"until,omitempty"`
}

type OkResponse struct {
	Ok bool `json:"ok"`
}

// Add records an expense.
// @Summary      Record an expense
// @Tags         expenses
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        name path string true "Category name"
// @Param        request body AddRequest true "Expense data"
// @Success      201 {object} Expense
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse "Unknown category"
// @Router       /categories/{name}/expenses [post]
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

	created, err := h.service.Add(r.Context(), userID, categoryName(r), req.Description, req.Price, req.Currency, req.Date)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	httputil.RespondJSON(w, created, http.StatusCreated)
}

// Edit updates an expense. Responds ok=false when the expense isn't in the
// caller's named category.
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	expenseID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondFieldError(w, "invalid expense id", "id", http.StatusBadRequest)
		return
	}

	var req EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	updated, err := h.service.Edit(r.Context(), userID, categoryName(r), expenseID, req.Description, req.Price, req.Currency, req.Date)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	httputil.RespondJSON(w, OkResponse{Ok: updated}, http.StatusOK)
}

// Delete removes an expense.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	expenseID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondFieldError(w, "invalid expense id", "id", http.StatusBadRequest)
		return
	}

	deleted, err := h.service.Delete(r.Context(), userID, categoryName(r), expenseID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	httputil.RespondJSON(w, OkResponse{Ok: deleted}, http.StatusOK)
}

// List returns a category's expenses, optionally bounded by since/until
// query parameters (RFC 3339).
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	since, until, ferr := parseWindow(r)
	if ferr != nil {
		httputil.RespondFieldError(w, ferr.Message, ferr.Field, http.StatusBadRequest)
		return
	}

	expenses, err := h.service.List(r.Context(), userID, categoryName(r), since, until)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	httputil.RespondJSON(w, expenses, http.StatusOK)
}

// TotalCost returns per-currency totals for one category.
func (h *Handler) TotalCost(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	since, until, ferr := parseWindow(r)
	if ferr != nil {
		httputil.RespondFieldError(w, ferr.Message, ferr.Field, http.StatusBadRequest)
		return
	}

	totals, err := h.service.TotalCost(r.Context(), userID, categoryName(r), since, until)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	httputil.RespondJSON(w, totals, http.StatusOK)
}

// TotalCostMultiple returns per-currency totals for several categories in
// one consistent snapshot.
func (h *Handler) TotalCostMultiple(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req TotalsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	var since, until time.Time
	if req.Since != nil {
		since = *req.Since
	}
	if req.Until != nil {
		until = *req.Until
	}

	results, err := h.service.TotalCostMultiple(r.Context(), userID, req.Categories, since, until)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	httputil.RespondJSON(w, results, http.StatusOK)
}

// categoryName pulls the category path segment; chi keeps it URL-encoded.
func categoryName(r *http.Request) string {
	name := chi.URLParam(r, "name")
	if decoded, err := url.PathUnescape(name); err == nil {
		return decoded
	}
	return name
}

func parseWindow(r *http.Request) (time.Time, time.Time, *validate.FieldError) {
	var since, until time.Time

	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return since, until, validate.NewFieldError("since", "invalid timestamp")
		}
		since = parsed
	}
	if raw := r.URL.Query().Get("until"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return since, until, validate.NewFieldError("until", "invalid timestamp")
		}
		until = parsed
	}

	return since, until, nil
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var ferr *validate.FieldError
	switch {
	case errors.As(err, &ferr):
		httputil.RespondFieldError(w, ferr.Message, ferr.Field, http.StatusBadRequest)
	case errors.Is(err, ErrCategoryNotFound):
		httputil.RespondFieldError(w, "no such category", "category", http.StatusNotFound)
	case errors.Is(err, ErrLimitReached):
		msg := fmt.Sprintf("free accounts are limited to %d expenses per category each month, consider switching to a premium account", plan.FreeMaxMonthlyExpenses)
		httputil.RespondErrorWithCode(w, msg, httputil.CodeLimitReached, http.StatusForbidden)
	default:
		logging.GetLoggerFromContext(r.Context()).Error("expense request failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
	}
}
