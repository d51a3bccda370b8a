package billing

import (
	"errors"
	"net/http"

	"github.com/exxpenses/exxpenses/internal/auth"
	"github.com/exxpenses/exxpenses/internal/httputil"
	"github.com/exxpenses/exxpenses/internal/logging"
)

// Handler contains HTTP handlers for the purchase-side billing endpoints.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type OkResponse struct {
	Ok bool `json:"ok"`
}

// Subscribe opens a premium subscription.
// @Summary      Start a premium subscription
// @Tags         billing
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} SubscriptionHandle
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /billing/subscribe [post]
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	handle, err := h.service.Subscribe(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	httputil.RespondJSON(w, handle, http.StatusOK)
}

// Unsubscribe schedules cancellation at the end of the paid period.
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	if err := h.service.Unsubscribe(r.Context(), userID); err != nil {
		h.respondError(w, r, err)
		return
	}

	httputil.RespondJSON(w, OkResponse{Ok: true}, http.StatusOK)
}

// Info returns the caller's subscription period and pricing.
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	info, err := h.service.Info(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNoSubscription) {
			h.respondError(w, r, err)
			return
		}
		// Provider hiccups degrade to an empty payload; the account page
		// renders without the billing box instead of erroring.
		logging.GetLoggerFromContext(r.Context()).Warn("subscription info unavailable", "error", err.Error())
		httputil.RespondJSON(w, struct{}{}, http.StatusOK)
		return
	}

	httputil.RespondJSON(w, info, http.StatusOK)
}

// Pricing returns the premium plan's price. Public; the pricing page shows
// it before signup.
func (h *Handler) Pricing(w http.ResponseWriter, r *http.Request) {
	pricing, err := h.service.Pricing(r.Context())
	if err != nil {
		logging.GetLoggerFromContext(r.Context()).Warn("premium pricing unavailable", "error", err.Error())
		httputil.RespondJSON(w, struct{}{}, http.StatusOK)
		return
	}

	httputil.RespondJSON(w, pricing, http.StatusOK)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
	case errors.Is(err, ErrNoSubscription):
		httputil.RespondErrorWithCode(w, "no subscription on record", httputil.CodeNotFound, http.StatusNotFound)
	default:
		logging.GetLoggerFromContext(r.Context()).Error("billing request failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
	}
}
