package billing

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/exxpenses/exxpenses/internal/logging"
	"github.com/exxpenses/exxpenses/internal/plan"
)

// Stripe recommends bounding webhook bodies to 64KB.
const maxWebhookBody = 65536

// WebhookHandler receives provider events. The response status is the whole
// contract: 2xx acknowledges, 400 tells the provider the delivery itself is
// bad and must not be retried, 5xx asks for a retry.
type WebhookHandler struct {
	signingSecret string
	reconciler    *Reconciler
	gateway       PaymentGateway
	logger        *logging.Logger
}

func NewWebhookHandler(signingSecret string, reconciler *Reconciler, gateway PaymentGateway, logger *logging.Logger) *WebhookHandler {
	return &WebhookHandler{
		signingSecret: signingSecret,
		reconciler:    reconciler,
		gateway:       gateway,
		logger:        logger,
	}
}

// Handle verifies the event signature and dispatches by type. Unrecognized
// event types are acknowledged without action so the endpoint can be
// subscribed broadly.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err.Error())
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.signingSecret)
	if err != nil {
		h.logger.Warn("webhook signature verification failed", "error", err.Error())
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case stripe.EventTypeCustomerSubscriptionCreated, stripe.EventTypeCustomerSubscriptionUpdated:
		err = h.handleSubscriptionChange(r.Context(), event)
	case stripe.EventTypeCustomerSubscriptionDeleted:
		err = h.handleSubscriptionDeleted(r.Context(), event)
	case stripe.EventTypeInvoiceUpcoming:
		h.logger.Info("renewal invoice upcoming", "event_id", event.ID)
	default:
		h.logger.Debug("ignoring webhook event", "type", string(event.Type))
	}

	if err != nil {
		h.logger.Error("webhook processing failed", "type", string(event.Type), "event_id", event.ID, "error", err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// handleSubscriptionChange applies the tier the subscription's price grants
// while it is paid up (active or trialing). Every other status moves the
// account to free; the reconciler's guard keeps stale events for replaced
// subscriptions from downgrading anyone.
func (h *WebhookHandler) handleSubscriptionChange(ctx context.Context, event stripe.Event) error {
	sub, err := parseSubscription(event)
	if err != nil {
		return err
	}
	if sub.Customer == nil {
		h.logger.Warn("subscription event without customer", "subscription_id", sub.ID)
		return nil
	}

	tier := plan.Free
	if sub.Status == stripe.SubscriptionStatusActive || sub.Status == stripe.SubscriptionStatusTrialing {
		priceID := ""
		if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
			priceID = sub.Items.Data[0].Price.ID
		}
		mapped, known := h.gateway.TierForPrice(priceID)
		if !known {
			h.logger.Warn("subscription references unknown price", "price_id", priceID)
			return nil
		}
		tier = mapped
	}

	email, err := h.gateway.CustomerEmail(ctx, sub.Customer.ID)
	if err != nil {
		return err
	}

	return h.reconciler.Apply(ctx, email, tier, sub.ID)
}

func (h *WebhookHandler) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	sub, err := parseSubscription(event)
	if err != nil {
		return err
	}
	if sub.Customer == nil {
		h.logger.Warn("subscription event without customer", "subscription_id", sub.ID)
		return nil
	}

	email, err := h.gateway.CustomerEmail(ctx, sub.Customer.ID)
	if err != nil {
		return err
	}

	return h.reconciler.Apply(ctx, email, plan.Free, sub.ID)
}

func parseSubscription(event stripe.Event) (*stripe.Subscription, error) {
	sub := new(stripe.Subscription)
	if err := json.Unmarshal(event.Data.Raw, sub); err != nil {
		return nil, err
	}
	return sub, nil
}
