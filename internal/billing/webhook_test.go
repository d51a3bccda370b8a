package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v82"

	"github.com/exxpenses/exxpenses/internal/logging"
	"github.com/exxpenses/exxpenses/internal/plan"
)

const testSigningSecret = "whsec_test_secret"

// brokenStore fails every operation, standing in for a database outage.
type brokenStore struct{}

var errStoreDown = errors.New("connection refused")

func (brokenStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return errStoreDown
}

func (brokenStore) AccountByUserID(ctx context.Context, userID uuid.UUID) (*Account, error) {
	return nil, errStoreDown
}

func (brokenStore) AccountByEmail(ctx context.Context, email string) (*Account, error) {
	return nil, errStoreDown
}

func (brokenStore) EnsureCustomer(ctx context.Context, userID uuid.UUID, customerID string) error {
	return errStoreDown
}

func (brokenStore) SetSubscription(ctx context.Context, userID uuid.UUID, subscriptionID string, p plan.Plan) error {
	return errStoreDown
}

func newWebhookHandler(store Store, gateway PaymentGateway) *WebhookHandler {
	logger := logging.NewLogger(true)
	return NewWebhookHandler(testSigningSecret, NewReconciler(store, logger), gateway, logger)
}

func signPayload(payload string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(testSigningSecret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

// subscriptionEvent builds a raw event payload. customerField is either a
// `"customer": "cus_1",` fragment or empty to leave the customer out.
func subscriptionEvent(eventType, status, customerField string) string {
	return fmt.Sprintf(`{
		"id": "evt_1",
		"api_version": %q,
		"type": %q,
		"data": {"object": {
			"id": "sub_1",
			"status": %q,
			%s
			"items": {"data": [{"price": {"id": "price_premium"}}]}
		}}
	}`, stripe.APIVersion, eventType, status, customerField)
}

func postWebhook(handler *WebhookHandler, payload, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(payload))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rec := httptest.NewRecorder()
	handler.Handle(rec, req)
	return rec
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	store := newFakeStore()
	store.accounts["a@b.com"] = &Account{UserID: uuid.New(), Email: "a@b.com", Plan: plan.Free}
	handler := newWebhookHandler(store, &fakeGateway{premiumPriceID: "price_premium"})

	payload := subscriptionEvent("customer.subscription.updated", "active", `"customer": "cus_1",`)

	tests := []struct {
		name      string
		signature string
	}{
		{"missing header", ""},
		{"garbage signature", "t=1,v1=deadbeef"},
		{"wrong secret", "t=1,v1=" + hex.EncodeToString(make([]byte, 32))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postWebhook(handler, payload, tt.signature)
			assert.Equal(t, http.StatusBadRequest, rec.Code, "bad deliveries must be rejected permanently")
			assert.Zero(t, store.writes, "unverified events must not touch storage")
		})
	}
}

func TestWebhookInternalFailureIsRetryable(t *testing.T) {
	handler := newWebhookHandler(brokenStore{}, &fakeGateway{premiumPriceID: "price_premium"})

	payload := subscriptionEvent("customer.subscription.updated", "active", `"customer": "cus_1",`)
	rec := postWebhook(handler, payload, signPayload(payload))

	assert.Equal(t, http.StatusInternalServerError, rec.Code, "storage failures must ask the provider to retry")
}

func TestWebhookActiveSubscriptionGrantsPremium(t *testing.T) {
	store := newFakeStore()
	store.accounts["a@b.com"] = &Account{UserID: uuid.New(), Email: "a@b.com", Plan: plan.Free}
	handler := newWebhookHandler(store, &fakeGateway{premiumPriceID: "price_premium"})

	payload := subscriptionEvent("customer.subscription.updated", "active", `"customer": "cus_1",`)
	rec := postWebhook(handler, payload, signPayload(payload))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, plan.Premium, store.accounts["a@b.com"].Plan)
	assert.Equal(t, "sub_1", store.accounts["a@b.com"].SubscriptionID)
}

func TestWebhookNonSettledStatusMovesToFree(t *testing.T) {
	// Any status other than active/trialing means payment no longer settles
	// the subscription; the account drops to free immediately rather than
	// riding out a grace window on premium.
	statuses := []string{"past_due", "unpaid", "canceled", "incomplete", "incomplete_expired", "paused"}

	for _, status := range statuses {
		t.Run(status, func(t *testing.T) {
			store := newFakeStore()
			store.accounts["a@b.com"] = &Account{
				UserID:         uuid.New(),
				Email:          "a@b.com",
				Plan:           plan.Premium,
				SubscriptionID: "sub_1",
			}
			handler := newWebhookHandler(store, &fakeGateway{premiumPriceID: "price_premium"})

			payload := subscriptionEvent("customer.subscription.updated", status, `"customer": "cus_1",`)
			rec := postWebhook(handler, payload, signPayload(payload))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, plan.Free, store.accounts["a@b.com"].Plan)
		})
	}
}

func TestWebhookDeletedSubscriptionMovesToFree(t *testing.T) {
	store := newFakeStore()
	store.accounts["a@b.com"] = &Account{
		UserID:         uuid.New(),
		Email:          "a@b.com",
		Plan:           plan.Premium,
		SubscriptionID: "sub_1",
	}
	handler := newWebhookHandler(store, &fakeGateway{premiumPriceID: "price_premium"})

	payload := subscriptionEvent("customer.subscription.deleted", "canceled", `"customer": "cus_1",`)
	rec := postWebhook(handler, payload, signPayload(payload))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, plan.Free, store.accounts["a@b.com"].Plan)
}

func TestWebhookMissingCustomerIsAcknowledged(t *testing.T) {
	store := newFakeStore()
	store.accounts["a@b.com"] = &Account{UserID: uuid.New(), Email: "a@b.com", Plan: plan.Free}
	handler := newWebhookHandler(store, &fakeGateway{premiumPriceID: "price_premium"})

	// A signed but malformed delivery can never become processable; a 2xx
	// stops the provider from retrying it forever.
	for _, eventType := range []string{"customer.subscription.updated", "customer.subscription.deleted"} {
		payload := subscriptionEvent(eventType, "active", "")
		rec := postWebhook(handler, payload, signPayload(payload))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Zero(t, store.writes)
	}
}

func TestWebhookIgnoresUnrelatedEvents(t *testing.T) {
	store := newFakeStore()
	handler := newWebhookHandler(store, &fakeGateway{premiumPriceID: "price_premium"})

	payload := fmt.Sprintf(`{
		"id": "evt_1",
		"api_version": %q,
		"type": "charge.succeeded",
		"data": {"object": {"id": "ch_1", "amount": 499}}
	}`, stripe.APIVersion)
	rec := postWebhook(handler, payload, signPayload(payload))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, store.writes)
}
