package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/price"
	"github.com/stripe/stripe-go/v82/subscription"

	"github.com/exxpenses/exxpenses/internal/plan"
)

// SubscriptionHandle is what a freshly created subscription hands back to
// the client: the id and the payment intent's client secret for confirming
// the first invoice in the browser.
type SubscriptionHandle struct {
	ID           string `json:"subscription_id"`
	ClientSecret string `json:"client_secret"`
}

// SubscriptionInfo is the provider-side view of an active subscription.
type SubscriptionInfo struct {
	Since             time.Time `json:"since"`
	Until             time.Time `json:"until"`
	CancelAtPeriodEnd bool      `json:"cancel_at_period_end"`
	Pricing           Pricing   `json:"pricing"`
}

// Pricing is an amount in the currency's minor unit, the way the provider
// reports it.
type Pricing struct {
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

// PaymentGateway is the payment-provider capability billing needs. The
// concrete implementation talks to Stripe; tests swap in a fake.
type PaymentGateway interface {
	CreateCustomer(ctx context.Context, email, name string) (string, error)
	CreateSubscription(ctx context.Context, customerID string) (*SubscriptionHandle, error)
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error
	SubscriptionInfo(ctx context.Context, subscriptionID string) (*SubscriptionInfo, error)
	CustomerEmail(ctx context.Context, customerID string) (string, error)
	PremiumPricing(ctx context.Context) (*Pricing, error)
	TierForPrice(priceID string) (plan.Plan, bool)
}

// StripeGateway implements PaymentGateway against the Stripe API.
type StripeGateway struct {
	priceMap       map[string]int
	premiumPriceID string
}

// NewStripeGateway configures the global Stripe client. priceMap maps price
// ids to plan ordinals; the price mapped to the premium ordinal is the one
// new subscriptions are created with.
func NewStripeGateway(secretKey string, priceMap map[string]int) (*StripeGateway, error) {
	stripe.Key = secretKey

	premiumPriceID := ""
	for id, tier := range priceMap {
		if plan.Plan(tier) == plan.Premium {
			premiumPriceID = id
		}
	}
	if premiumPriceID == "" {
		return nil, fmt.Errorf("no price is mapped to the premium plan")
	}

	return &StripeGateway{priceMap: priceMap, premiumPriceID: premiumPriceID}, nil
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.Context = ctx

	created, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create customer: %w", err)
	}

	return created.ID, nil
}

// CreateSubscription opens an incomplete subscription on the premium price.
// The first invoice isn't paid yet; the caller confirms it client-side with
// the returned secret, and a webhook flips the plan once payment settles.
func (g *StripeGateway) CreateSubscription(ctx context.Context, customerID string) (*SubscriptionHandle, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(g.premiumPriceID)},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
		PaymentSettings: &stripe.SubscriptionPaymentSettingsParams{
			SaveDefaultPaymentMethod: stripe.String("on_subscription"),
		},
	}
	params.Context = ctx
	params.AddExpand("latest_invoice.confirmation_secret")

	created, err := subscription.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	handle := &SubscriptionHandle{ID: created.ID}
	if created.LatestInvoice != nil && created.LatestInvoice.ConfirmationSecret != nil {
		handle.ClientSecret = created.LatestInvoice.ConfirmationSecret.ClientSecret
	}
	return handle, nil
}

// CancelAtPeriodEnd schedules cancellation; the plan stays premium until the
// paid period runs out and the deletion webhook arrives.
func (g *StripeGateway) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	params.Context = ctx

	if _, err := subscription.Update(subscriptionID, params); err != nil {
		return fmt.Errorf("failed to cancel subscription: %w", err)
	}

	return nil
}

func (g *StripeGateway) SubscriptionInfo(ctx context.Context, subscriptionID string) (*SubscriptionInfo, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := subscription.Get(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return nil, fmt.Errorf("subscription %s has no items", subscriptionID)
	}

	// Billing periods live on the subscription item, not the subscription.
	item := sub.Items.Data[0]
	info := &SubscriptionInfo{
		Since:             time.Unix(item.CurrentPeriodStart, 0).UTC(),
		Until:             time.Unix(item.CurrentPeriodEnd, 0).UTC(),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if item.Price != nil {
		info.Pricing = Pricing{AmountCents: item.Price.UnitAmount, Currency: string(item.Price.Currency)}
	}
	return info, nil
}

func (g *StripeGateway) CustomerEmail(ctx context.Context, customerID string) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx

	found, err := customer.Get(customerID, params)
	if err != nil {
		return "", fmt.Errorf("failed to get customer: %w", err)
	}

	return found.Email, nil
}

func (g *StripeGateway) PremiumPricing(ctx context.Context) (*Pricing, error) {
	params := &stripe.PriceParams{}
	params.Context = ctx

	found, err := price.Get(g.premiumPriceID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get price: %w", err)
	}

	return &Pricing{AmountCents: found.UnitAmount, Currency: string(found.Currency)}, nil
}

// TierForPrice maps a provider price id to a plan. Unknown prices report
// false so webhooks for unrelated products get ignored.
func (g *StripeGateway) TierForPrice(priceID string) (plan.Plan, bool) {
	tier, ok := g.priceMap[priceID]
	if !ok {
		return plan.Free, false
	}
	return plan.Plan(tier), true
}
