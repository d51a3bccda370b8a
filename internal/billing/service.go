package billing

import (
	"context"

	"github.com/google/uuid"
)

// Service drives the purchase-side billing flows. Plan changes never happen
// here; they only arrive through the webhook reconciler once the provider
// confirms payment.
type Service struct {
	store   Store
	gateway PaymentGateway
}

func NewService(store Store, gateway PaymentGateway) *Service {
	return &Service{store: store, gateway: gateway}
}

// Subscribe opens an incomplete premium subscription and returns the client
// secret the frontend needs to confirm the first payment. The provider
// customer is created lazily on first purchase.
func (s *Service) Subscribe(ctx context.Context, userID uuid.UUID) (*SubscriptionHandle, error) {
	account, err := s.store.AccountByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	customerID := account.CustomerID
	if customerID == "" {
		customerID, err = s.gateway.CreateCustomer(ctx, account.Email, account.Name)
		if err != nil {
			return nil, err
		}
		if err := s.store.EnsureCustomer(ctx, userID, customerID); err != nil {
			return nil, err
		}
	}

	return s.gateway.CreateSubscription(ctx, customerID)
}

// Unsubscribe schedules cancellation at the end of the paid period. The plan
// stays premium until the provider's deletion event lands.
func (s *Service) Unsubscribe(ctx context.Context, userID uuid.UUID) error {
	account, err := s.store.AccountByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if account.SubscriptionID == "" {
		return ErrNoSubscription
	}

	return s.gateway.CancelAtPeriodEnd(ctx, account.SubscriptionID)
}

// Info returns the provider's view of the user's recorded subscription.
func (s *Service) Info(ctx context.Context, userID uuid.UUID) (*SubscriptionInfo, error) {
	account, err := s.store.AccountByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if account.SubscriptionID == "" {
		return nil, ErrNoSubscription
	}

	return s.gateway.SubscriptionInfo(ctx, account.SubscriptionID)
}

// Pricing returns what the premium plan costs.
func (s *Service) Pricing(ctx context.Context) (*Pricing, error) {
	return s.gateway.PremiumPricing(ctx)
}
