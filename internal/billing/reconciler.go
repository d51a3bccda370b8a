package billing

import (
	"context"
	"errors"

	"github.com/exxpenses/exxpenses/internal/logging"
	"github.com/exxpenses/exxpenses/internal/plan"
)

// Reconciler applies provider subscription events to local account state.
// Events may arrive late, duplicated or out of order, so every write is
// absolute and replaying any event sequence settles on the same state.
type Reconciler struct {
	store  Store
	logger *logging.Logger
}

func NewReconciler(store Store, logger *logging.Logger) *Reconciler {
	return &Reconciler{store: store, logger: logger}
}

// Apply records that subscriptionID now grants tier to the user behind
// email.
//
// A stale event is one that references a different subscription than the one
// on record while not granting anything above the current plan. That shape
// only occurs when an old subscription's lifecycle events trail in after a
// newer one took over, so it is dropped. An upgrade is always applied even
// from an unknown subscription id.
func (rc *Reconciler) Apply(ctx context.Context, email string, tier plan.Plan, subscriptionID string) error {
	return rc.store.InTx(ctx, func(ctx context.Context, tx Store) error {
		account, err := tx.AccountByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// Account deleted locally; nothing to reconcile.
				rc.logger.Warn("billing event for unknown account", "email", email)
				return nil
			}
			return err
		}

		if account.SubscriptionID != "" && account.SubscriptionID != subscriptionID && tier <= account.Plan {
			rc.logger.Info("ignoring stale billing event",
				"email", email,
				"recorded_subscription", account.SubscriptionID,
				"event_subscription", subscriptionID,
			)
			return nil
		}

		return tx.SetSubscription(ctx, account.UserID, subscriptionID, tier)
	})
}
