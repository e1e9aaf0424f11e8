// Package gateway is the ads service's view of the content data backend:
// ad definitions, policy settings, delivery counters and subscription status.
package gateway

import (
	"context"

	"github.com/example/vod-platform/services/ads/internal/inventory"
)

// Counter names accepted by IncrementAdCounter.
const (
	CounterImpressions = "impressions"
	CounterClicks      = "clicks"
)

// Gateway is the full backend contract. The inventory cache consumes only
// the inventory.Source subset.
type Gateway interface {
	inventory.Source
	// IncrementAdCounter bumps a delivery counter. Best-effort: callers
	// log failures and move on.
	IncrementAdCounter(ctx context.Context, adID, counter string) error
	// ActiveSubscription reports whether the user has an active premium
	// subscription.
	ActiveSubscription(ctx context.Context, userID string) (bool, error)
}
