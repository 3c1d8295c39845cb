// internal/domain/observation/store.go

package observation

import (
	"context"
	"errors"
)

// ErrSubscriptionLost reports a subscription that stopped delivering
// without being released
var ErrSubscriptionLost = errors.New("subscription lost")

// Store defines the bulk read side of the remote data store
type Store interface {
	// FetchUsers returns every user profile
	FetchUsers(ctx context.Context) ([]User, error)

	// FetchTrips returns every trip
	FetchTrips(ctx context.Context) ([]Trip, error)

	// FetchPoints returns every observation point
	FetchPoints(ctx context.Context) ([]Point, error)
}

// Subscription is a handle to a live insert subscription
type Subscription interface {
	// Unsubscribe releases the subscription. Calls after the first are no-ops.
	Unsubscribe() error

	// Done is closed once the subscription stops delivering, whether it
	// was released or its underlying channel was lost
	Done() <-chan struct{}
}

// Subscriber defines the push side of the remote data store
type Subscriber interface {
	// Subscribe delivers insert notifications for kind to onInsert until
	// the returned subscription is released. Delivery is at-least-once.
	Subscribe(ctx context.Context, kind Kind, onInsert func(Event)) (Subscription, error)
}
