package testutil

import (
	"context"
	"time"

	"github.com/flexprice/subscriptions/internal/domain/subscription"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/types"
	"github.com/samber/lo"
)

var _ subscription.Repository = (*InMemorySubscriptionStore)(nil)

// InMemorySubscriptionStore implements subscription.Repository. Like the
// partial unique index in Postgres it refuses a second ACTIVE subscription
// for a user.
type InMemorySubscriptionStore struct {
	*InMemoryStore[*subscription.Subscription]
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		InMemoryStore: NewInMemoryStore[*subscription.Subscription](),
	}
}

func copySubscription(sub *subscription.Subscription) *subscription.Subscription {
	if sub == nil {
		return nil
	}
	c := *sub
	if sub.NextBillingDate != nil {
		c.NextBillingDate = lo.ToPtr(*sub.NextBillingDate)
	}
	return &c
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub.IsActive() {
		for _, existing := range s.items {
			if existing.UserID == sub.UserID && existing.IsActive() {
				return ierr.NewError("user already has an active subscription").
					WithHint("User already has an active subscription").
					Mark(ierr.ErrConflict)
			}
		}
	}
	return s.create(ctx, sub.ID, copySubscription(sub))
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	sub, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Subscription %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return copySubscription(sub), nil
}

func (s *InMemorySubscriptionStore) GetForUser(ctx context.Context, id, userID string) (*subscription.Subscription, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, ierr.NewError("subscription not found").
			WithHintf("Subscription %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return sub, nil
}

func (s *InMemorySubscriptionStore) GetActiveForUser(ctx context.Context, userID string) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.items {
		if sub.UserID == userID && sub.IsActive() {
			return copySubscription(sub), nil
		}
	}
	return nil, nil
}

// subscriptionFilterFn mirrors the WHERE clause built by the SQL repository
func subscriptionFilterFn(_ context.Context, sub *subscription.Subscription, filter interface{}) bool {
	f, ok := filter.(*types.SubscriptionFilter)
	if !ok || f == nil {
		return true
	}

	if f.UserID != "" && sub.UserID != f.UserID {
		return false
	}
	if f.PlanID != "" && sub.PlanID != f.PlanID {
		return false
	}
	if len(f.SubscriptionStatus) > 0 && !lo.Contains(f.SubscriptionStatus, sub.Status) {
		return false
	}
	if f.NextBillingDateFrom != nil || f.NextBillingDateBefore != nil {
		if sub.NextBillingDate == nil {
			return false
		}
		if f.NextBillingDateFrom != nil && sub.NextBillingDate.Before(*f.NextBillingDateFrom) {
			return false
		}
		if f.NextBillingDateBefore != nil && !sub.NextBillingDate.Before(*f.NextBillingDateBefore) {
			return false
		}
	}
	return true
}

func (s *InMemorySubscriptionStore) List(ctx context.Context, filter *types.SubscriptionFilter) ([]*subscription.Subscription, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	subs, err := s.InMemoryStore.List(ctx, filter, subscriptionFilterFn,
		func(i, j *subscription.Subscription) bool {
			if i.CreatedAt.Equal(j.CreatedAt) {
				return i.ID < j.ID
			}
			return i.CreatedAt.Before(j.CreatedAt)
		},
	)
	if err != nil {
		return nil, err
	}
	if filter != nil && filter.Limit > 0 && len(subs) > filter.Limit {
		subs = subs[:filter.Limit]
	}
	for i := range subs {
		subs[i] = copySubscription(subs[i])
	}
	return subs, nil
}

func (s *InMemorySubscriptionStore) Cancel(ctx context.Context, id, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.items[id]
	if !ok || sub.UserID != userID || !sub.IsActive() {
		return false, nil
	}

	updated := copySubscription(sub)
	updated.MarkCancelled(time.Now().UTC())
	return true, s.update(ctx, id, updated)
}

func (s *InMemorySubscriptionStore) MarkExpired(ctx context.Context, cutoff time.Time) ([]*subscription.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expired := make([]*subscription.Subscription, 0)
	now := time.Now().UTC()
	for id, sub := range s.items {
		if !sub.IsActive() || sub.NextBillingDate == nil || !sub.NextBillingDate.Before(cutoff) {
			continue
		}

		updated := copySubscription(sub)
		updated.Status = types.SubscriptionStatusInactive
		updated.UpdatedAt = now
		if err := s.update(ctx, id, updated); err != nil {
			return nil, err
		}
		expired = append(expired, copySubscription(updated))
	}
	return expired, nil
}

func (s *InMemorySubscriptionStore) AdvanceBillingDate(ctx context.Context, id string, observed, next time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.items[id]
	if !ok || !sub.IsActive() || sub.NextBillingDate == nil || !sub.NextBillingDate.Equal(observed) {
		return false, nil
	}

	updated := copySubscription(sub)
	updated.NextBillingDate = lo.ToPtr(next)
	updated.UpdatedAt = time.Now().UTC()
	return true, s.update(ctx, id, updated)
}
