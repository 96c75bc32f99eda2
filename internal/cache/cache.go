package cache

import (
	"context"
	"strings"
	"time"
)

// Cache is a process local key value store with per entry expiry
type Cache interface {
	// Get returns the value and whether the key was present and unexpired
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores value. A zero expiration uses the configured plan TTL.
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration)

	Delete(ctx context.Context, key string)

	// DeleteByPrefix drops every key under prefix, e.g. all plan entries
	DeleteByPrefix(ctx context.Context, prefix string)
}

const (
	PrefixPlan       = "plan:v1:"
	PrefixPlanByName = "plan_name:v1:"
)

// PlanKey is the cache key of a plan by id
func PlanKey(id string) string {
	return PrefixPlan + id
}

// PlanNameKey is the cache key of a plan by name. Plan names are unique
// regardless of case, so the key is too.
func PlanNameKey(name string) string {
	return PrefixPlanByName + strings.ToLower(strings.TrimSpace(name))
}
