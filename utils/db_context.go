package utils

import (
	"context"
	"time"
)

// Query deadline tiers. Indexed single-row lookups and short lists get the
// fast tier, the export paths that stream every row of a user's history get
// the slow one, everything else gets the default.
const (
	DefaultQueryTimeout = 30 * time.Second
	FastQueryTimeout    = 10 * time.Second
	SlowQueryTimeout    = 60 * time.Second
)

// GetQueryContext derives a deadline-bound context for a database call.
// A nil parent falls back to context.Background so cron and startup paths
// can use the same helper as request handlers.
func GetQueryContext(parentCtx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	return context.WithTimeout(parentCtx, timeout)
}

// GetDefaultQueryContext applies the default tier.
func GetDefaultQueryContext(parentCtx context.Context) (context.Context, context.CancelFunc) {
	return GetQueryContext(parentCtx, DefaultQueryTimeout)
}

// GetFastQueryContext applies the fast tier.
func GetFastQueryContext(parentCtx context.Context) (context.Context, context.CancelFunc) {
	return GetQueryContext(parentCtx, FastQueryTimeout)
}

// GetSlowQueryContext applies the slow tier.
func GetSlowQueryContext(parentCtx context.Context) (context.Context, context.CancelFunc) {
	return GetQueryContext(parentCtx, SlowQueryTimeout)
}
