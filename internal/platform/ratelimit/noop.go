package ratelimit

import (
	"context"

	"github.com/lokmanch/lokmanch/internal/domain"
)

// Noop always allows; used when rate limiting is disabled.
type Noop struct{}

func NewNoop() Noop {
	return Noop{}
}

func (Noop) Allow(_ context.Context, _ string) error {
	return nil
}

var _ domain.RateLimiter = Noop{}
