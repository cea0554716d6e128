// Package fallback tries interchangeable providers in order until one succeeds.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Named is implemented by every provider that can sit in a chain.
type Named interface {
	Name() string
}

// Chain holds providers in priority order.
type Chain[P Named] struct {
	providers []P
}

func NewChain[P Named](providers ...P) *Chain[P] {
	return &Chain[P]{providers: providers}
}

func (c *Chain[P]) Len() int { return len(c.providers) }

// Run calls fn for each provider in order and returns the first success along
// with the name of the provider that produced it.
func Run[P Named, T any](ctx context.Context, c *Chain[P], fn func(ctx context.Context, p P) (T, error)) (T, string, error) {
	var zero T
	if len(c.providers) == 0 {
		return zero, "", errors.New("no providers configured")
	}

	var errs []error
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}
		v, err := fn(ctx, p)
		if err == nil {
			return v, p.Name(), nil
		}
		slog.Warn("provider failed, trying next", "provider", p.Name(), "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}
	return zero, "", fmt.Errorf("all providers failed: %w", errors.Join(errs...))
}
