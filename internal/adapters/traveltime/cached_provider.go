package traveltime

import (
	"commute-eta-service/internal/platform/log"
	"commute-eta-service/internal/ports"
	"context"
	"fmt"
	"strings"
)

// CachedProvider consults a TravelTimeCache before delegating to the
// wrapped provider. Cache read failures fall through to the provider and
// write failures are logged; neither fails the lookup.
type CachedProvider struct {
	next  ports.TravelTimeProvider
	cache ports.TravelTimeCache
}

func NewCachedProvider(next ports.TravelTimeProvider, cache ports.TravelTimeCache) *CachedProvider {
	return &CachedProvider{next: next, cache: cache}
}

// CacheKey folds case and whitespace so equivalent addresses share entries.
func CacheKey(s string) string {
	return strings.ToLower(normalize(s))
}

func (c *CachedProvider) TravelTime(ctx context.Context, origin, destination string) (ports.TravelTime, error) {
	o, d := CacheKey(origin), CacheKey(destination)

	tt, ok, err := c.cache.Get(ctx, o, d)
	if err != nil {
		log.Warn("travel cache read failed", "origin", o, "destination", d, "err", err)
	} else if ok {
		return tt, nil
	}

	tt, err = c.next.TravelTime(ctx, origin, destination)
	if err != nil {
		return ports.TravelTime{}, fmt.Errorf("cached provider: %w", err)
	}

	if err := c.cache.Put(ctx, o, d, tt); err != nil {
		log.Warn("travel cache write failed", "origin", o, "destination", d, "err", err)
	}
	return tt, nil
}
