package api

import (
	"bytes"
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"
	"time"

	"spacehub/internal/config"
	"spacehub/internal/domain"
	"spacehub/internal/events"
	"spacehub/internal/metrics"

	"github.com/rs/zerolog"
)

const listingScope = "spaces"

// captureWriter copies the response body while forwarding it to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	cw.buf.Write(b)
	return cw.ResponseWriter.Write(b)
}

// responseCache stores successful JSON listing responses in the cache store.
type responseCache struct {
	store  domain.CacheStore
	cfg    config.APICacheConfig
	logger *zerolog.Logger
}

func newResponseCache(store domain.CacheStore, cfg config.APICacheConfig, logger *zerolog.Logger) *responseCache {
	return &responseCache{store: store, cfg: cfg, logger: logger}
}

func (c *responseCache) enabled() bool {
	return c != nil && c.cfg.Enabled && c.store != nil
}

func (c *responseCache) scopePrefix(scope string) string {
	return fmt.Sprintf("%s:%s:", c.cfg.Prefix, scope)
}

func (c *responseCache) key(scope string, r *http.Request) string {
	sum := sha1.Sum([]byte(r.URL.Path + "?" + r.URL.RawQuery))
	return fmt.Sprintf("%s%x", c.scopePrefix(scope), sum[:])
}

// middleware serves GET responses for scope from the cache and fills it on a miss.
func (c *responseCache) middleware(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !c.enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}
			key := c.key(scope, r)
			if body, ok, err := c.store.Get(r.Context(), key); err == nil && ok {
				metrics.IncCache(true)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Cache", "HIT")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write(body)
				return
			}
			metrics.IncCache(false)

			w.Header().Set("X-Cache", "MISS")
			cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(cw, r)

			if cw.status == http.StatusOK {
				ttl := c.cfg.TTL
				if ttl <= 0 {
					ttl = 30 * time.Second
				}
				if err := c.store.Set(context.WithoutCancel(r.Context()), key, cw.buf.Bytes(), ttl); err != nil {
					c.logger.Warn().Err(err).Msg("cache fill failed")
				}
			}
		})
	}
}

// invalidate drops every cached response in scope.
func (c *responseCache) invalidate(ctx context.Context, scope string) {
	if !c.enabled() {
		return
	}
	if err := c.store.DeletePrefix(ctx, c.scopePrefix(scope)); err != nil {
		c.logger.Warn().Err(err).Str("scope", scope).Msg("cache invalidation failed")
	}
}

// InvalidateListings drops cached space searches. The dashboard pages call it
// after booking decisions made outside the JSON API.
func (s *HTTPServer) InvalidateListings(ctx context.Context) {
	s.cache.invalidate(ctx, listingScope)
}

// InvalidateListingsOn drops cached space searches whenever a booking changes
// on bus. Processes that write bookings without serving the API use it to keep
// a shared cache fresh.
func InvalidateListingsOn(bus *events.EventBus, store domain.CacheStore, cfg config.APICacheConfig, logger *zerolog.Logger) {
	c := newResponseCache(store, cfg, logger)
	if !c.enabled() {
		return
	}
	for _, t := range []string{
		events.EventBookingCreated, events.EventBookingApproved, events.EventBookingRejected,
		events.EventBookingCancelled, events.EventBookingCompleted, events.EventBookingUpdated,
		events.EventBookingDeleted,
	} {
		bus.Subscribe(t, func(*events.Event) error {
			c.invalidate(context.Background(), listingScope)
			return nil
		})
	}
}
