// Package service implements business logic on top of ports.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rainmakerhq/rainmaker/internal/agent"
	"github.com/rainmakerhq/rainmaker/internal/domain/interaction"
	"github.com/rainmakerhq/rainmaker/internal/domain/person"
	"github.com/rainmakerhq/rainmaker/internal/middleware"
	"github.com/rainmakerhq/rainmaker/internal/port/cache"
	"github.com/rainmakerhq/rainmaker/internal/port/database"
)

const recentInteractionCount = 5

// ContextProvider assembles the relationship context handed to proposal
// functions, backed by a short-TTL in-process cache. The TTL is short enough
// that agents still see interactions logged moments earlier in the same
// session.
type ContextProvider struct {
	store database.Store
	cache cache.Cache
	ttl   time.Duration
}

// NewContextProvider creates a ContextProvider. cache may be nil, which
// disables caching entirely.
func NewContextProvider(store database.Store, c cache.Cache, ttl time.Duration) *ContextProvider {
	return &ContextProvider{store: store, cache: c, ttl: ttl}
}

// cachedContext is the serialized cache entry.
type cachedContext struct {
	Person             *person.Person            `json:"person"`
	RecentInteractions []interaction.Interaction `json:"recent_interactions"`
	OpenDeals          int                       `json:"open_deals"`
}

// Load returns the relationship context for a person, reading through the
// cache.
func (p *ContextProvider) Load(ctx context.Context, personID string) (*agent.Context, error) {
	key := p.cacheKey(ctx, personID)

	if p.cache != nil && p.ttl > 0 {
		if data, ok, err := p.cache.Get(ctx, key); err == nil && ok {
			var cc cachedContext
			if err := json.Unmarshal(data, &cc); err == nil {
				return &agent.Context{
					Person:             cc.Person,
					RecentInteractions: cc.RecentInteractions,
					OpenDeals:          cc.OpenDeals,
				}, nil
			}
		}
	}

	pers, err := p.store.GetPerson(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("load person context: %w", err)
	}

	recent, err := p.store.ListRecentInteractions(ctx, personID, recentInteractionCount)
	if err != nil {
		return nil, fmt.Errorf("load person context: %w", err)
	}

	deals, err := p.store.CountOpenDeals(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("load person context: %w", err)
	}

	rc := &agent.Context{Person: pers, RecentInteractions: recent, OpenDeals: deals}

	if p.cache != nil && p.ttl > 0 {
		data, err := json.Marshal(cachedContext{Person: pers, RecentInteractions: recent, OpenDeals: deals})
		if err == nil {
			if err := p.cache.Set(ctx, key, data, p.ttl); err != nil {
				slog.Debug("person context cache set failed", "person_id", personID, "error", err)
			}
		}
	}

	return rc, nil
}

// Invalidate drops the cached context after a write that changes it.
func (p *ContextProvider) Invalidate(ctx context.Context, personID string) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Delete(ctx, p.cacheKey(ctx, personID)); err != nil {
		slog.Debug("person context cache delete failed", "person_id", personID, "error", err)
	}
}

// cacheKey includes the tenant so isolation holds through the cache too.
func (p *ContextProvider) cacheKey(ctx context.Context, personID string) string {
	return "personctx:" + middleware.TenantIDFromContext(ctx) + ":" + personID
}
