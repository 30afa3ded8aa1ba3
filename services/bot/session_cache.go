package bot

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"orbitbot/lib/scrapers/orbit"
	"orbitbot/services/userstore"
)

// sessionCache hands out one scraping client per chat, reused across a
// command burst so every command does not pay for a fresh login. A
// client whose auth stage latched a failure is evicted immediately;
// entries also expire on their own so portal sessions don't go stale.
type sessionCache struct {
	cache     *expirable.LRU[int64, *orbit.Client]
	store     userstore.Store
	portalUrl string
	lmsUrl    string
	renderer  orbit.TimetableRenderer
}

func newSessionCache(store userstore.Store, portalUrl, lmsUrl string, renderer orbit.TimetableRenderer) sessionCache {
	return sessionCache{
		cache:     expirable.NewLRU[int64, *orbit.Client](2048, nil, time.Minute*15),
		store:     store,
		portalUrl: portalUrl,
		lmsUrl:    lmsUrl,
		renderer:  renderer,
	}
}

func (s sessionCache) Get(ctx context.Context, chatID int64) (*orbit.Client, error) {
	cached, hit := s.cache.Get(chatID)
	if hit {
		return cached, nil
	}

	user, err := s.store.GetUser(ctx, chatID)
	if err != nil {
		return nil, err
	}
	client, err := orbit.NewClient(ctx, orbit.ClientOptions{
		PortalUrl: s.portalUrl,
		LmsUrl:    s.lmsUrl,
		Credential: orbit.Credential{
			Identity:   user.Username,
			Secret:     user.Password,
			ActiveYear: user.ActiveYear,
		},
		Renderer: s.renderer,
	})
	if err != nil {
		return nil, err
	}

	s.cache.Add(chatID, client)
	return client, nil
}

// Invalidate drops the chat's client, forcing the next command to log
// in again. Called whenever stored credentials change and whenever a
// client latches a failure.
func (s sessionCache) Invalidate(chatID int64) {
	s.cache.Remove(chatID)
}
