// Package feedcache is the in-memory reflection of the public community
// feed, refreshed wholesale from the remote store.
package feedcache

import (
	"context"
	"sync"

	"stride/internal/events"
	"stride/internal/models"
	"stride/internal/observability"
	"stride/internal/remote"
)

// Cache holds the most recent public feed. It has no durability: contents
// live exactly as long as the process and are rebuilt by Refresh. Where an
// activity also exists in the local store, this copy is the fresher one for
// counts, which is why combined views render it in preference.
type Cache struct {
	mu         sync.Mutex
	store      remote.Store
	log        *observability.Logger
	activities map[string]*models.Activity
	order      []string
}

// New creates an empty cache over the given remote store.
func New(store remote.Store, log *observability.Logger) *Cache {
	if log == nil {
		log = observability.Discard()
	}
	return &Cache{
		store:      store,
		log:        log.Named("feedcache"),
		activities: make(map[string]*models.Activity),
	}
}

// Refresh fetches the public feed and replaces the in-memory set wholesale.
// Each fetched record is merged against the copy it replaces so comments a
// user had opened are not discarded by a comment-less feed row.
func (c *Cache) Refresh(ctx context.Context, limit int) error {
	fetched, err := c.store.FetchPublicActivities(ctx, limit)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	next := make(map[string]*models.Activity, len(fetched))
	order := make([]string, 0, len(fetched))
	for _, a := range fetched {
		next[a.ID] = models.Merged(c.activities[a.ID], a)
		order = append(order, a.ID)
	}
	c.activities = next
	c.order = order
	return nil
}

// ApplyOptimistic merges a locally-mutated copy into the cache so an
// activity shown from both caches stays consistent without a round trip.
// Ids the feed has never returned are ignored: membership in this cache is
// decided by the remote store's visibility rules, not by local mutations.
func (c *Cache) ApplyOptimistic(a *models.Activity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.activities[a.ID]
	if !ok {
		return
	}
	c.activities[a.ID] = models.Merged(existing, a)
}

// Remove purges the id; the cascade half of an activity deletion.
func (c *Cache) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.activities[id]; !ok {
		return
	}
	delete(c.activities, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Get returns a clone of the cached copy, if present.
func (c *Cache) Get(id string) (*models.Activity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.activities[id]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

// Snapshot returns clones of the cached feed in feed order.
func (c *Cache) Snapshot() []*models.Activity {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*models.Activity, 0, len(c.order))
	for _, id := range c.order {
		if a, ok := c.activities[id]; ok {
			out = append(out, a.Clone())
		}
	}
	return out
}

// IDs returns the set of ids currently held; combined views use it to drop
// the staler local copies.
func (c *Cache) IDs() map[string]struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]struct{}, len(c.activities))
	for id := range c.activities {
		out[id] = struct{}{}
	}
	return out
}

// AttachBus subscribes the cache to entity events from the rest of the
// system, applying the same merge/remove logic as its own mutations.
// Redelivery of the same logical update is harmless: the merge is
// idempotent. Returns the subscription teardown.
func (c *Cache) AttachBus(bus *events.Bus) (cancel func()) {
	return bus.Subscribe(func(ev events.Event) {
		switch e := ev.(type) {
		case events.ActivityUpdated:
			c.ApplyOptimistic(e.Activity)
		case events.ActivityDeleted:
			c.Remove(e.ActivityID)
		}
	})
}
