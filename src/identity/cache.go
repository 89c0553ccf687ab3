package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"neotrade/src/model"
)

type cachedIdentity struct {
	identity model.Identity
	expires  time.Time
}

// credentialCache remembers credentials that passed bcrypt verification for a
// short while. Entries are keyed by a digest so clear secrets are not held.
type credentialCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]cachedIdentity
}

func newCredentialCache(ttl time.Duration) *credentialCache {
	return &credentialCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cachedIdentity),
	}
}

func credentialKey(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}

func (c *credentialCache) get(credential string) (model.Identity, bool) {
	if c == nil || c.ttl <= 0 {
		return model.Identity{}, false
	}

	key := credentialKey(credential)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return model.Identity{}, false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return model.Identity{}, false
	}
	return e.identity, true
}

func (c *credentialCache) put(credential string, id model.Identity) {
	if c == nil || c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	// expired entries go on every write so the map stays bounded by live users
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
	c.entries[credentialKey(credential)] = cachedIdentity{identity: id, expires: now.Add(c.ttl)}
}

// forget drops every cached credential of one user.
func (c *credentialCache) forget(userID string) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.entries {
		if e.identity.UserID == userID {
			delete(c.entries, k)
		}
	}
}
