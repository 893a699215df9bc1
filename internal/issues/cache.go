package issues

import "bulkcert-backend/internal/models"

// defaultCacheSize bounds a request-scoped cache; batches larger than
// this simply stop caching rather than evicting.
const defaultCacheSize = 1024

type cacheKey struct {
	certificateID uint
	userID        uint
}

// Cache is an explicit, request-scoped issue cache keyed by the
// certificate/user pair. It is created per batch and passed to every
// lookup, so nothing leaks between requests. Not safe for concurrent
// use; a batch processes its roster sequentially.
type Cache struct {
	max     int
	entries map[cacheKey]*models.CertificateIssue
}

// NewCache returns an empty cache. max <= 0 uses the default bound.
func NewCache(max int) *Cache {
	if max <= 0 {
		max = defaultCacheSize
	}
	return &Cache{max: max, entries: map[cacheKey]*models.CertificateIssue{}}
}

func (c *Cache) Get(certificateID, userID uint) (*models.CertificateIssue, bool) {
	issue, ok := c.entries[cacheKey{certificateID, userID}]
	return issue, ok
}

func (c *Cache) Put(issue *models.CertificateIssue) {
	if len(c.entries) >= c.max {
		return
	}
	c.entries[cacheKey{issue.CertificateID, issue.UserID}] = issue
}

func (c *Cache) Remove(certificateID, userID uint) {
	delete(c.entries, cacheKey{certificateID, userID})
}
