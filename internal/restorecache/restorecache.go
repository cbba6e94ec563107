// package restorecache tracks which tokens have been resolved back into
// real values, and which token-shaped literals have been seen in processed
// documents. Both indexes are scoped per (user, project) and survive process
// restarts so usage checks and collision checks work across sessions.
package restorecache

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Usage records how often and how recently a token has been restored.
type Usage struct {
	Count    int       `json:"count"`
	LastSeen time.Time `json:"last_seen"`
}

// Cache is the cross-session restore index. Implementations must be safe
// for concurrent use.
type Cache interface {
	// RecordRestore notes that token was resolved during a restore run.
	RecordRestore(userID, projectID, token string) error

	// TokenUsage returns restore statistics for token, if any.
	TokenUsage(userID, projectID, token string) (Usage, bool, error)

	// RecordLiterals indexes token-shaped substrings observed in a
	// processed document, so freshly minted tokens can avoid them.
	RecordLiterals(userID, projectID string, literals []string) error

	// HasLiteral reports whether literal has appeared in any processed
	// document for this scope.
	HasLiteral(userID, projectID, literal string) (bool, error)

	// Close releases any resources held by the cache.
	Close() error
}

const (
	restoredBucket = "restored"
	literalsBucket = "literals"
)

// scopeKey names the nested per-(user,project) bucket.
func scopeKey(userID, projectID string) []byte {
	return []byte(userID + "/" + projectID)
}

// --- memoryCache ---------------------------------------------------------

// memoryCache is an in-memory Cache used in tests and when no cache path
// is configured.
type memoryCache struct {
	mu       sync.RWMutex
	restored map[string]Usage
	literals map[string]struct{}
}

// NewMemory creates an in-memory Cache.
func NewMemory() Cache {
	return &memoryCache{
		restored: make(map[string]Usage),
		literals: make(map[string]struct{}),
	}
}

func (c *memoryCache) key(userID, projectID, s string) string {
	return userID + "/" + projectID + "/" + s
}

func (c *memoryCache) RecordRestore(userID, projectID, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := c.key(userID, projectID, token)
	u := c.restored[k]
	u.Count++
	u.LastSeen = time.Now().UTC()
	c.restored[k] = u
	return nil
}

func (c *memoryCache) TokenUsage(userID, projectID, token string) (Usage, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.restored[c.key(userID, projectID, token)]
	return u, ok, nil
}

func (c *memoryCache) RecordLiterals(userID, projectID string, literals []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, lit := range literals {
		c.literals[c.key(userID, projectID, lit)] = struct{}{}
	}
	return nil
}

func (c *memoryCache) HasLiteral(userID, projectID, literal string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.literals[c.key(userID, projectID, literal)]
	return ok, nil
}

func (c *memoryCache) Close() error { return nil }

// --- bboltCache ----------------------------------------------------------

// bboltCache is a Cache backed by an embedded bbolt database. The file is
// created at the given path if it does not exist.
type bboltCache struct {
	db *bolt.DB
}

// Open opens (or creates) the bbolt database at path and ensures the top
// level buckets exist.
func Open(path string) (Cache, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open restore cache %q: %w", path, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{restoredBucket, literalsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache buckets: %w", err)
	}

	return &bboltCache{db: db}, nil
}

func (c *bboltCache) scope(tx *bolt.Tx, top string, userID, projectID string, create bool) (*bolt.Bucket, error) {
	parent := tx.Bucket([]byte(top))
	if parent == nil {
		return nil, fmt.Errorf("missing bucket %q", top)
	}
	key := scopeKey(userID, projectID)
	if create {
		return parent.CreateBucketIfNotExists(key)
	}
	return parent.Bucket(key), nil
}

func (c *bboltCache) RecordRestore(userID, projectID, token string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b, err := c.scope(tx, restoredBucket, userID, projectID, true)
		if err != nil {
			return err
		}

		var u Usage
		if v := b.Get([]byte(token)); v != nil {
			if err := json.Unmarshal(v, &u); err != nil {
				u = Usage{}
			}
		}
		u.Count++
		u.LastSeen = time.Now().UTC()

		data, err := json.Marshal(u)
		if err != nil {
			return err
		}
		return b.Put([]byte(token), data)
	})
}

func (c *bboltCache) TokenUsage(userID, projectID, token string) (Usage, bool, error) {
	var (
		u     Usage
		found bool
	)
	err := c.db.View(func(tx *bolt.Tx) error {
		b, err := c.scope(tx, restoredBucket, userID, projectID, false)
		if err != nil || b == nil {
			return err
		}
		v := b.Get([]byte(token))
		if v == nil {
			return nil
		}
		if err := json.Unmarshal(v, &u); err != nil {
			return fmt.Errorf("corrupt usage record for %q: %w", token, err)
		}
		found = true
		return nil
	})
	return u, found, err
}

func (c *bboltCache) RecordLiterals(userID, projectID string, literals []string) error {
	if len(literals) == 0 {
		return nil
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		b, err := c.scope(tx, literalsBucket, userID, projectID, true)
		if err != nil {
			return err
		}
		for _, lit := range literals {
			if err := b.Put([]byte(lit), []byte{1}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *bboltCache) HasLiteral(userID, projectID, literal string) (bool, error) {
	var found bool
	err := c.db.View(func(tx *bolt.Tx) error {
		b, err := c.scope(tx, literalsBucket, userID, projectID, false)
		if err != nil || b == nil {
			return err
		}
		found = b.Get([]byte(literal)) != nil
		return nil
	})
	return found, err
}

func (c *bboltCache) Close() error { return c.db.Close() }
