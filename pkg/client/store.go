package client

import (
	"encoding/json"
	"sync"
)

// Store is a minimal key/value store holding credential state. Implementations
// differ only in lifetime: one durable across restarts, one scoped to the
// current run.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// MemoryStore is a thread-safe in-memory Store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[key]
	return value, ok
}

func (s *MemoryStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// Persistence selects which credential scope a login writes to.
type Persistence int

const (
	// Durable survives restarts; chosen by "remember me".
	Durable Persistence = iota
	// Ephemeral lasts for the current run only.
	Ephemeral
)

// Credential keys. The legacy names are never written but are still cleared
// on logout so stale entries from older clients cannot linger.
const (
	keyToken       = "token"
	keyUser        = "user"
	legacyKeyToken = "authToken"
	legacyKeyRole  = "userRole"
)

// StoredUser is the identity persisted alongside the token.
type StoredUser struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Credentials manages the two credential scopes. Writes go to exactly one
// scope, selected at login time; reads probe durable first.
type Credentials struct {
	durable   Store
	ephemeral Store
}

// NewCredentials creates a Credentials over the two scopes.
func NewCredentials(durable, ephemeral Store) *Credentials {
	return &Credentials{durable: durable, ephemeral: ephemeral}
}

// Token returns the stored bearer token, probing the durable scope first.
// Empty when no scope holds one.
func (c *Credentials) Token() string {
	if token, ok := c.durable.Get(keyToken); ok {
		return token
	}
	if token, ok := c.ephemeral.Get(keyToken); ok {
		return token
	}
	return ""
}

// Save stores the token and identity into the selected scope only.
func (c *Credentials) Save(token string, user StoredUser, p Persistence) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	store := c.ephemeral
	if p == Durable {
		store = c.durable
	}
	store.Set(keyToken, token)
	store.Set(keyUser, string(data))
	return nil
}

// User returns the persisted identity, durable scope first. A corrupt entry
// is purged and treated as no session.
func (c *Credentials) User() (StoredUser, bool) {
	for _, store := range []Store{c.durable, c.ephemeral} {
		raw, ok := store.Get(keyUser)
		if !ok {
			continue
		}
		var user StoredUser
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			store.Delete(keyUser)
			store.Delete(keyToken)
			continue
		}
		return user, true
	}
	return StoredUser{}, false
}

// Clear removes every recognized credential key from both scopes.
func (c *Credentials) Clear() {
	for _, store := range []Store{c.durable, c.ephemeral} {
		for _, key := range []string{keyToken, keyUser, legacyKeyToken, legacyKeyRole} {
			store.Delete(key)
		}
	}
}
