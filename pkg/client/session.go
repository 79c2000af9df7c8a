package client

import (
	"context"
	"sync"
)

// Session holds the current authenticated identity, derived from stored
// credentials. It is the only writer of credential state: Login and Logout
// are the two mutators, and Init resolves identity once at startup.
type Session struct {
	client *Client
	creds  *Credentials

	mu      sync.RWMutex
	user    *StoredUser
	loading bool
}

// NewSession creates a session over the gateway's credential store.
// Identity is unresolved until Init runs; Loading reports true until then.
func NewSession(c *Client) *Session {
	return &Session{client: c, creds: c.Credentials(), loading: true}
}

// Init resolves the current identity from a stored token. With no token the
// session is simply unauthenticated. If identity resolution fails, the
// stored credentials are purged and the user is treated as logged out; the
// error is returned for logging but the session is in a defined state.
func (s *Session) Init(ctx context.Context) error {
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	if s.creds.Token() == "" {
		return nil
	}

	user, err := s.client.Me(ctx)
	if err != nil {
		// A 401 already cleared the stores; clear explicitly for every
		// other failure mode so a bad token cannot linger.
		s.creds.Clear()
		s.mu.Lock()
		s.user = nil
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.user = &StoredUser{Username: user.Username, Role: user.Role}
	s.mu.Unlock()
	return nil
}

// Login authenticates, persists the token and identity into exactly one
// credential scope chosen by remember (durable when true, ephemeral
// otherwise), and updates the in-memory identity before returning.
func (s *Session) Login(ctx context.Context, username, password string, remember bool) error {
	result, err := s.client.Login(ctx, username, password)
	if err != nil {
		return err
	}

	persistence := Ephemeral
	if remember {
		persistence = Durable
	}
	user := StoredUser{Username: result.Username, Role: result.Role}
	if err := s.creds.Save(result.Token, user, persistence); err != nil {
		return err
	}

	s.mu.Lock()
	s.user = &user
	s.loading = false
	s.mu.Unlock()
	return nil
}

// Logout clears every persisted credential in both scopes and resets the
// in-memory identity. It never touches the network and cannot fail.
func (s *Session) Logout() {
	s.creds.Clear()
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
}

// Loading reports whether identity resolution is still in progress.
func (s *Session) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// IsAuthenticated reports whether a user is signed in.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// IsAdmin reports whether the signed-in user has the ADMIN role.
func (s *Session) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.user.Role == RoleAdmin
}

// IsDispatcher reports whether the signed-in user has the DISPATCHER role.
func (s *Session) IsDispatcher() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.user.Role == RoleDispatcher
}

// CurrentUser returns the signed-in identity, or false when logged out.
func (s *Session) CurrentUser() (StoredUser, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return StoredUser{}, false
	}
	return *s.user, true
}
