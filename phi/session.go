package phi

import (
	"sync"
	"time"
)

// DefaultSessionTimeout is the inactivity window after which a key is cleared.
const DefaultSessionTimeout = 15 * time.Minute

// SessionConfig configures a key session.
type SessionConfig struct {
	Timeout time.Duration
	Now     func() time.Time
}

// Session owns one user's PHI key for the lifetime of an authenticated
// session. Expiry is checked on every access; there is no background timer.
type Session struct {
	mu        sync.Mutex
	key       Secret
	cipher    *Cipher
	timeout   time.Duration
	now       func() time.Time
	expiresAt time.Time
}

// NewSession copies key into a new session. The caller may zero its own copy.
func NewSession(c *Cipher, key Secret, cfg SessionConfig) *Session {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Session{
		key:       key.Clone(),
		cipher:    c,
		timeout:   timeout,
		now:       now,
		expiresAt: now().Add(timeout),
	}
}

// use runs fn with the live key and slides the expiry.
func (s *Session) use(fn func(Secret) error) error {
	if s == nil {
		return ErrNoSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.key == nil || !now.Before(s.expiresAt) {
		s.clearLocked()
		return ErrKeyExpired
	}
	s.expiresAt = now.Add(s.timeout)
	return fn(s.key)
}

// Encrypt seals plaintext with the session key and slides the expiry.
func (s *Session) Encrypt(plaintext string) (string, error) {
	var out string
	err := s.use(func(key Secret) error {
		var err error
		out, err = s.cipher.Encrypt(plaintext, key)
		return err
	})
	return out, err
}

// Decrypt opens sealed with the session key and slides the expiry.
func (s *Session) Decrypt(sealed string) (string, error) {
	var out string
	err := s.use(func(key Secret) error {
		var err error
		out, err = s.cipher.Decrypt(sealed, key)
		return err
	})
	return out, err
}

// EncryptFields applies the field policy with this session's key.
func (s *Session) EncryptFields(record map[string]any) (map[string]any, error) {
	var out map[string]any
	err := s.use(func(key Secret) error {
		var err error
		out, err = EncryptFields(s.cipher, record, key)
		return err
	})
	return out, err
}

// DecryptFields applies the field policy with this session's key.
func (s *Session) DecryptFields(record map[string]any) (map[string]any, []string, error) {
	var (
		out         map[string]any
		unavailable []string
	)
	err := s.use(func(key Secret) error {
		out, unavailable = DecryptFields(s.cipher, record, key)
		return nil
	})
	return out, unavailable, err
}

// Active reports whether the key is still live without sliding the expiry.
func (s *Session) Active() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil || !s.now().Before(s.expiresAt) {
		s.clearLocked()
		return false
	}
	return true
}

// ExpiresAt returns the current expiry instant.
func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

// Close zeroes the key. Further use returns ErrKeyExpired.
func (s *Session) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.clearLocked()
	s.mu.Unlock()
}

func (s *Session) clearLocked() {
	if s.key != nil {
		s.key.Zero()
		s.key = nil
	}
}

// Sessions keeps at most one live Session per session id.
type Sessions struct {
	mu       sync.Mutex
	cipher   *Cipher
	cfg      SessionConfig
	sessions map[string]*Session
}

// NewSessions returns an empty session table sharing c and cfg.
func NewSessions(c *Cipher, cfg SessionConfig) *Sessions {
	return &Sessions{
		cipher:   c,
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// Open installs key for id, closing any previous session for it.
func (m *Sessions) Open(id string, key Secret) *Session {
	s := NewSession(m.cipher, key, m.cfg)

	m.mu.Lock()
	prev := m.sessions[id]
	m.sessions[id] = s
	m.mu.Unlock()

	prev.Close()
	return s
}

// Get returns the live session for id. Expired sessions are removed.
func (m *Sessions) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNoSession
	}
	if !s.Active() {
		delete(m.sessions, id)
		return nil, ErrKeyExpired
	}
	return s, nil
}

// Close ends the session for id, e.g. on logout.
func (m *Sessions) Close(id string) {
	m.mu.Lock()
	s := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	s.Close()
}

// Sweep removes expired sessions and returns how many were cleared.
func (m *Sessions) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, s := range m.sessions {
		if !s.Active() {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of tracked sessions.
func (m *Sessions) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
