package session

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// CookieName is the session cookie issued to authenticated callers.
const CookieName = "ssh_web_ca_session"

// Manager binds the session store to the transport: it issues and clears the
// session cookie and resolves the current request to a user id.
type Manager struct {
	store Store
	ttl   time.Duration
}

// NewManager creates a session manager over the given store
func NewManager(store Store, ttl time.Duration) *Manager {
	return &Manager{store: store, ttl: ttl}
}

// Login establishes a session for the user and hands the session cookie to
// the caller
func (m *Manager) Login(c *gin.Context, userID int64) error {
	id, err := GenerateID()
	if err != nil {
		return err
	}

	s := Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: time.Now().Add(m.ttl),
	}

	if err := m.store.Create(c.Request.Context(), s); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	c.SetCookie(CookieName, id, int(m.ttl.Seconds()), "/", "", false, true)
	return nil
}

// Logout ends the current session. It returns ErrNoSession when the caller
// has no session to end.
func (m *Manager) Logout(c *gin.Context) error {
	cookie, err := c.Cookie(CookieName)
	if err != nil {
		return ErrNoSession
	}

	if _, err := m.store.Get(c.Request.Context(), cookie); err != nil {
		return ErrNoSession
	}

	if err := m.store.Delete(c.Request.Context(), cookie); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	c.SetCookie(CookieName, "", -1, "/", "", false, true)
	return nil
}

// UserID resolves the current request to an authenticated user id. The second
// return is false when the caller is anonymous.
func (m *Manager) UserID(c *gin.Context) (int64, bool) {
	cookie, err := c.Cookie(CookieName)
	if err != nil {
		return 0, false
	}

	s, err := m.store.Get(c.Request.Context(), cookie)
	if err != nil {
		return 0, false
	}

	return s.UserID, true
}
