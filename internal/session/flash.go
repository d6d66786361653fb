package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/user-admin/internal/dto"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

const flashKey = "_flash"

// Flash is the data carried by a redirect and read once by the next request.
type Flash struct {
	Success string           `json:"success,omitempty"`
	Error   int              `json:"error,omitempty"`
	Reason  string           `json:"reason,omitempty"`
	Old     *dto.UserRequest `json:"old,omitempty"`
}

func (f *Flash) Empty() bool {
	return f == nil || (f.Success == "" && f.Error == 0 && f.Reason == "" && f.Old == nil)
}

type Store struct {
	sessions *session.Store
}

// NewStore builds a cookie-keyed session store. storage may be nil for the
// in-process memory storage.
func NewStore(storage fiber.Storage, secure bool) *Store {
	cfg := session.Config{
		Expiration:     2 * time.Hour,
		KeyLookup:      "cookie:user_admin_session",
		CookieHTTPOnly: true,
		CookieSecure:   secure,
		CookieSameSite: "Lax",
	}
	if storage != nil {
		cfg.Storage = storage
	}
	return &Store{sessions: session.New(cfg)}
}

// Sessions exposes the underlying store, e.g. for csrf token storage.
func (s *Store) Sessions() *session.Store {
	return s.sessions
}

// Put replaces the pending flash of the current session.
func (s *Store) Put(c *fiber.Ctx, f *Flash) error {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode flash: %w", err)
	}
	sess.Set(flashKey, string(data))
	return sess.Save()
}

// Pull returns the pending flash and clears it. A missing flash yields an
// empty, non-nil value.
func (s *Store) Pull(c *fiber.Ctx) (*Flash, error) {
	f := &Flash{}
	sess, err := s.sessions.Get(c)
	if err != nil {
		return f, fmt.Errorf("failed to load session: %w", err)
	}

	raw, ok := sess.Get(flashKey).(string)
	if !ok || raw == "" {
		return f, nil
	}
	sess.Delete(flashKey)
	if err := sess.Save(); err != nil {
		return f, fmt.Errorf("failed to save session: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), f); err != nil {
		return &Flash{}, fmt.Errorf("failed to decode flash: %w", err)
	}
	return f, nil
}
