// Package auth implements the session lifecycle: authenticating credentials
// against the account store, and scoping permission checks to the session at
// hand. Sessions are in-memory only and never survive a restart.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/kinga/core"
	"github.com/trezcool/kinga/core/user"
)

var (
	// ErrInvalidCredentials covers both "no such account" and "wrong
	// password" so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account deactivated")
	ErrInvalidSession     = errors.New("invalid session")

	// NowFunc is mockable in tests.
	NowFunc = time.Now
)

// Session is the ephemeral proof of a successful authentication. It holds a
// snapshot of the authorizing account, not ownership of it.
type Session struct {
	ID        string
	Account   user.User
	CreatedAt time.Time
	ExpiresAt time.Time

	invalidated bool
}

// Valid reports whether the session can still authorize operations.
func (s *Session) Valid() bool {
	if s == nil || s.invalidated {
		return false
	}
	return NowFunc().Before(s.ExpiresAt)
}

type Manager struct {
	users *user.Service
	log   core.Logger
	ttl   time.Duration
}

func NewManager(usrSvc *user.Service, log core.Logger) *Manager {
	return &Manager{
		users: usrSvc,
		log:   log,
		ttl:   core.Conf.SessionTTL,
	}
}

// Authenticate verifies the credentials and establishes a new Session.
// An unknown email and a wrong password both fail with ErrInvalidCredentials;
// a deactivated account fails with ErrAccountInactive.
func (m *Manager) Authenticate(ctx context.Context, email, pwd string) (*Session, error) {
	usr, err := m.users.GetByEmail(ctx, email)
	if err != nil {
		if err == user.ErrNotFound {
			return nil, ErrInvalidCredentials
		}
		return nil, pkgerrors.Wrap(err, "finding user by email")
	}
	if !usr.Active() {
		return nil, ErrAccountInactive
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return nil, ErrInvalidCredentials
	}

	usr, err = m.users.SetLastLogin(ctx, usr)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "setting lastLogin")
	}

	now := NowFunc()
	usr.PasswordHash = nil // snapshot never carries the credential secret
	return &Session{
		ID:        uuid.New().String(),
		Account:   usr,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}, nil
}

// Permissions returns the permission set of the session's account role.
// It is empty for an invalid or expired session.
func (m *Manager) Permissions(sess *Session) []user.Permission {
	if !sess.Valid() {
		return nil
	}
	perms := sess.Account.Role.Permissions()
	if perms == nil {
		// total mapping: an unmapped role is a configuration error, not a failure
		m.log.Error("no permissions mapped for role", map[string]interface{}{"role": sess.Account.Role})
	}
	return perms
}

// Authorize reports whether the session may perform the given permission.
func (m *Manager) Authorize(sess *Session, perm user.Permission) bool {
	for _, p := range m.Permissions(sess) {
		if p == perm {
			return true
		}
	}
	return false
}

// IsValid reports whether the session can still authorize operations at all.
func (m *Manager) IsValid(sess *Session) bool {
	return sess.Valid()
}

// Refresh extends the session's lifetime after re-checking the account: an
// account deactivated since login fails with ErrAccountInactive and the
// session is invalidated.
func (m *Manager) Refresh(ctx context.Context, sess *Session) error {
	if !sess.Valid() {
		return ErrInvalidSession
	}
	usr, err := m.users.GetByID(ctx, sess.Account.ID)
	if err != nil {
		if err == user.ErrNotFound {
			m.Logout(sess)
			return ErrInvalidSession
		}
		return pkgerrors.Wrap(err, "finding user by ID")
	}
	if !usr.Active() {
		m.Logout(sess)
		return ErrAccountInactive
	}
	usr.PasswordHash = nil
	sess.Account = usr
	sess.ExpiresAt = NowFunc().Add(m.ttl)
	return nil
}

// Logout invalidates the session. It is idempotent: logging out an already
// invalid session is a no-op, not an error.
func (m *Manager) Logout(sess *Session) {
	if sess != nil {
		sess.invalidated = true
	}
}
