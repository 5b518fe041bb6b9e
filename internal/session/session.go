// Package session carries the authenticated caller through the order core
// explicitly instead of through ambient request state.
package session

import (
	"errors"

	"github.com/labstack/echo/v4"
)

const echoKey = "session"

// ErrNoSession is returned when a request reached a handler without an authenticated session
var ErrNoSession = errors.New("no authenticated session")

// Session identifies who is acting and on behalf of which tenant
type Session struct {
	UserID   uint
	TenantID uint
	Email    string
	Role     string
}

// Valid reports whether the session is scoped to a tenant
func (s Session) Valid() bool {
	return s.TenantID != 0
}

// Attach stores the session on the echo context
func Attach(c echo.Context, s Session) {
	c.Set(echoKey, s)
}

// FromEcho returns the session stored by the auth middleware
func FromEcho(c echo.Context) (Session, error) {
	s, ok := c.Get(echoKey).(Session)
	if !ok || !s.Valid() {
		return Session{}, ErrNoSession
	}
	return s, nil
}
