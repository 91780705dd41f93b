// dbtypes contains the row types shared by the database driver packages.
package dbtypes

import (
	"time"

	"github.com/cccteam/ccc"
)

// User is an identity keyed by lowercase-normalized email. Users are
// created lazily on first successful login and never deleted by the
// gateway.
type User struct {
	ID    ccc.UUID `spanner:"Id"    db:"Id"`
	Email string   `spanner:"Email" db:"Email"`
}

// Session is a persisted login session. The ID doubles as the bearer
// credential carried in the session cookie; treat it as a secret and never
// log it.
type Session struct {
	ID             string    `spanner:"Id"             db:"Id"`
	UserID         ccc.UUID  `spanner:"UserId"         db:"UserId"`
	ExpirationDate time.Time `spanner:"ExpirationDate" db:"ExpirationDate"`
}

// Expired reports whether the session must be treated as nonexistent at
// decision time. Expiry is a predicate; row deletion is best-effort
// cleanup, never an authorization gate.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpirationDate.After(now)
}

// InsertSession is the insert shape for the Sessions table.
type InsertSession struct {
	ID             string    `spanner:"Id"             db:"Id"`
	UserID         ccc.UUID  `spanner:"UserId"         db:"UserId"`
	ExpirationDate time.Time `spanner:"ExpirationDate" db:"ExpirationDate"`
}
