package ngxauth

import (
	"context"
	"time"

	"github.com/cccteam/ccc"
	"github.com/sloonz/ngx-auth/dbtypes"
)

// SessionStorage defines the persistence surface consumed by the gateway.
// Lookup misses return (nil, nil): absence is a decision input here, not a
// failure. Origin strings are compared verbatim (scheme+host, no
// normalization).
type SessionStorage interface {
	// DeleteExpiredSessions removes sessions whose expiration date is at
	// or before now. Idempotent; concurrent sweeps are benign.
	DeleteExpiredSessions(ctx context.Context, now time.Time) error
	// Session returns the session row by id, or nil when absent.
	Session(ctx context.Context, sessionID string) (*dbtypes.Session, error)
	// InsertSession persists a session row.
	InsertSession(ctx context.Context, session *dbtypes.InsertSession) error
	// User returns the user row by email, or nil when absent.
	User(ctx context.Context, email string) (*dbtypes.User, error)
	// CreateUser inserts a user row; on an email uniqueness conflict it
	// returns the existing row.
	CreateUser(ctx context.Context, email string) (*dbtypes.User, error)
	// Authorized reports whether an authorization row pairs the user with
	// the origin.
	Authorized(ctx context.Context, userID ccc.UUID, origin string) (bool, error)
}
