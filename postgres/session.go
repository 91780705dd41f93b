package postgres

import (
	"context"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/go-playground/errors/v5"
	"github.com/jackc/pgx/v5"
	"github.com/sloonz/ngx-auth/dbtypes"
	"go.opentelemetry.io/otel"
)

// Session returns the session row for the given sessionID, or nil when no
// row exists. Expiry is not evaluated here; callers apply the predicate.
func (d *SessionStorageDriver) Session(ctx context.Context, sessionID string) (*dbtypes.Session, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "SessionStorageDriver.Session()")
	defer span.End()

	query := `
		SELECT
			"Id", "UserId", "ExpirationDate"
		FROM "Sessions"
		WHERE "Id" = $1
	`

	s := &dbtypes.Session{}
	if err := pgxscan.Get(ctx, d.conn, s, query, sessionID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, errors.Wrap(err, "failed to scan row for session")
	}

	return s, nil
}

// InsertSession inserts a Session into the database
func (d *SessionStorageDriver) InsertSession(ctx context.Context, session *dbtypes.InsertSession) error {
	ctx, span := otel.Tracer(name).Start(ctx, "SessionStorageDriver.InsertSession()")
	defer span.End()

	query := `
		INSERT INTO "Sessions"
			("Id", "UserId", "ExpirationDate")
		VALUES
			($1, $2, $3)
	`

	if _, err := d.conn.Exec(ctx, query, session.ID, session.UserID, session.ExpirationDate); err != nil {
		return errors.Wrap(err, "failed to insert into table Sessions")
	}

	return nil
}

// DeleteExpiredSessions removes sessions whose expiration date has passed.
// Concurrent sweeps racing on the same rows are benign.
func (d *SessionStorageDriver) DeleteExpiredSessions(ctx context.Context, now time.Time) error {
	ctx, span := otel.Tracer(name).Start(ctx, "SessionStorageDriver.DeleteExpiredSessions()")
	defer span.End()

	query := `
		DELETE FROM "Sessions"
		WHERE "ExpirationDate" <= $1`

	if _, err := d.conn.Exec(ctx, query, now); err != nil {
		return errors.Wrap(err, "failed to delete expired rows from table Sessions")
	}

	return nil
}
