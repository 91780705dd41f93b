package spanner

import (
	"context"
	"time"

	"cloud.google.com/go/spanner"
	"github.com/cccteam/spxscan"
	"github.com/go-playground/errors/v5"
	"github.com/sloonz/ngx-auth/dbtypes"
	"go.opentelemetry.io/otel"
)

// Session returns the session row for the given sessionID, or nil when no
// row exists. Expiry is not evaluated here; callers apply the predicate.
func (d *SessionStorageDriver) Session(ctx context.Context, sessionID string) (*dbtypes.Session, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "SessionStorageDriver.Session()")
	defer span.End()

	stmt := spanner.NewStatement(`
		SELECT
			Id, UserId, ExpirationDate
		FROM Sessions
		WHERE Id = @id
	`)
	stmt.Params["id"] = sessionID

	s := &dbtypes.Session{}
	if err := spxscan.Get(ctx, d.spanner.Single(), s, stmt); err != nil {
		if errors.Is(err, spxscan.ErrNotFound) {
			return nil, nil
		}

		return nil, errors.Wrap(err, "failed to scan row for session")
	}

	return s, nil
}

// InsertSession inserts a Session into the database
func (d *SessionStorageDriver) InsertSession(ctx context.Context, insertSession *dbtypes.InsertSession) error {
	ctx, span := otel.Tracer(name).Start(ctx, "SessionStorageDriver.InsertSession()")
	defer span.End()

	mutation, err := spanner.InsertStruct("Sessions", insertSession)
	if err != nil {
		return errors.Wrap(err, "spanner.InsertStruct()")
	}
	if _, err := d.spanner.Apply(ctx, []*spanner.Mutation{mutation}); err != nil {
		return errors.Wrap(err, "spanner.Client.Apply()")
	}

	return nil
}

// DeleteExpiredSessions removes sessions whose expiration date has passed.
// Concurrent sweeps racing on the same rows are benign.
func (d *SessionStorageDriver) DeleteExpiredSessions(ctx context.Context, now time.Time) error {
	ctx, span := otel.Tracer(name).Start(ctx, "SessionStorageDriver.DeleteExpiredSessions()")
	defer span.End()

	_, err := d.spanner.ReadWriteTransaction(ctx, func(ctx context.Context, tx *spanner.ReadWriteTransaction) error {
		stmt := spanner.NewStatement(`DELETE FROM Sessions WHERE ExpirationDate <= @now`)
		stmt.Params["now"] = now

		if _, err := tx.Update(ctx, stmt); err != nil {
			return errors.Wrap(err, "spanner.ReadWriteTransaction.Update()")
		}

		return nil
	})
	if err != nil {
		return errors.Wrap(err, "spanner.Client.ReadWriteTransaction()")
	}

	return nil
}
