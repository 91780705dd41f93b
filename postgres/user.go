package postgres

import (
	"context"

	"github.com/cccteam/ccc"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/go-playground/errors/v5"
	"github.com/jackc/pgx/v5"
	"github.com/sloonz/ngx-auth/dbtypes"
	"go.opentelemetry.io/otel"
)

// User returns the user row for the given email, or nil when no row exists.
func (d *SessionStorageDriver) User(ctx context.Context, email string) (*dbtypes.User, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "SessionStorageDriver.User()")
	defer span.End()

	query := `
		SELECT
			"Id", "Email"
		FROM "Users"
		WHERE "Email" = $1
	`

	u := &dbtypes.User{}
	if err := pgxscan.Get(ctx, d.conn, u, query, email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, errors.Wrapf(err, "failed to scan row for user %s", email)
	}

	return u, nil
}

// CreateUser inserts a user row for the given email. The unique constraint
// on Email is the backstop for concurrent first-logins of the same
// identity: a conflict means another request won the insert, and the
// existing row is returned instead.
func (d *SessionStorageDriver) CreateUser(ctx context.Context, email string) (*dbtypes.User, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "SessionStorageDriver.CreateUser()")
	defer span.End()

	id, err := ccc.NewUUID()
	if err != nil {
		return nil, errors.Wrap(err, "ccc.NewUUID()")
	}

	query := `
		INSERT INTO "Users"
			("Id", "Email")
		VALUES
			($1, $2)
		ON CONFLICT ("Email") DO NOTHING
	`

	res, err := d.conn.Exec(ctx, query, id, email)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to insert user %s into table Users", email)
	}
	if res.RowsAffected() == 0 {
		u, err := d.User(ctx, email)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, errors.Newf("user %s vanished after insert conflict", email)
		}

		return u, nil
	}

	return &dbtypes.User{ID: id, Email: email}, nil
}

// Authorized reports whether an authorization row links the user to the
// origin. Origins are compared verbatim; they must be registered exactly
// as presented.
func (d *SessionStorageDriver) Authorized(ctx context.Context, userID ccc.UUID, origin string) (bool, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "SessionStorageDriver.Authorized()")
	defer span.End()

	query := `
		SELECT EXISTS (
			SELECT 1
			FROM "Authorizations" a
			JOIN "Origins" o ON o."Id" = a."OriginId"
			WHERE a."UserId" = $1 AND o."Origin" = $2
		)`

	var authorized bool
	if err := d.conn.QueryRow(ctx, query, userID, origin).Scan(&authorized); err != nil {
		return false, errors.Wrap(err, "failed to query table Authorizations")
	}

	return authorized, nil
}
