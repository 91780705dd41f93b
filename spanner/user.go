package spanner

import (
	"context"

	"cloud.google.com/go/spanner"
	"github.com/cccteam/ccc"
	"github.com/cccteam/spxscan"
	"github.com/go-playground/errors/v5"
	"github.com/sloonz/ngx-auth/dbtypes"
	"go.opentelemetry.io/otel"
	"google.golang.org/grpc/codes"
)

// User returns the user row for the given email, or nil when no row exists.
func (d *SessionStorageDriver) User(ctx context.Context, email string) (*dbtypes.User, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "SessionStorageDriver.User()")
	defer span.End()

	stmt := spanner.NewStatement(`
		SELECT
			Id, Email
		FROM Users
		WHERE Email = @email
	`)
	stmt.Params["email"] = email

	u := &dbtypes.User{}
	if err := spxscan.Get(ctx, d.spanner.Single(), u, stmt); err != nil {
		if errors.Is(err, spxscan.ErrNotFound) {
			return nil, nil
		}

		return nil, errors.Wrapf(err, "failed to scan row for user %s", email)
	}

	return u, nil
}

// CreateUser inserts a user row for the given email. The unique index on
// Email is the backstop for concurrent first-logins of the same identity:
// AlreadyExists means another request won the insert, and the existing row
// is returned instead.
func (d *SessionStorageDriver) CreateUser(ctx context.Context, email string) (*dbtypes.User, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "SessionStorageDriver.CreateUser()")
	defer span.End()

	id, err := ccc.NewUUID()
	if err != nil {
		return nil, errors.Wrap(err, "ccc.NewUUID()")
	}

	user := &dbtypes.User{ID: id, Email: email}
	mutation, err := spanner.InsertStruct("Users", user)
	if err != nil {
		return nil, errors.Wrap(err, "spanner.InsertStruct()")
	}
	if _, err := d.spanner.Apply(ctx, []*spanner.Mutation{mutation}); err != nil {
		if spanner.ErrCode(err) == codes.AlreadyExists {
			existing, err := d.User(ctx, email)
			if err != nil {
				return nil, err
			}
			if existing == nil {
				return nil, errors.Newf("user %s vanished after insert conflict", email)
			}

			return existing, nil
		}

		return nil, errors.Wrap(err, "spanner.Client.Apply()")
	}

	return user, nil
}

// Authorized reports whether an authorization row links the user to the
// origin. Origins are compared verbatim; they must be registered exactly
// as presented.
func (d *SessionStorageDriver) Authorized(ctx context.Context, userID ccc.UUID, origin string) (bool, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "SessionStorageDriver.Authorized()")
	defer span.End()

	stmt := spanner.NewStatement(`
		SELECT
			a.Id
		FROM Authorizations a
		JOIN Origins o ON o.Id = a.OriginId
		WHERE a.UserId = @userId AND o.Origin = @origin
		LIMIT 1
	`)
	stmt.Params["userId"] = userID
	stmt.Params["origin"] = origin

	row := &struct {
		ID ccc.UUID `spanner:"Id"`
	}{}
	if err := spxscan.Get(ctx, d.spanner.Single(), row, stmt); err != nil {
		if errors.Is(err, spxscan.ErrNotFound) {
			return false, nil
		}

		return false, errors.Wrap(err, "failed to query table Authorizations")
	}

	return true, nil
}
