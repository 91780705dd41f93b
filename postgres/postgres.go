// postgres implements the session and authorization storage driver for
// PostgreSQL.
package postgres

const name = "github.com/sloonz/ngx-auth/postgres"

type SessionStorageDriver struct {
	conn Queryer
}

// NewSessionStorageDriver creates a new SessionStorageDriver
func NewSessionStorageDriver(conn Queryer) *SessionStorageDriver {
	return &SessionStorageDriver{
		conn: conn,
	}
}
