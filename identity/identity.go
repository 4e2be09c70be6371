// Package identity is the RADIUS core's inbound dependency on the
// relational identity store: subscriber lookup per Access-Request, and the
// radius_secret table read the secretstore refresh loop depends on.
// Grounded on core/config.go's sql.Open/SetMaxOpenConns bootstrap pattern,
// generalized from the teacher's generic search-rule database access to
// this server's two fixed queries.
package identity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/coreradius/radiusd/config"
	"github.com/coreradius/radiusd/secretstore"
)

// Subscriber is a row of user_identifiers filtered to the username
// identifier type, per §6.
type Subscriber struct {
	ID            int64
	Username      string
	PlainPassword string
	IsEnabled     bool
}

// usernameIdentifierType is the identifier_type_id value user_identifiers
// rows are filtered by; this server only ever resolves by username.
const usernameIdentifierType = 1

// ErrNotFound is returned by Lookup when no row matches.
var ErrNotFound = fmt.Errorf("identity: subscriber not found")

// Repository is the identity store contract the handler package depends
// on. A MySQLRepository is the production implementation; tests use an
// in-memory fake.
type Repository interface {
	Lookup(ctx context.Context, username string) (Subscriber, error)
	SecretRecords(ctx context.Context) ([]secretstore.Record, error)
}

// MySQLRepository implements Repository against the schema in §6:
// user_identifiers and radius_secret.
type MySQLRepository struct {
	db *sql.DB
}

// NewMySQLRepository opens a pooled connection to dsn (a go-sql-driver/mysql
// DSN, e.g. "user:pass@tcp(host:3306)/radius?parseTime=true"). maxOpenConns
// follows §5's suggested 5-16 connection pool size.
func NewMySQLRepository(dsn string, maxOpenConns int) (*MySQLRepository, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("identity: could not open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	return &MySQLRepository{db: db}, nil
}

// Close releases the underlying connection pool.
func (r *MySQLRepository) Close() error { return r.db.Close() }

// Lookup reads a single subscriber row by username, per §6's
// user_identifiers query.
func (r *MySQLRepository) Lookup(ctx context.Context, username string) (Subscriber, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, value, plain_password, is_enabled FROM user_identifiers
		 WHERE value = ? AND identifier_type_id = ?`,
		username, usernameIdentifierType)

	var s Subscriber
	var plainPassword sql.NullString
	if err := row.Scan(&s.ID, &s.Username, &plainPassword, &s.IsEnabled); err != nil {
		if err == sql.ErrNoRows {
			return Subscriber{}, ErrNotFound
		}
		return Subscriber{}, fmt.Errorf("identity: lookup query: %w", err)
	}
	s.PlainPassword = plainPassword.String
	return s, nil
}

// secretRow mirrors one row of radius_secret as read by SecretRecords.
type secretRow struct {
	Secret        string
	SourceSubnets string
}

// SecretRecords reads the full radius_secret table for the secretstore
// refresh loop, per §4.2 and §6. source_subnets is a JSON array of CIDR
// strings; malformed entries are skipped, not fatal, matching §4.2's
// partial-failure tolerance.
func (r *MySQLRepository) SecretRecords(ctx context.Context) ([]secretstore.Record, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT secret, source_subnets FROM radius_secret`)
	if err != nil {
		return nil, fmt.Errorf("identity: secret refresh query: %w", err)
	}
	defer rows.Close()

	var records []secretstore.Record
	for rows.Next() {
		var sr secretRow
		if err := rows.Scan(&sr.Secret, &sr.SourceSubnets); err != nil {
			return nil, fmt.Errorf("identity: secret refresh scan: %w", err)
		}
		records = append(records, decodeSecretRow(sr))
	}
	return records, rows.Err()
}

func decodeSecretRow(sr secretRow) secretstore.Record {
	var cidrs []string
	// An invalid JSON array yields zero subnets rather than aborting the
	// whole refresh; it is logged here and this record contributes nothing.
	if err := json.Unmarshal([]byte(sr.SourceSubnets), &cidrs); err != nil {
		config.GetLogger().Warnw("radius_secret row has malformed source_subnets", "error", err)
	}

	rec := secretstore.Record{Secret: sr.Secret}
	for _, c := range cidrs {
		n, err := secretstore.ParseCIDR(c)
		if err != nil {
			config.GetLogger().Warnw("skipping invalid subnet in radius_secret row", "subnet", c, "error", err)
			continue
		}
		rec.Subnets = append(rec.Subnets, n)
	}
	return rec
}
