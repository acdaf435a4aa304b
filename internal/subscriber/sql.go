package subscriber

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const schema = `CREATE TABLE IF NOT EXISTS subscribers (
	id BIGINT PRIMARY KEY,
	email TEXT,
	phone TEXT,
	alerts_enabled BOOLEAN,
	latitude DOUBLE PRECISION,
	longitude DOUBLE PRECISION
);`

// row mirrors the table; every column is nullable.
type row struct {
	ID            int64           `db:"id"`
	Email         sql.NullString  `db:"email"`
	Phone         sql.NullString  `db:"phone"`
	AlertsEnabled sql.NullBool    `db:"alerts_enabled"`
	Latitude      sql.NullFloat64 `db:"latitude"`
	Longitude     sql.NullFloat64 `db:"longitude"`
}

func (r row) toSubscriber() Subscriber {
	s := Subscriber{
		ID:            r.ID,
		Email:         r.Email.String,
		Phone:         r.Phone.String,
		AlertsEnabled: r.AlertsEnabled.Valid && r.AlertsEnabled.Bool,
	}
	if r.Latitude.Valid {
		lat := r.Latitude.Float64
		s.Latitude = &lat
	}
	if r.Longitude.Valid {
		lon := r.Longitude.Float64
		s.Longitude = &lon
	}
	return s
}

// SQLStore implements Directory on SQLite (pure Go driver modernc.org/sqlite)
// or Postgres (lib/pq).
type SQLStore struct {
	db *sqlx.DB
}

// OpenSQL connects to the database and applies the minimal schema.
func OpenSQL(driver, dsn string) (*SQLStore, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// ListAll returns every subscriber ordered by id.
func (s *SQLStore) ListAll(ctx context.Context) ([]Subscriber, error) {
	var rows []row
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, email, phone, alerts_enabled, latitude, longitude FROM subscribers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}

	out := make([]Subscriber, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toSubscriber())
	}
	return out, nil
}

// Upsert inserts or replaces a subscriber. Used for seeding; the alert loop never writes.
func (s *SQLStore) Upsert(ctx context.Context, sub Subscriber) error {
	q := s.db.Rebind(`INSERT INTO subscribers (id, email, phone, alerts_enabled, latitude, longitude)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			email = excluded.email,
			phone = excluded.phone,
			alerts_enabled = excluded.alerts_enabled,
			latitude = excluded.latitude,
			longitude = excluded.longitude`)

	_, err := s.db.ExecContext(ctx, q,
		sub.ID, nullString(sub.Email), nullString(sub.Phone), sub.AlertsEnabled,
		nullFloat(sub.Latitude), nullFloat(sub.Longitude))
	if err != nil {
		return fmt.Errorf("upsert subscriber %d: %w", sub.ID, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
