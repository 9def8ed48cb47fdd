package directory

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Postgres implements Directory over the meetings table.
type Postgres struct {
	db  *sql.DB
	now func() time.Time
}

var _ Directory = (*Postgres)(nil)

// Open connects to the PostgreSQL database at databaseURL, configures the
// connection pool, and runs any pending migrations.
func Open(databaseURL string) (*Postgres, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return newPostgres(db), nil
}

func newPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, now: time.Now}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: "hands_schema_migrations"})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// Ping reports whether the database is reachable.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Postgres) HostOf(ctx context.Context, meetingID string) (string, error) {
	var hostID string
	err := p.db.QueryRowContext(ctx,
		`SELECT host_id FROM meetings WHERE id = $1`, meetingID,
	).Scan(&hostID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrMeetingNotFound
	}
	if err != nil {
		return "", fmt.Errorf("host of meeting %s: %w", meetingID, err)
	}
	return hostID, nil
}

// GetMeeting returns the stored meeting, or ErrMeetingNotFound.
func (p *Postgres) GetMeeting(ctx context.Context, meetingID string) (*Meeting, error) {
	var m Meeting
	err := p.db.QueryRowContext(ctx,
		`SELECT id, host_id, title, created_at, updated_at FROM meetings WHERE id = $1`, meetingID,
	).Scan(&m.ID, &m.HostID, &m.Title, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMeetingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get meeting %s: %w", meetingID, err)
	}
	return &m, nil
}

// SetHost creates the meeting or reassigns its host.
func (p *Postgres) SetHost(ctx context.Context, meetingID, hostID, title string) error {
	now := p.now().UTC()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO meetings (id, host_id, title, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4)
		 ON CONFLICT (id) DO UPDATE SET host_id = EXCLUDED.host_id, title = EXCLUDED.title, updated_at = EXCLUDED.updated_at`,
		meetingID, hostID, title, now,
	)
	if err != nil {
		return fmt.Errorf("set host of meeting %s: %w", meetingID, err)
	}
	return nil
}

// DeleteMeeting removes the meeting. Deleting a missing meeting is not an
// error.
func (p *Postgres) DeleteMeeting(ctx context.Context, meetingID string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM meetings WHERE id = $1`, meetingID); err != nil {
		return fmt.Errorf("delete meeting %s: %w", meetingID, err)
	}
	return nil
}
