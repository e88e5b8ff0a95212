// Package repository stores classifier artifacts in SQLite or PostgreSQL.
package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/healthcatchers/iris/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("record already exists")
)

// SQLRepository implements domain.ArtifactRepository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

var _ domain.ArtifactRepository = (*SQLRepository)(nil)

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (*SQLRepository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite", "":
		cfg.Driver = "sqlite"
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveArtifact stores a new artifact version. An empty checksum is computed
// from the payload; an existing (name, version) is a conflict.
func (r *SQLRepository) SaveArtifact(ctx context.Context, a *domain.StoredArtifact) error {
	if a == nil || a.Name == "" || a.Version == "" {
		return fmt.Errorf("%w: name and version are required", ErrInvalidInput)
	}
	if len(a.Payload) == 0 {
		return fmt.Errorf("%w: payload is required", ErrInvalidInput)
	}

	sum := sha256.Sum256(a.Payload)
	checksum := hex.EncodeToString(sum[:])
	if a.Checksum != "" && a.Checksum != checksum {
		return fmt.Errorf("%w: checksum does not match payload", ErrInvalidInput)
	}
	a.Checksum = checksum
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, r.rebind(`SELECT COUNT(*) FROM artifacts WHERE name = ? AND version = ?`),
		a.Name, a.Version).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return fmt.Errorf("%w: artifact %s@%s", ErrConflict, a.Name, a.Version)
	}

	query := `
		INSERT INTO artifacts (name, version, checksum, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, r.rebind(query),
		a.Name, a.Version, a.Checksum, string(a.Payload), a.CreatedAt.UnixNano(),
	); err != nil {
		return err
	}

	return tx.Commit()
}

// GetArtifact retrieves a specific artifact version.
func (r *SQLRepository) GetArtifact(ctx context.Context, name, version string) (*domain.StoredArtifact, error) {
	query := `
		SELECT name, version, checksum, payload, created_at
		FROM artifacts
		WHERE name = ? AND version = ?
	`
	return r.scanArtifact(r.db.QueryRowContext(ctx, r.rebind(query), name, version))
}

// LatestArtifact retrieves the most recently stored version of name.
func (r *SQLRepository) LatestArtifact(ctx context.Context, name string) (*domain.StoredArtifact, error) {
	query := `
		SELECT name, version, checksum, payload, created_at
		FROM artifacts
		WHERE name = ?
		ORDER BY created_at DESC, version DESC
		LIMIT 1
	`
	return r.scanArtifact(r.db.QueryRowContext(ctx, r.rebind(query), name))
}

func (r *SQLRepository) scanArtifact(row *sql.Row) (*domain.StoredArtifact, error) {
	var a domain.StoredArtifact
	var payload string
	var created int64

	err := row.Scan(&a.Name, &a.Version, &a.Checksum, &payload, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	a.Payload = []byte(payload)
	a.CreatedAt = time.Unix(0, created).UTC()
	return &a, nil
}

// ListArtifacts returns every stored version of name, newest first, without payloads.
func (r *SQLRepository) ListArtifacts(ctx context.Context, name string) ([]*domain.StoredArtifact, error) {
	query := `
		SELECT name, version, checksum, created_at
		FROM artifacts
		WHERE name = ?
		ORDER BY created_at DESC, version DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artifacts []*domain.StoredArtifact
	for rows.Next() {
		var a domain.StoredArtifact
		var created int64
		if err := rows.Scan(&a.Name, &a.Version, &a.Checksum, &created); err != nil {
			return nil, err
		}
		a.CreatedAt = time.Unix(0, created).UTC()
		artifacts = append(artifacts, &a)
	}

	return artifacts, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
