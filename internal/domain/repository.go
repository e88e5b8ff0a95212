// Package domain defines the core interfaces and types for Iris.
package domain

import (
	"context"
	"time"
)

// ArtifactRepository stores classifier artifacts so a deployment can load a
// named model version at startup. Assessments themselves are never persisted.
type ArtifactRepository interface {
	// SaveArtifact stores a new artifact version. Versions are immutable.
	SaveArtifact(ctx context.Context, artifact *StoredArtifact) error

	// GetArtifact returns a specific version.
	GetArtifact(ctx context.Context, name, version string) (*StoredArtifact, error)

	// LatestArtifact returns the most recently stored version of name.
	LatestArtifact(ctx context.Context, name string) (*StoredArtifact, error)

	// ListArtifacts returns every stored version of name, newest first, without payloads.
	ListArtifacts(ctx context.Context, name string) ([]*StoredArtifact, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// StoredArtifact is a classifier artifact as kept by the repository.
type StoredArtifact struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	Checksum  string    `json:"checksum"`
	Payload   []byte    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `yaml:"driver" validate:"omitempty,oneof=sqlite postgres"`

	// SQLite specific
	SQLitePath string `yaml:"sqlitePath"`

	// PostgreSQL specific
	PostgresHost     string `yaml:"postgresHost"`
	PostgresPort     int    `yaml:"postgresPort"`
	PostgresUser     string `yaml:"postgresUser"`
	PostgresPassword string `yaml:"postgresPassword"`
	PostgresDB       string `yaml:"postgresDB"`
	PostgresSSLMode  string `yaml:"postgresSSLMode"`

	// Connection pool settings
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}
