package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"EcbBreaker/server/internal/protocol"
)

// DB wraps the database connection and provides query methods
type DB struct {
	conn *sql.DB
}

// Config contains database connection configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN renders the lib/pq connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// New creates a new database connection
func New(cfg Config) (*DB, error) {
	conn, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, err
	}

	// Test the connection
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// InitSchema creates all database tables
func (db *DB) InitSchema() error {
	schema := `
	-- Operators table
	CREATE TABLE IF NOT EXISTS operators (
		id BIGSERIAL PRIMARY KEY,
		username VARCHAR(255) UNIQUE NOT NULL,
		hashed_password VARCHAR(255) NOT NULL,
		created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
	);

	-- Demo runs table (no keys or secrets are stored)
	CREATE TABLE IF NOT EXISTS demo_runs (
		id BIGSERIAL PRIMARY KEY,
		run_id VARCHAR(36) UNIQUE NOT NULL,
		algorithm VARCHAR(50) NOT NULL,
		mode VARCHAR(50) NOT NULL,
		padding VARCHAR(50) NOT NULL,
		block_size INTEGER NOT NULL,
		secret_length INTEGER NOT NULL,
		recovered_bytes INTEGER NOT NULL,
		complete BOOLEAN NOT NULL,
		queries BIGINT NOT NULL,
		steps INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_demo_runs_created_at ON demo_runs(created_at DESC);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// Operator operations

// CreateOperator creates a new operator with hashed password
func (db *DB) CreateOperator(username, hashedPassword string) (int64, error) {
	var id int64
	err := db.conn.QueryRow(
		"INSERT INTO operators (username, hashed_password) VALUES ($1, $2) RETURNING id",
		username, hashedPassword,
	).Scan(&id)
	return id, err
}

// GetOperatorByUsername retrieves an operator by username. A missing
// operator is reported as nil, nil.
func (db *DB) GetOperatorByUsername(username string) (*protocol.Operator, error) {
	op := &protocol.Operator{}
	err := db.conn.QueryRow(
		"SELECT id, username, hashed_password, created_at FROM operators WHERE username = $1",
		username,
	).Scan(&op.ID, &op.Username, &op.HashedPassword, &op.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	return op, err
}

// Run operations

// SaveRun stores a run summary and fills in its ID.
func (db *DB) SaveRun(ctx context.Context, rec *protocol.RunRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return db.conn.QueryRowContext(ctx,
		`INSERT INTO demo_runs (run_id, algorithm, mode, padding, block_size, secret_length, recovered_bytes, complete, queries, steps, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`,
		rec.RunID, rec.Algorithm, rec.Mode, rec.Padding, rec.BlockSize, rec.SecretLength,
		rec.RecoveredBytes, rec.Complete, rec.Queries, rec.Steps, rec.CreatedAt,
	).Scan(&rec.ID)
}

// ListRuns returns the most recent runs first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]*protocol.RunRecord, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, run_id, algorithm, mode, padding, block_size, secret_length, recovered_bytes, complete, queries, steps, created_at
		FROM demo_runs ORDER BY created_at DESC, id DESC LIMIT $1`,
		normalizeLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*protocol.RunRecord
	for rows.Next() {
		rec := &protocol.RunRecord{}
		err := rows.Scan(&rec.ID, &rec.RunID, &rec.Algorithm, &rec.Mode, &rec.Padding, &rec.BlockSize,
			&rec.SecretLength, &rec.RecoveredBytes, &rec.Complete, &rec.Queries, &rec.Steps, &rec.CreatedAt)
		if err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}

	return runs, rows.Err()
}
