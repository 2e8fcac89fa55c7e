package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/FairForge/webpixels/internal/config"
	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

// PostgresStore keeps pixel records in PostgreSQL.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresStore opens a connection pool for cfg.
func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return NewPostgresStoreFromDB(db), nil
}

// NewPostgresStoreFromDB wraps an existing handle.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// CreateTables creates the web_pixels table.
func (p *PostgresStore) CreateTables(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS web_pixels (
		store VARCHAR(255) PRIMARY KEY,
		pixel_id VARCHAR(255) NOT NULL,
		name VARCHAR(255) NOT NULL,
		settings TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`
	if _, err := p.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, store string) (*Record, error) {
	query := `SELECT store, pixel_id, name, settings, created_at, updated_at
		FROM web_pixels WHERE store = $1`

	var (
		rec Record
		raw string
	)
	err := p.db.QueryRowContext(ctx, query, store).Scan(
		&rec.Store,
		&rec.PixelID,
		&rec.Name,
		&raw,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query pixel settings: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), &rec.Settings); err != nil {
		return nil, fmt.Errorf("decode pixel settings for %s: %w", store, err)
	}
	return &rec, nil
}

func (p *PostgresStore) Create(ctx context.Context, rec *Record) error {
	raw, err := encodeSettings(rec.Settings)
	if err != nil {
		return err
	}
	now := p.now().UTC()

	query := `INSERT INTO web_pixels (store, pixel_id, name, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)`
	_, err = p.db.ExecContext(ctx, query, rec.Store, rec.PixelID, rec.Name, raw, now)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrExists
		}
		return fmt.Errorf("insert pixel settings: %w", err)
	}

	rec.CreatedAt, rec.UpdatedAt = now, now
	return nil
}

func (p *PostgresStore) Update(ctx context.Context, rec *Record) error {
	raw, err := encodeSettings(rec.Settings)
	if err != nil {
		return err
	}
	now := p.now().UTC()

	query := `UPDATE web_pixels SET pixel_id = $2, name = $3, settings = $4, updated_at = $5
		WHERE store = $1`
	res, err := p.db.ExecContext(ctx, query, rec.Store, rec.PixelID, rec.Name, raw, now)
	if err != nil {
		return fmt.Errorf("update pixel settings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update pixel settings: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	rec.UpdatedAt = now
	return nil
}

func encodeSettings(m map[string]string) (string, error) {
	if m == nil {
		m = map[string]string{}
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode pixel settings: %w", err)
	}
	return string(raw), nil
}

// Open returns the store selected by cfg.Driver.
func Open(cfg config.DatabaseConfig) (Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case "postgres", "":
		return NewPostgresStore(cfg)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
