package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/rmtavares/splitbook/internal/domain"
)

const (
	recordLedger  = "ledger"
	recordSyncKey = "sync_key"
)

// PostgresStore keeps each record as a single jsonb row, mirroring the
// remote store's keyed-upsert contract. Schema lives in migrations/.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresDB opens and pings a connection pool.
func NewPostgresDB(ctx context.Context, databaseURL string, maxOpen, maxIdle int) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresDB: open: %w", err)
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewPostgresDB: ping: %w", err)
	}
	return db, nil
}

func (s *PostgresStore) LoadLedger(ctx context.Context) (domain.Ledger, error) {
	data, err := s.get(ctx, recordLedger)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Ledger{}, ErrNoSnapshot
	}
	if err != nil {
		return domain.Ledger{}, fmt.Errorf("LoadLedger: %w", err)
	}

	l, err := DecodeLedger(data)
	if err != nil {
		return domain.Ledger{}, fmt.Errorf("LoadLedger: %s: %w", err, ErrNoSnapshot)
	}
	return l, nil
}

func (s *PostgresStore) SaveLedger(ctx context.Context, l domain.Ledger) error {
	data, err := EncodeLedger(l)
	if err != nil {
		return fmt.Errorf("SaveLedger: %w", err)
	}
	if err := s.put(ctx, recordLedger, data); err != nil {
		return fmt.Errorf("SaveLedger: %w", err)
	}
	return nil
}

func (s *PostgresStore) LoadSyncKey(ctx context.Context) (string, error) {
	data, err := s.get(ctx, recordSyncKey)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("LoadSyncKey: %w", err)
	}

	var key string
	if err := json.Unmarshal(data, &key); err != nil {
		return "", fmt.Errorf("LoadSyncKey: %w", err)
	}
	return key, nil
}

func (s *PostgresStore) SaveSyncKey(ctx context.Context, key string) error {
	data, err := json.Marshal(key)
	if err != nil {
		return fmt.Errorf("SaveSyncKey: %w", err)
	}
	if err := s.put(ctx, recordSyncKey, data); err != nil {
		return fmt.Errorf("SaveSyncKey: %w", err)
	}
	return nil
}

func (s *PostgresStore) ClearSyncKey(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE name = $1`, recordSyncKey)
	if err != nil {
		return fmt.Errorf("ClearSyncKey: %w", err)
	}
	return nil
}

func (s *PostgresStore) get(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM records WHERE name = $1`, name,
	).Scan(&data)
	return data, err
}

func (s *PostgresStore) put(ctx context.Context, name string, content []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (name, content, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO UPDATE SET content = $2, updated_at = $3`,
		name, content, time.Now().UTC(),
	)
	return err
}
