package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vitos/okx_trade_hook/internal/domain"
)

// SQLiteStore persists each account's symbol records as a single JSON
// document keyed by api key. Granularity is the whole per-account set:
// the monitor and the order handler both do load-mutate-save, and each
// load/save runs in its own transaction.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `CREATE TABLE IF NOT EXISTS symbol_records (
		api_key TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}

// Load returns the account's record set, or an empty map when the
// account has never persisted anything. Records written by older
// deployments may lack newer trailing fields; json.Unmarshal leaves
// those at zero values and a zero tier activation reads as "tier
// inactive", so legacy rows need no migration.
func (s *SQLiteStore) Load(ctx context.Context, accountKey string) (map[string]*domain.SymbolRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var data string
	err = tx.QueryRowContext(ctx, "SELECT data FROM symbol_records WHERE api_key = ?", accountKey).Scan(&data)
	if err == sql.ErrNoRows {
		return map[string]*domain.SymbolRecord{}, tx.Commit()
	}
	if err != nil {
		return nil, err
	}

	records := map[string]*domain.SymbolRecord{}
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		return nil, fmt.Errorf("decode symbol records for %s: %w", accountKey, err)
	}
	return records, tx.Commit()
}

func (s *SQLiteStore) Save(ctx context.Context, accountKey string, records map[string]*domain.SymbolRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode symbol records for %s: %w", accountKey, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO symbol_records (api_key, data, updated_at) VALUES (?, ?, ?)",
		accountKey, string(data), time.Now().UTC())
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
