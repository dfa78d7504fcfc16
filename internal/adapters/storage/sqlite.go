package storage

// sqlite.go: roster, snapshots, ledger de señales y directorio de chats.
//
// Estrategia:
//   - `wallets`: la watch list. Nunca se borra, se desactiva con `active = 0`.
//   - `position_snapshots`: una fila por wallet y scan, posiciones netas en JSON.
//     Es histórico de auditoría; se poda a los 30 días.
//   - `signals`: UNIQUE(market_id, side, day). El insert-if-absent sobre esta clave
//     es la única autoridad sobre "ya notificada hoy".
//   - `chats`: destinatarios registrados y su flag de silencio.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/consensusbot/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS wallets (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    address  TEXT    NOT NULL UNIQUE,
    alias    TEXT    NOT NULL DEFAULT '',
    active   INTEGER NOT NULL DEFAULT 1,
    added_at TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS position_snapshots (
    id              TEXT    PRIMARY KEY,
    wallet_id       INTEGER NOT NULL,
    wallet_address  TEXT    NOT NULL,
    portfolio_value REAL    NOT NULL DEFAULT 0,
    raw_count       INTEGER NOT NULL DEFAULT 0,
    positions       TEXT    NOT NULL,
    taken_at        TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS signals (
    id               TEXT    PRIMARY KEY,
    market_id        TEXT    NOT NULL,
    market_title     TEXT    NOT NULL DEFAULT '',
    market_slug      TEXT    NOT NULL DEFAULT '',
    side             TEXT    NOT NULL,
    day              TEXT    NOT NULL,
    wallet_count     INTEGER NOT NULL,
    total_value      REAL    NOT NULL,
    avg_value        REAL    NOT NULL,
    confidence_score INTEGER NOT NULL,
    confidence_level TEXT    NOT NULL,
    breakdown        TEXT    NOT NULL,
    wallets          TEXT    NOT NULL,
    detected_at      TEXT    NOT NULL,
    notified_at      TEXT,
    UNIQUE (market_id, side, day)
);

CREATE TABLE IF NOT EXISTS chats (
    chat_id       INTEGER PRIMARY KEY,
    muted         INTEGER NOT NULL DEFAULT 0,
    registered_at TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_wallet ON position_snapshots(wallet_id, taken_at DESC);
CREATE INDEX IF NOT EXISTS idx_snapshots_taken  ON position_snapshots(taken_at);
CREATE INDEX IF NOT EXISTS idx_signals_detected ON signals(detected_at DESC);
`

// retentionSnapshots es cuánto histórico de snapshots se conserva.
const retentionSnapshots = 30 * 24 * time.Hour

// timeLayout es el formato de las columnas de fecha (TEXT, UTC, ordenable).
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var (
	ErrInvalidAddress = domain.ErrInvalidAddress
	ErrWalletNotFound = domain.ErrWalletNotFound
	// ErrSignalNotFound indica que no existe una señal con ese ID.
	ErrSignalNotFound = errors.New("storage: signal not found")
)

// SQLiteStorage implementa WalletStore, SnapshotStore, SignalLedger y ChatDirectory
// usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y poda los snapshots antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db, now: time.Now}
	s.pruneOld(context.Background())
	return s, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// pruneOld elimina snapshots antiguos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := formatTime(s.now().Add(-retentionSnapshots))
	s.db.ExecContext(ctx, `DELETE FROM position_snapshots WHERE taken_at < ?`, cutoff)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
