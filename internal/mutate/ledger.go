package mutate

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, no CGO

	"github.com/cerberus-code/cerberus/internal/cerrors"
	"github.com/cerberus-code/cerberus/pkg/cerberus/model"
)

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS mutation_ledger (
	id                    INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp             INTEGER NOT NULL,
	operation             TEXT NOT NULL,
	file                  TEXT NOT NULL,
	symbol                TEXT NOT NULL,
	lines_changed         INTEGER NOT NULL,
	lines_total           INTEGER NOT NULL,
	tokens_saved_estimate INTEGER NOT NULL,
	backup_path           TEXT NOT NULL
);
`

// Ledger is the append-only record of every mutation applied, persisted
// to its own SQLite file per spec.md §6's directory layout (ledger.db
// beside index.db, not inside it — a mutation history has a different
// retention/rotation story than the symbol index).
type Ledger struct {
	db *sql.DB
}

// OpenLedger creates or opens the mutation ledger at path.
func OpenLedger(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, cerrors.StoreWriteError("failed to create ledger directory", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, cerrors.StoreWriteError("failed to open ledger database", err)
	}
	if _, err := db.Exec(ledgerSchema); err != nil {
		_ = db.Close()
		return nil, cerrors.StoreWriteError("failed to initialize ledger schema", err)
	}
	return &Ledger{db: db}, nil
}

// Append records one mutation.
func (l *Ledger) Append(ctx context.Context, entry model.MutationLedgerEntry) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO mutation_ledger
			(timestamp, operation, file, symbol, lines_changed, lines_total, tokens_saved_estimate, backup_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.Timestamp.UnixNano(), string(entry.Operation), entry.File, entry.Symbol,
		entry.LinesChanged, entry.LinesTotal, entry.TokensSavedEstimate, entry.BackupPath)
	if err != nil {
		return cerrors.StoreWriteError("failed to append ledger entry", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}
