package storage

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"adspend/internal/core"
	"adspend/internal/source"

	_ "modernc.org/sqlite"
)

// ErrNoSnapshot is returned when no snapshot has been stored yet.
var ErrNoSnapshot = errors.New("no snapshot stored")

var _ source.RowSource = (*SQLiteRepository)(nil)

// Snapshot is one stored upstream fetch.
type Snapshot struct {
	ID        int64
	Source    string
	FetchedAt time.Time
	RowCount  int
	Records   []core.RawRecord
}

// SQLiteRepository stores upstream snapshots in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Name() string {
	return "sqlite"
}

// Save stores records as a new snapshot and returns its id.
func (r *SQLiteRepository) Save(ctx context.Context, src string, records []core.RawRecord, fetchedAt time.Time) (int64, error) {
	if records == nil {
		records = []core.RawRecord{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return 0, fmt.Errorf("marshal snapshot: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO snapshots (source, fetched_at, row_count, payload) VALUES (?, ?, ?, ?)`,
		src, fetchedAt.UTC().Format(time.RFC3339Nano), len(records), string(payload))
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("snapshot id: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot saved to SQLite",
		"id", id,
		"source", src,
		"rows", len(records))
	return id, nil
}

// Latest returns the most recently stored snapshot, or ErrNoSnapshot.
func (r *SQLiteRepository) Latest(ctx context.Context) (Snapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, source, fetched_at, row_count, payload FROM snapshots ORDER BY id DESC LIMIT 1`)
	return scanSnapshot(row)
}

// Get returns the snapshot with the given id, or ErrNoSnapshot.
func (r *SQLiteRepository) Get(ctx context.Context, id int64) (Snapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, source, fetched_at, row_count, payload FROM snapshots WHERE id = ?`, id)
	return scanSnapshot(row)
}

// Prune deletes all but the newest keep snapshots and returns how many were
// removed.
func (r *SQLiteRepository) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		keep = 1
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE id NOT IN (SELECT id FROM snapshots ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	if n > 0 {
		slog.DebugContext(ctx, "Pruned old snapshots", "removed", n, "kept", keep)
	}
	return n, nil
}

// FetchRows serves the latest snapshot as the upstream table. No snapshot
// means no rows.
func (r *SQLiteRepository) FetchRows(ctx context.Context) ([]core.RawRecord, error) {
	snap, err := r.Latest(ctx)
	if errors.Is(err, ErrNoSnapshot) {
		return []core.RawRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	return snap.Records, nil
}

func scanSnapshot(row *sql.Row) (Snapshot, error) {
	var (
		s         Snapshot
		fetchedAt string
		payload   string
	)
	if err := row.Scan(&s.ID, &s.Source, &fetchedAt, &s.RowCount, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, ErrNoSnapshot
		}
		return Snapshot{}, fmt.Errorf("scan snapshot: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, fetchedAt)
	if err != nil {
		return Snapshot{}, fmt.Errorf("parse fetched_at %q: %w", fetchedAt, err)
	}
	s.FetchedAt = t

	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.UseNumber()
	if err := dec.Decode(&s.Records); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot %d: %w", s.ID, err)
	}
	return s, nil
}
