package storage

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"adspend/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "adspend.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestLatestWithoutSnapshots(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Latest(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
	recs, err := repo.FetchRows(ctx)
	if err != nil || len(recs) != 0 {
		t.Fatalf("expected empty rows, got %v err=%v", recs, err)
	}
}

func TestSaveAndLatest(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)

	if _, err := repo.Save(ctx, "appsheet:data_ads", []core.RawRecord{{"Date": "01/02/2024"}}, at); err != nil {
		t.Fatalf("Save: %v", err)
	}
	id, err := repo.Save(ctx, "appsheet:data_ads", []core.RawRecord{
		{"Date": "01/03/2024", "Spend": json.Number("1500")},
		{"Date": "02/03/2024", "Spend": "20"},
	}, at.Add(time.Hour))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	snap, err := repo.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if snap.ID != id || snap.RowCount != 2 || snap.Source != "appsheet:data_ads" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if !snap.FetchedAt.Equal(at.Add(time.Hour)) {
		t.Fatalf("FetchedAt = %v", snap.FetchedAt)
	}
	if n, ok := snap.Records[0]["Spend"].(json.Number); !ok || n.String() != "1500" {
		t.Fatalf("Spend = %#v", snap.Records[0]["Spend"])
	}

	recs, err := repo.FetchRows(ctx)
	if err != nil || len(recs) != 2 {
		t.Fatalf("FetchRows = %v, %v", recs, err)
	}
}

func TestPrune(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	var last int64
	for i := 0; i < 5; i++ {
		id, err := repo.Save(ctx, "memory", nil, time.Now())
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
		last = id
	}

	removed, err := repo.Prune(ctx, 2)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 3 {
		t.Fatalf("removed = %d, want 3", removed)
	}
	if _, err := repo.Get(ctx, last); err != nil {
		t.Fatalf("newest snapshot must survive: %v", err)
	}
	if _, err := repo.Get(ctx, last-2); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("old snapshot should be gone, got %v", err)
	}
}
