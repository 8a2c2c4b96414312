package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"adspend/internal/core"
)

func TestStoreFetchAndReplace(t *testing.T) {
	s := New([]core.RawRecord{{"Date": "01/01/2024"}})
	recs, err := s.FetchRows(context.Background())
	if err != nil || len(recs) != 1 {
		t.Fatalf("unexpected fetch: recs=%v err=%v", recs, err)
	}

	s.Replace([]core.RawRecord{{"a": 1}, {"b": 2}})
	recs, _ = s.FetchRows(context.Background())
	if len(recs) != 2 {
		t.Fatalf("expected replaced records, got %v", recs)
	}
	if s.Fetches() != 2 {
		t.Fatalf("Fetches = %d, want 2", s.Fetches())
	}
}

func TestStoreFailWith(t *testing.T) {
	s := New(nil)
	boom := errors.New("boom")
	s.FailWith(boom)
	if _, err := s.FetchRows(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	s.FailWith(nil)
	if _, err := s.FetchRows(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFromFile(filepath.Join(dir, "missing.json"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if recs, _ := s.FetchRows(context.Background()); len(recs) != 0 {
		t.Fatalf("expected empty store, got %v", recs)
	}

	path := filepath.Join(dir, "rows.json")
	if err := os.WriteFile(path, []byte(`[{"Date":"01/02/2024","Spend":1000},{"Date":"02/02/2024"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err = NewFromFile(path)
	if err != nil {
		t.Fatalf("NewFromFile: %v", err)
	}
	recs, _ := s.FetchRows(context.Background())
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}

	bad := filepath.Join(dir, "bad.json")
	_ = os.WriteFile(bad, []byte(`{"not":"an array"}`), 0o644)
	if _, err := NewFromFile(bad); err == nil {
		t.Fatal("expected decode error for non-array seed")
	}
}
