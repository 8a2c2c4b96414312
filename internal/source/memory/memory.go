package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"adspend/internal/core"
	"adspend/internal/source"
)

var _ source.RowSource = (*Store)(nil)

// Store serves a fixed set of records, for local development and tests.
type Store struct {
	mu      sync.Mutex
	records []core.RawRecord
	fetches int
	err     error
}

func New(records []core.RawRecord) *Store {
	return &Store{records: records}
}

// NewFromFile seeds the store from a JSON array file. A missing file yields
// an empty store.
func NewFromFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var records []core.RawRecord
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	return New(records), nil
}

func (s *Store) Name() string {
	return "memory"
}

// FetchRows returns a copy of the stored records, or the configured error.
func (s *Store) FetchRows(_ context.Context) ([]core.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.err != nil {
		return nil, s.err
	}
	return append([]core.RawRecord(nil), s.records...), nil
}

// Replace swaps the stored records wholesale.
func (s *Store) Replace(records []core.RawRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
}

// FailWith makes subsequent fetches return err. A nil err clears it.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Fetches returns how many times FetchRows was called.
func (s *Store) Fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}
