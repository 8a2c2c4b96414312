package source

import (
	"context"

	"adspend/internal/core"
)

// Ports for upstream row providers.
type (
	// RowSource returns the full upstream table. Implementations never retry;
	// a failed fetch is reported once and the caller decides what to do.
	RowSource interface {
		FetchRows(ctx context.Context) ([]core.RawRecord, error)
	}

	// Named is implemented by sources that can describe themselves in logs
	// and snapshots.
	Named interface {
		Name() string
	}
)

// NameOf returns src's name, or "unknown" when it does not report one.
func NameOf(src RowSource) string {
	if n, ok := src.(Named); ok {
		return n.Name()
	}
	return "unknown"
}
