package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// SnapshotUpdatedMessage announces that the worker stored a new upstream
// snapshot. Consumers load the rows from the snapshot store by SnapshotID.
type SnapshotUpdatedMessage struct {
	ID         string    `json:"id"`
	SnapshotID int64     `json:"snapshot_id"`
	Source     string    `json:"source"`
	RowCount   int       `json:"row_count"`
	FetchedAt  time.Time `json:"fetched_at"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewSnapshotUpdatedMessage creates a message with a fresh id.
func NewSnapshotUpdatedMessage(snapshotID int64, source string, rowCount int, fetchedAt time.Time) *SnapshotUpdatedMessage {
	return &SnapshotUpdatedMessage{
		ID:         uuid.NewString(),
		SnapshotID: snapshotID,
		Source:     source,
		RowCount:   rowCount,
		FetchedAt:  fetchedAt,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SnapshotUpdatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SnapshotUpdatedMessageFromJSON decodes a message and rejects one without a
// snapshot id.
func SnapshotUpdatedMessageFromJSON(data []byte) (*SnapshotUpdatedMessage, error) {
	var msg SnapshotUpdatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.SnapshotID <= 0 {
		return nil, errors.New("message has no snapshot id")
	}
	return &msg, nil
}
