package amqp

import (
	"encoding/json"
	"time"
)

// LedgerSyncMessage is a lightweight pointer to an imported ledger row.
// It carries only the local row ID and year; the worker fetches the
// full row from the database before pushing it to the sheet.
type LedgerSyncMessage struct {
	ID        int64     `json:"id"`
	Year      int       `json:"year"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerSyncMessage creates a new sync message for one ledger row
func NewLedgerSyncMessage(id int64, year int) *LedgerSyncMessage {
	return &LedgerSyncMessage{
		ID:        id,
		Year:      year,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerSyncMessageFromJSON creates a message from JSON bytes
func LedgerSyncMessageFromJSON(data []byte) (*LedgerSyncMessage, error) {
	var msg LedgerSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
