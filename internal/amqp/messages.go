package amqp

import (
	"encoding/json"
	"time"
)

// ImportCompletedMessage notifies workers that an invoice import finished
// for a user. It carries only identifiers and counts; the worker reads
// the imported plans back from the database.
type ImportCompletedMessage struct {
	UserID    string    `json:"user_id"`
	Year      int       `json:"year"`
	Imported  int       `json:"imported"`
	Skipped   int       `json:"skipped"`
	Timestamp time.Time `json:"timestamp"`
}

func NewImportCompletedMessage(userID string, year, imported, skipped int) *ImportCompletedMessage {
	return &ImportCompletedMessage{
		UserID:    userID,
		Year:      year,
		Imported:  imported,
		Skipped:   skipped,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ImportCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ImportCompletedMessageFromJSON creates a message from JSON bytes
func ImportCompletedMessageFromJSON(data []byte) (*ImportCompletedMessage, error) {
	var msg ImportCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
