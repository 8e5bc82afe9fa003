package amqp

import (
	"encoding/json"
	"time"

	"finledger/internal/core"
)

// AlertMessage is the lightweight notification envelope published when
// an alert is recorded. It carries identifiers only; consumers fetch
// the full alert from the store, so a stale or replayed message can
// never deliver outdated content.
type AlertMessage struct {
	ID        int64          `json:"id"`
	Owner     string         `json:"owner"`
	Type      core.AlertType `json:"type"`
	Severity  core.Severity  `json:"severity"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewAlertMessage builds the envelope for a stored alert.
func NewAlertMessage(alert core.Alert) *AlertMessage {
	return &AlertMessage{
		ID:        alert.ID,
		Owner:     alert.Owner,
		Type:      alert.Type,
		Severity:  alert.Severity,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *AlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// AlertMessageFromJSON creates a message from JSON bytes
func AlertMessageFromJSON(data []byte) (*AlertMessage, error) {
	var msg AlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
