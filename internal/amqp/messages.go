package amqp

import (
	"encoding/json"
	"time"
)

// DiffNotification announces that a diff file was written for a budget.
// It carries only the budget id, the file path and the knowledge stamp of
// the round; consumers read the file itself from the shared folder.
type DiffNotification struct {
	BudgetID  string    `json:"budgetId"`
	DiffFile  string    `json:"diffFile"`
	Knowledge int64     `json:"knowledge"`
	Timestamp time.Time `json:"timestamp"`
}

// NewDiffNotification creates a notification for a written diff file.
func NewDiffNotification(budgetID, diffFile string, knowledge int64) *DiffNotification {
	return &DiffNotification{
		BudgetID:  budgetID,
		DiffFile:  diffFile,
		Knowledge: knowledge,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the notification to JSON bytes
func (m *DiffNotification) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DiffNotificationFromJSON creates a notification from JSON bytes
func DiffNotificationFromJSON(data []byte) (*DiffNotification, error) {
	var msg DiffNotification
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
