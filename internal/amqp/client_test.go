package amqp

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},  // capped at 30s
		{10, 30 * time.Second}, // capped at 30s
		{15, 30 * time.Second}, // capped at 30s
		{62, 30 * time.Second}, // shift would overflow int64 nanoseconds
		{63, 30 * time.Second},
		{100, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			result := exponentialBackoff(tt.attempt)
			if result != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, result, tt.expected)
			}
		})
	}
}

func TestExponentialBackoff_AlwaysPositiveAndCapped(t *testing.T) {
	// A long broker outage drives the attempt counter arbitrarily high; the
	// wait must stay a real sleep, never a zero-length hot loop.
	for attempt := 0; attempt <= 128; attempt++ {
		backoff := exponentialBackoff(attempt)
		if backoff <= 0 || backoff > 30*time.Second {
			t.Fatalf("exponentialBackoff(%d) = %v, want within (0s, 30s]", attempt, backoff)
		}
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "connection error",
			err:      errors.New("connection refused"),
			expected: true,
		},
		{
			name:     "closed connection error",
			err:      errors.New("connection closed"),
			expected: true,
		},
		{
			name:     "closed channel error",
			err:      errors.New("message channel closed"),
			expected: true,
		},
		{
			name:     "EOF error",
			err:      errors.New("unexpected EOF"),
			expected: true,
		},
		{
			name:     "broken pipe error",
			err:      errors.New("broken pipe"),
			expected: true,
		},
		{
			name:     "closed network connection error",
			err:      errors.New("use of closed network connection"),
			expected: true,
		},
		{
			name:     "other error",
			err:      errors.New("some other error"),
			expected: false,
		},
		{
			name:     "validation error",
			err:      errors.New("invalid input"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isConnectionError(tt.err)
			if result != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestNewDiffNotification(t *testing.T) {
	msg := NewDiffNotification("budget-1", "/data/Envelope/diffs/budget-1/1700000000000.diff", 42)

	if msg.BudgetID != "budget-1" {
		t.Errorf("BudgetID = %v, want budget-1", msg.BudgetID)
	}
	if msg.Knowledge != 42 {
		t.Errorf("Knowledge = %v, want 42", msg.Knowledge)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestDiffNotification_JSON(t *testing.T) {
	timestamp := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := &DiffNotification{
		BudgetID:  "budget-1",
		DiffFile:  "/data/Envelope/diffs/budget-1/1700000000000.diff",
		Knowledge: 7,
		Timestamp: timestamp,
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsedMsg, err := DiffNotificationFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("DiffNotificationFromJSON() error = %v", err)
	}

	if parsedMsg.BudgetID != msg.BudgetID {
		t.Errorf("Parsed BudgetID = %v, want %v", parsedMsg.BudgetID, msg.BudgetID)
	}
	if parsedMsg.DiffFile != msg.DiffFile {
		t.Errorf("Parsed DiffFile = %v, want %v", parsedMsg.DiffFile, msg.DiffFile)
	}
	if parsedMsg.Knowledge != msg.Knowledge {
		t.Errorf("Parsed Knowledge = %v, want %v", parsedMsg.Knowledge, msg.Knowledge)
	}
	if !parsedMsg.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsedMsg.Timestamp, msg.Timestamp)
	}
}

func TestDiffNotification_InvalidJSON(t *testing.T) {
	invalidJSON := []byte(`{"budgetId": 42, "knowledge": "not_a_number"}`)

	_, err := DiffNotificationFromJSON(invalidJSON)
	if err == nil {
		t.Error("DiffNotificationFromJSON() should fail with invalid JSON")
	}
}
