package audit

import (
	"encoding/json"
	"log"
	"time"
)

type Event struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	Reference string    `json:"reference"`
	UserID    int64     `json:"user_id,omitempty"`
	Amount    int64     `json:"amount,omitempty"`
	Status    string    `json:"status"`
	Details   any       `json:"details,omitempty"`
}

type Logger struct{}

func NewLogger() *Logger {
	return &Logger{}
}

func (a *Logger) LogSettlement(reference string, buyerID, sellerID, amount int64, status string) {
	event := Event{
		Timestamp: time.Now(),
		EventType: "SETTLEMENT",
		Reference: reference,
		Amount:    amount,
		Status:    status,
		Details: map[string]int64{
			"buyer_id":  buyerID,
			"seller_id": sellerID,
		},
	}
	a.log(event)
}

func (a *Logger) LogError(reference string, userID int64, err error) {
	event := Event{
		Timestamp: time.Now(),
		EventType: "ERROR",
		Reference: reference,
		UserID:    userID,
		Status:    "FAILED",
		Details:   map[string]string{"error": err.Error()},
	}
	a.log(event)
}

func (a *Logger) LogOperation(reference string, userID int64, operation, details string) {
	event := Event{
		Timestamp: time.Now(),
		EventType: operation,
		Reference: reference,
		UserID:    userID,
		Status:    "SUCCESS",
		Details:   map[string]string{"details": details},
	}
	a.log(event)
}

func (a *Logger) log(event Event) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
