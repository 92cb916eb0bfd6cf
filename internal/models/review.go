package models

import "time"

const (
	ComplaintStatusOpen     = "open"
	ComplaintStatusResolved = "resolved"
)

// Review is a post-settlement rating between transaction participants.
// One review per (transaction, reviewer); resubmitting replaces it.
type Review struct {
	ID            int64     `json:"id" db:"id"`
	TransactionID int64     `json:"transaction_id" db:"transaction_id"`
	ReviewerID    int64     `json:"reviewer_id" db:"reviewer_id"`
	RecipientID   int64     `json:"recipient_id" db:"recipient_id"`
	Rating        int       `json:"rating" db:"rating"` // 1 to 5
	Description   string    `json:"description" db:"description"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

type Complaint struct {
	ID            int64     `json:"id" db:"id"`
	TransactionID int64     `json:"transaction_id" db:"transaction_id"`
	ComplainantID int64     `json:"complainant_id" db:"complainant_id"`
	TargetID      int64     `json:"target_id" db:"target_id"`
	Description   string    `json:"description" db:"description"`
	Status        string    `json:"status" db:"status"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
