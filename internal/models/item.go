package models

import "time"

// Item lifecycle is one-way: active items close on settlement or deadline
// expiry and never reopen.
const (
	ItemStatusActive = "active"
	ItemStatusClosed = "closed"
)

const (
	ItemTypeSale = "sale"
	ItemTypeRent = "rent"
)

type Item struct {
	ID            int64     `json:"id" db:"id"`
	OwnerID       int64     `json:"owner_id" db:"owner_id"`
	Name          string    `json:"name" db:"name"`
	Description   string    `json:"description" db:"description"`
	StartingPrice int64     `json:"starting_price" db:"starting_price"` // in cents
	CurrentPrice  int64     `json:"current_price" db:"current_price"`   // accepted bid once closed
	Type          string    `json:"type" db:"type"`
	Status        string    `json:"status" db:"status"`
	Deadline      time.Time `json:"deadline" db:"deadline"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
