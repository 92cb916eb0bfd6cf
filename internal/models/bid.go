package models

import "time"

// Bid rows are immutable after insert. At most one bid per item is ever
// accepted; the rest simply remain on record.
type Bid struct {
	ID        int64     `json:"id" db:"id"`
	ItemID    int64     `json:"item_id" db:"item_id"`
	BidderID  int64     `json:"bidder_id" db:"bidder_id"`
	Amount    int64     `json:"amount" db:"amount"` // in cents
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
