package models

import "time"

// Transaction records one settled sale. Rows are append-only: never updated,
// never deleted. Amount is the amount actually transferred, net of any VIP
// discount, which may be less than the accepted bid.
type Transaction struct {
	ID        int64     `json:"id" db:"id"`
	Reference string    `json:"reference" db:"reference"`
	ItemID    int64     `json:"item_id" db:"item_id"`
	BuyerID   int64     `json:"buyer_id" db:"buyer_id"`
	SellerID  int64     `json:"seller_id" db:"seller_id"`
	Amount    int64     `json:"amount" db:"amount"` // in cents
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

const (
	EntryTypeDeposit  = "deposit"
	EntryTypeWithdraw = "withdraw"
)

// BalanceEntry logs a deposit or withdrawal. Settlement transfers are not
// duplicated here; the transactions table is their ledger.
type BalanceEntry struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Amount    int64     `json:"amount" db:"amount"` // in cents
	EntryType string    `json:"entry_type" db:"entry_type"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
