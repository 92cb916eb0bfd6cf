package services

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/csc-322-team/ebidding-system/internal/models"
)

// Read-side lookups for the request-handling layer. These are plain reads
// with no invariant logic of their own.

// GetItem fetches a single item by id.
func (s *SettlementService) GetItem(ctx context.Context, itemID int64) (*models.Item, error) {
	var item models.Item
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, description, starting_price, current_price, type, status, deadline, created_at
		FROM items
		WHERE id = $1`, itemID).Scan(
		&item.ID, &item.OwnerID, &item.Name, &item.Description, &item.StartingPrice,
		&item.CurrentPrice, &item.Type, &item.Status, &item.Deadline, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, storageErr(err)
	}
	return &item, nil
}

// ListBids returns all bids on an item ordered by descending amount.
func (s *SettlementService) ListBids(ctx context.Context, itemID int64) ([]models.Bid, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, bidder_id, amount, expires_at, created_at
		FROM bids
		WHERE item_id = $1
		ORDER BY amount DESC`, itemID)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	bids := []models.Bid{}
	for rows.Next() {
		var bid models.Bid
		err := rows.Scan(&bid.ID, &bid.ItemID, &bid.BidderID, &bid.Amount, &bid.ExpiresAt, &bid.CreatedAt)
		if err != nil {
			return nil, storageErr(err)
		}
		bids = append(bids, bid)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}

	return bids, nil
}

// GetUserBalance returns a user's current balance in cents.
func (s *SettlementService) GetUserBalance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, `
		SELECT balance
		FROM users
		WHERE id = $1`, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, storageErr(err)
	}
	return balance, nil
}

// ListUserTransactions returns settled transactions the user took part in,
// newest first.
func (s *SettlementService) ListUserTransactions(ctx context.Context, userID int64, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, reference, item_id, buyer_id, seller_id, amount, created_at
		FROM transactions
		WHERE buyer_id = $1 OR seller_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		var t models.Transaction
		err := rows.Scan(&t.ID, &t.Reference, &t.ItemID, &t.BuyerID, &t.SellerID, &t.Amount, &t.CreatedAt)
		if err != nil {
			return nil, storageErr(err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}

	return transactions, nil
}

// CreateItemInput carries a new listing from the request-handling layer.
type CreateItemInput struct {
	OwnerID       int64     `json:"owner_id" validate:"required"`
	Name          string    `json:"name" validate:"required"`
	Description   string    `json:"description"`
	StartingPrice int64     `json:"starting_price" validate:"required,gt=0"`
	Type          string    `json:"type" validate:"required,oneof=sale rent"`
	Deadline      time.Time `json:"deadline" validate:"required"`
}

// CreateItem lists a new item. The current price starts at the starting
// price and only changes when a bid is accepted.
func (s *SettlementService) CreateItem(ctx context.Context, input CreateItemInput) (*models.Item, error) {
	if err := s.validator.ValidateStruct(&input); err != nil {
		return nil, err
	}

	if input.Deadline.Before(time.Now()) {
		return nil, ErrPastDeadline
	}

	item := &models.Item{
		OwnerID:       input.OwnerID,
		Name:          input.Name,
		Description:   input.Description,
		StartingPrice: input.StartingPrice,
		CurrentPrice:  input.StartingPrice,
		Type:          input.Type,
		Status:        models.ItemStatusActive,
		Deadline:      input.Deadline,
		CreatedAt:     time.Now(),
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO items (owner_id, name, description, starting_price, current_price, type, status, deadline, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		item.OwnerID, item.Name, item.Description, item.StartingPrice, item.CurrentPrice,
		item.Type, item.Status, item.Deadline, item.CreatedAt,
	).Scan(&item.ID)
	if err != nil {
		return nil, storageErr(err)
	}

	log.Printf("[SETTLEMENT] Item %d listed by user %d at %d", item.ID, item.OwnerID, item.StartingPrice)
	return item, nil
}

// CloseExpiredItems closes active items whose deadline has passed and
// returns how many were closed. Run periodically by the sweep daemon.
func (s *SettlementService) CloseExpiredItems(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE items
		SET status = $1
		WHERE deadline < $2 AND status = $3`,
		models.ItemStatusClosed, time.Now(), models.ItemStatusActive)
	if err != nil {
		return 0, storageErr(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr(err)
	}

	return affected, nil
}
