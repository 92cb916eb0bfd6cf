package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/csc-322-team/ebidding-system/internal/audit"
	"github.com/csc-322-team/ebidding-system/internal/config"
	"github.com/csc-322-team/ebidding-system/internal/models"
)

const settlementQueue = "settlement_events"

// SettlementService owns the rule "one active bid, once accepted, produces
// exactly one balance transfer and one closed item". Every operation
// re-reads current state from the store; nothing is cached across requests.
type SettlementService struct {
	db        *sql.DB
	redis     *redis.Client
	audit     *audit.Logger
	validator *ValidationHelper
	cfg       *config.AuctionConfig
}

func NewSettlementService(db *sql.DB, redisClient *redis.Client, cfg *config.AuctionConfig) *SettlementService {
	if cfg == nil {
		cfg = config.LoadAuctionConfig()
	}
	return &SettlementService{
		db:        db,
		redis:     redisClient,
		audit:     audit.NewLogger(),
		validator: NewValidationHelper(),
		cfg:       cfg,
	}
}

// AcceptBid settles the given bid: the item closes at the bid amount, the
// bidder pays, the owner is credited and one transaction row is recorded.
// All four mutations run in a single database transaction. The item's
// active->closed transition is the serialization point: of two concurrent
// acceptances on the same item, at most one commits.
//
// If the buyer holds VIP status the transferred amount is the bid amount
// less the configured discount; the insufficient-funds check still uses the
// nominal bid amount.
func (s *SettlementService) AcceptBid(ctx context.Context, itemID, bidID, ownerID int64) (*models.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr(err)
	}
	defer tx.Rollback()

	item, err := s.lockItem(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}

	if item.OwnerID != ownerID {
		return nil, ErrNotAuthorized
	}

	if item.Status != models.ItemStatusActive || item.Deadline.Before(time.Now()) {
		return nil, ErrItemNotActive
	}

	bid, err := s.fetchBid(ctx, tx, bidID, itemID)
	if err != nil {
		return nil, err
	}

	// An owner cannot buy their own item.
	if bid.BidderID == ownerID {
		return nil, ErrBidderIneligible
	}

	buyer, seller, err := s.lockParties(ctx, tx, bid.BidderID, ownerID)
	if err != nil {
		return nil, err
	}

	if buyer.Status != models.StatusApproved {
		return nil, ErrBidderIneligible
	}

	if buyer.Balance < bid.Amount {
		return nil, ErrInsufficientFunds
	}

	transferred := bid.Amount
	if buyer.IsVIP {
		transferred = bid.Amount * int64(100-s.cfg.VIPDiscountPercent) / 100
	}

	// Re-assert the active status in the UPDATE itself so an acceptance
	// racing on another connection cannot close the item twice.
	res, err := tx.ExecContext(ctx, `
		UPDATE items
		SET status = $1, current_price = $2
		WHERE id = $3 AND status = $4`,
		models.ItemStatusClosed, bid.Amount, itemID, models.ItemStatusActive)
	if err != nil {
		return nil, storageErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, storageErr(err)
	}
	if affected == 0 {
		return nil, ErrItemNotActive
	}

	if err := s.updateUserBalance(ctx, tx, buyer.ID, buyer.Balance-transferred, buyer.Version); err != nil {
		return nil, err
	}

	if err := s.updateUserBalance(ctx, tx, seller.ID, seller.Balance+transferred, seller.Version); err != nil {
		return nil, err
	}

	settled := &models.Transaction{
		Reference: uuid.NewString(),
		ItemID:    itemID,
		BuyerID:   buyer.ID,
		SellerID:  seller.ID,
		Amount:    transferred,
		CreatedAt: time.Now(),
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO transactions (reference, item_id, buyer_id, seller_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		settled.Reference, settled.ItemID, settled.BuyerID, settled.SellerID, settled.Amount, settled.CreatedAt,
	).Scan(&settled.ID)
	if err != nil {
		s.audit.LogError(settled.Reference, buyer.ID, err)
		return nil, storageErr(err)
	}

	if err := tx.Commit(); err != nil {
		s.audit.LogError(settled.Reference, buyer.ID, err)
		return nil, storageErr(err)
	}

	s.audit.LogSettlement(settled.Reference, buyer.ID, seller.ID, transferred, "SUCCESS")
	log.Printf("[SETTLEMENT] Item %d settled: bid %d, transferred %d, buyer %d, seller %d",
		itemID, bidID, transferred, buyer.ID, seller.ID)

	// Queue for downstream consumers (after commit), best effort.
	if err := s.queueSettlementEvent(ctx, settled); err != nil {
		log.Printf("[SETTLEMENT] Failed to queue settlement event %s: %v", settled.Reference, err)
	}

	return settled, nil
}

// PlaceBidInput carries a bid request from the request-handling layer.
type PlaceBidInput struct {
	ItemID   int64 `json:"item_id" validate:"required"`
	BidderID int64 `json:"bidder_id" validate:"required"`
	Amount   int64 `json:"amount" validate:"required,gt=0"`
}

// PlaceBid records a bid on an active item. No funds move and nothing is
// reserved at bid time; AcceptBid re-verifies the bidder's balance at
// settlement time.
func (s *SettlementService) PlaceBid(ctx context.Context, input PlaceBidInput) (*models.Bid, error) {
	if err := s.validator.ValidateStruct(&input); err != nil {
		return nil, err
	}

	var startingPrice int64
	var status string
	var deadline time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT starting_price, status, deadline
		FROM items
		WHERE id = $1`, input.ItemID).Scan(&startingPrice, &status, &deadline)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, storageErr(err)
	}

	if status != models.ItemStatusActive || deadline.Before(time.Now()) {
		return nil, ErrItemNotActive
	}

	if input.Amount < startingPrice {
		return nil, ErrBidTooLow
	}

	var balance int64
	var bidderStatus string
	err = s.db.QueryRowContext(ctx, `
		SELECT balance, status
		FROM users
		WHERE id = $1`, input.BidderID).Scan(&balance, &bidderStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBidderIneligible
	}
	if err != nil {
		return nil, storageErr(err)
	}

	if bidderStatus != models.StatusApproved {
		return nil, ErrBidderIneligible
	}

	if balance < input.Amount {
		return nil, ErrInsufficientFunds
	}

	bid := &models.Bid{
		ItemID:    input.ItemID,
		BidderID:  input.BidderID,
		Amount:    input.Amount,
		ExpiresAt: time.Now().Add(s.cfg.BidExpiry),
		CreatedAt: time.Now(),
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO bids (item_id, bidder_id, amount, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		bid.ItemID, bid.BidderID, bid.Amount, bid.ExpiresAt, bid.CreatedAt,
	).Scan(&bid.ID)
	if err != nil {
		return nil, storageErr(err)
	}

	log.Printf("[SETTLEMENT] Bid %d placed on item %d by user %d for %d", bid.ID, bid.ItemID, bid.BidderID, bid.Amount)
	return bid, nil
}

// BalanceChangeInput carries a deposit or withdrawal request.
type BalanceChangeInput struct {
	UserID int64 `json:"user_id" validate:"required"`
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// Deposit credits a user's balance and appends a balance history entry.
func (s *SettlementService) Deposit(ctx context.Context, input BalanceChangeInput) error {
	if err := s.validator.ValidateStruct(&input); err != nil {
		return err
	}
	return s.changeBalance(ctx, input, models.EntryTypeDeposit)
}

// Withdraw debits a user's balance and appends a balance history entry.
// Fails with ErrInsufficientFunds rather than letting the balance go
// negative.
func (s *SettlementService) Withdraw(ctx context.Context, input BalanceChangeInput) error {
	if err := s.validator.ValidateStruct(&input); err != nil {
		return err
	}
	return s.changeBalance(ctx, input, models.EntryTypeWithdraw)
}

func (s *SettlementService) changeBalance(ctx context.Context, input BalanceChangeInput, entryType string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(err)
	}
	defer tx.Rollback()

	user, err := s.lockUser(ctx, tx, input.UserID)
	if err != nil {
		return err
	}

	newBalance := user.Balance + input.Amount
	if entryType == models.EntryTypeWithdraw {
		if user.Balance < input.Amount {
			return ErrInsufficientFunds
		}
		newBalance = user.Balance - input.Amount
	}

	if err := s.updateUserBalance(ctx, tx, user.ID, newBalance, user.Version); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO balance_history (user_id, amount, entry_type, created_at)
		VALUES ($1, $2, $3, $4)`,
		input.UserID, input.Amount, entryType, time.Now())
	if err != nil {
		return storageErr(err)
	}

	if err := tx.Commit(); err != nil {
		return storageErr(err)
	}

	s.audit.LogOperation(uuid.NewString(), input.UserID, entryType, fmt.Sprintf("amount %d", input.Amount))
	log.Printf("[SETTLEMENT] %s of %d for user %d", entryType, input.Amount, input.UserID)
	return nil
}

func (s *SettlementService) lockItem(ctx context.Context, tx *sql.Tx, itemID int64) (*models.Item, error) {
	var item models.Item
	err := tx.QueryRowContext(ctx, `
		SELECT id, owner_id, starting_price, current_price, status, deadline
		FROM items
		WHERE id = $1
		FOR UPDATE`, itemID).Scan(
		&item.ID, &item.OwnerID, &item.StartingPrice, &item.CurrentPrice, &item.Status, &item.Deadline)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, storageErr(err)
	}
	return &item, nil
}

func (s *SettlementService) fetchBid(ctx context.Context, tx *sql.Tx, bidID, itemID int64) (*models.Bid, error) {
	var bid models.Bid
	err := tx.QueryRowContext(ctx, `
		SELECT id, item_id, bidder_id, amount, expires_at, created_at
		FROM bids
		WHERE id = $1 AND item_id = $2`, bidID, itemID).Scan(
		&bid.ID, &bid.ItemID, &bid.BidderID, &bid.Amount, &bid.ExpiresAt, &bid.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBidNotFound
	}
	if err != nil {
		return nil, storageErr(err)
	}
	return &bid, nil
}

// lockParties locks buyer and seller rows in consistent id order to prevent
// deadlocks between concurrent settlements.
func (s *SettlementService) lockParties(ctx context.Context, tx *sql.Tx, buyerID, sellerID int64) (*models.User, *models.User, error) {
	firstLock, secondLock := buyerID, sellerID
	if buyerID > sellerID {
		firstLock, secondLock = sellerID, buyerID
	}

	first, err := s.lockUser(ctx, tx, firstLock)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) && firstLock == buyerID {
			return nil, nil, ErrBidderIneligible
		}
		return nil, nil, err
	}

	second, err := s.lockUser(ctx, tx, secondLock)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) && secondLock == buyerID {
			return nil, nil, ErrBidderIneligible
		}
		return nil, nil, err
	}

	if first.ID == buyerID {
		return first, second, nil
	}
	return second, first, nil
}

func (s *SettlementService) lockUser(ctx context.Context, tx *sql.Tx, userID int64) (*models.User, error) {
	var user models.User
	err := tx.QueryRowContext(ctx, `
		SELECT id, balance, is_vip, status, version
		FROM users
		WHERE id = $1
		FOR UPDATE`, userID).Scan(&user.ID, &user.Balance, &user.IsVIP, &user.Status, &user.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, storageErr(err)
	}
	return &user, nil
}

func (s *SettlementService) updateUserBalance(ctx context.Context, tx *sql.Tx, userID, newBalance int64, version int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE users
		SET balance = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4`,
		newBalance, time.Now(), userID, version)
	if err != nil {
		return storageErr(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return storageErr(err)
	}

	if affected == 0 {
		return storageErr(errors.New("optimistic lock failed for user balance update"))
	}

	return nil
}

func (s *SettlementService) queueSettlementEvent(ctx context.Context, settled *models.Transaction) error {
	if s.redis == nil {
		return nil
	}

	data, err := json.Marshal(settled)
	if err != nil {
		return err
	}

	return s.redis.RPush(ctx, settlementQueue, data).Err()
}
