package services

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/csc-322-team/ebidding-system/internal/models"
)

// ReviewService handles post-settlement feedback: reviews between the two
// participants of a transaction, and complaints against the counterparty.
type ReviewService struct {
	db        *sql.DB
	validator *ValidationHelper
}

func NewReviewService(db *sql.DB) *ReviewService {
	return &ReviewService{
		db:        db,
		validator: NewValidationHelper(),
	}
}

type SubmitReviewInput struct {
	ItemID      int64  `json:"item_id" validate:"required"`
	ReviewerID  int64  `json:"reviewer_id" validate:"required"`
	Rating      int    `json:"rating" validate:"required,min=1,max=5"`
	Description string `json:"description" validate:"required"`
}

// SubmitReview records a rating for the settled transaction on an item.
// Buyers review the seller; sellers review the buyer only for rent items.
// A second submission by the same reviewer replaces the first.
func (r *ReviewService) SubmitReview(ctx context.Context, input SubmitReviewInput) error {
	if err := r.validator.ValidateStruct(&input); err != nil {
		return err
	}

	settled, itemType, err := r.participantTransaction(ctx, input.ItemID, input.ReviewerID)
	if err != nil {
		return err
	}

	var recipientID int64
	switch {
	case settled.BuyerID == input.ReviewerID:
		recipientID = settled.SellerID
	case settled.SellerID == input.ReviewerID && itemType == models.ItemTypeRent:
		recipientID = settled.BuyerID
	default:
		return ErrNotAuthorized
	}

	var existingID int64
	err = r.db.QueryRowContext(ctx, `
		SELECT id
		FROM reviews
		WHERE transaction_id = $1 AND reviewer_id = $2`,
		settled.ID, input.ReviewerID).Scan(&existingID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return storageErr(err)
	}

	if existingID != 0 {
		_, err = r.db.ExecContext(ctx, `
			UPDATE reviews
			SET rating = $1, description = $2
			WHERE id = $3`,
			input.Rating, input.Description, existingID)
		if err != nil {
			return storageErr(err)
		}
		log.Printf("[REVIEW] User %d updated review on transaction %d", input.ReviewerID, settled.ID)
		return nil
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO reviews (transaction_id, reviewer_id, recipient_id, rating, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		settled.ID, input.ReviewerID, recipientID, input.Rating, input.Description, time.Now())
	if err != nil {
		return storageErr(err)
	}

	log.Printf("[REVIEW] User %d reviewed user %d on transaction %d", input.ReviewerID, recipientID, settled.ID)
	return nil
}

type FileComplaintInput struct {
	ItemID        int64  `json:"item_id" validate:"required"`
	ComplainantID int64  `json:"complainant_id" validate:"required"`
	Description   string `json:"description" validate:"required"`
}

// FileComplaint opens a complaint against the counterparty of a settled
// transaction the complainant took part in.
func (r *ReviewService) FileComplaint(ctx context.Context, input FileComplaintInput) error {
	if err := r.validator.ValidateStruct(&input); err != nil {
		return err
	}

	settled, _, err := r.participantTransaction(ctx, input.ItemID, input.ComplainantID)
	if err != nil {
		return err
	}

	targetID := settled.SellerID
	if settled.SellerID == input.ComplainantID {
		targetID = settled.BuyerID
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO complaints (transaction_id, complainant_id, target_id, description, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		settled.ID, input.ComplainantID, targetID, input.Description, models.ComplaintStatusOpen, time.Now())
	if err != nil {
		return storageErr(err)
	}

	log.Printf("[REVIEW] User %d filed complaint against user %d on transaction %d",
		input.ComplainantID, targetID, settled.ID)
	return nil
}

// participantTransaction fetches the settled transaction for the item,
// requiring the given user to be one of its participants.
func (r *ReviewService) participantTransaction(ctx context.Context, itemID, userID int64) (*models.Transaction, string, error) {
	var t models.Transaction
	var itemType string
	err := r.db.QueryRowContext(ctx, `
		SELECT t.id, t.reference, t.item_id, t.buyer_id, t.seller_id, t.amount, t.created_at, i.type
		FROM transactions t
		JOIN items i ON t.item_id = i.id
		WHERE t.item_id = $1 AND (t.buyer_id = $2 OR t.seller_id = $2)`,
		itemID, userID).Scan(
		&t.ID, &t.Reference, &t.ItemID, &t.BuyerID, &t.SellerID, &t.Amount, &t.CreatedAt, &itemType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrNotParticipant
	}
	if err != nil {
		return nil, "", storageErr(err)
	}
	return &t, itemType, nil
}
