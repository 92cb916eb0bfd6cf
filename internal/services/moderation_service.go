package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/csc-322-team/ebidding-system/internal/config"
	"github.com/csc-322-team/ebidding-system/internal/models"
)

// ModerationService drives the account state machine:
// pending -> approved | rejected, approved -> suspended -> approved (on fine
// payment), and removal after repeated suspension. It runs orthogonally to
// settlement; settlement only sees its effects through user status.
type ModerationService struct {
	db  *sql.DB
	cfg *config.AuctionConfig
}

func NewModerationService(db *sql.DB, cfg *config.AuctionConfig) *ModerationService {
	if cfg == nil {
		cfg = config.LoadAuctionConfig()
	}
	return &ModerationService{db: db, cfg: cfg}
}

// UpdateUserStatus applies a superuser moderation action: "approved",
// "rejected" or "suspended". The suspended action only sets the status;
// fines and removal belong to SuspendUser, which the rating sweep uses.
func (m *ModerationService) UpdateUserStatus(ctx context.Context, userID int64, action string) error {
	switch action {
	case models.StatusApproved:
		return m.ApproveUser(ctx, userID)
	case models.StatusRejected:
		return m.setStatus(ctx, userID, models.StatusRejected)
	case models.StatusSuspended:
		return m.setStatus(ctx, userID, models.StatusSuspended)
	default:
		return fmt.Errorf("invalid moderation action %q", action)
	}
}

// ApproveUser approves a pending account and converts the visitor to a user.
func (m *ModerationService) ApproveUser(ctx context.Context, userID int64) error {
	res, err := m.db.ExecContext(ctx, `
		UPDATE users
		SET status = $1, role = $2, updated_at = $3
		WHERE id = $4`,
		models.StatusApproved, models.RoleUser, time.Now(), userID)
	if err != nil {
		return storageErr(err)
	}
	return m.requireRow(res, userID, "approved")
}

func (m *ModerationService) RejectUser(ctx context.Context, userID int64) error {
	return m.setStatus(ctx, userID, models.StatusRejected)
}

func (m *ModerationService) setStatus(ctx context.Context, userID int64, status string) error {
	res, err := m.db.ExecContext(ctx, `
		UPDATE users
		SET status = $1, updated_at = $2
		WHERE id = $3`,
		status, time.Now(), userID)
	if err != nil {
		return storageErr(err)
	}
	return m.requireRow(res, userID, status)
}

// SuspendUser suspends an account, adds the suspension fine, and removes the
// account entirely once the suspension count reaches the removal threshold.
func (m *ModerationService) SuspendUser(ctx context.Context, userID int64, reason string) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(err)
	}
	defer tx.Rollback()

	var suspensionCount int
	err = tx.QueryRowContext(ctx, `
		UPDATE users
		SET status = $1, suspension_count = suspension_count + 1, fine_due = fine_due + $2, updated_at = $3
		WHERE id = $4
		RETURNING suspension_count`,
		models.StatusSuspended, m.cfg.SuspensionFine, time.Now(), userID).Scan(&suspensionCount)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	if err != nil {
		return storageErr(err)
	}

	if suspensionCount >= m.cfg.RemovalThreshold {
		if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID); err != nil {
			return storageErr(err)
		}
		if err := tx.Commit(); err != nil {
			return storageErr(err)
		}
		log.Printf("[MODERATION] User %d permanently removed after %d suspensions", userID, suspensionCount)
		return nil
	}

	if err := tx.Commit(); err != nil {
		return storageErr(err)
	}

	log.Printf("[MODERATION] User %d suspended: %s", userID, reason)
	return nil
}

// PayFine settles an outstanding suspension fine from the user's balance
// and restores the account to approved.
func (m *ModerationService) PayFine(ctx context.Context, userID int64) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(err)
	}
	defer tx.Rollback()

	var balance, fineDue int64
	var status string
	var version int
	err = tx.QueryRowContext(ctx, `
		SELECT balance, fine_due, status, version
		FROM users
		WHERE id = $1
		FOR UPDATE`, userID).Scan(&balance, &fineDue, &status, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	if err != nil {
		return storageErr(err)
	}

	if status != models.StatusSuspended {
		return ErrUserNotSuspended
	}

	if balance < fineDue {
		return ErrInsufficientFunds
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE users
		SET balance = $1, fine_due = 0, status = $2, version = version + 1, updated_at = $3
		WHERE id = $4 AND version = $5`,
		balance-fineDue, models.StatusApproved, time.Now(), userID, version)
	if err != nil {
		return storageErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storageErr(err)
	}
	if affected == 0 {
		return storageErr(errors.New("optimistic lock failed for fine payment"))
	}

	if err := tx.Commit(); err != nil {
		return storageErr(err)
	}

	log.Printf("[MODERATION] User %d paid fine of %d and is approved again", userID, fineDue)
	return nil
}

// EvaluateVIPStatus promotes qualifying users to VIP and demotes VIPs that
// no longer qualify. Qualification: balance above the floor, more settled
// transactions than the floor, and no open complaints against the user.
func (m *ModerationService) EvaluateVIPStatus(ctx context.Context) error {
	rows, err := m.db.QueryContext(ctx, `
		SELECT u.id, u.balance, u.is_vip, u.status,
			(SELECT COUNT(*) FROM transactions t WHERE t.buyer_id = u.id OR t.seller_id = u.id) AS transaction_count,
			(SELECT COUNT(*) FROM complaints c WHERE c.target_id = u.id AND c.status = $1) AS open_complaints
		FROM users u
		WHERE u.role = $2`,
		models.ComplaintStatusOpen, models.RoleUser)
	if err != nil {
		return storageErr(err)
	}
	defer rows.Close()

	type candidate struct {
		id             int64
		balance        int64
		isVIP          bool
		status         string
		transactions   int
		openComplaints int
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.id, &c.balance, &c.isVIP, &c.status, &c.transactions, &c.openComplaints); err != nil {
			return storageErr(err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return storageErr(err)
	}

	for _, c := range candidates {
		qualifies := c.balance > m.cfg.VIPBalanceFloor &&
			c.transactions > m.cfg.VIPTransactionFloor &&
			c.openComplaints == 0 &&
			c.status == models.StatusApproved

		switch {
		case qualifies && !c.isVIP:
			if err := m.promoteToVIP(ctx, c.id); err != nil {
				log.Printf("[MODERATION] VIP promotion of user %d failed: %v", c.id, err)
			}
		case c.isVIP && !qualifies:
			reason := "failed to meet VIP conditions"
			if c.status == models.StatusSuspended {
				reason = "demoted due to suspension"
			}
			if err := m.demoteVIP(ctx, c.id, reason); err != nil {
				log.Printf("[MODERATION] VIP demotion of user %d failed: %v", c.id, err)
			}
		}
	}

	return nil
}

// EvaluateSuspensions suspends users whose received-rating average falls
// outside the acceptable range once they have enough ratings. VIPs are
// demoted instead of suspended.
func (m *ModerationService) EvaluateSuspensions(ctx context.Context) error {
	rows, err := m.db.QueryContext(ctx, `
		SELECT u.id, u.is_vip, COUNT(r.id) AS rating_count, COALESCE(AVG(r.rating), 0) AS avg_rating
		FROM users u
		LEFT JOIN reviews r ON r.recipient_id = u.id
		WHERE u.role = $1
		GROUP BY u.id, u.is_vip`,
		models.RoleUser)
	if err != nil {
		return storageErr(err)
	}
	defer rows.Close()

	type rated struct {
		id          int64
		isVIP       bool
		ratingCount int
		avgRating   float64
	}
	var flagged []rated
	for rows.Next() {
		var r rated
		if err := rows.Scan(&r.id, &r.isVIP, &r.ratingCount, &r.avgRating); err != nil {
			return storageErr(err)
		}
		if r.ratingCount >= m.cfg.RatingSampleMinimum && (r.avgRating < 2 || r.avgRating > 4) {
			flagged = append(flagged, r)
		}
	}
	if err := rows.Err(); err != nil {
		return storageErr(err)
	}

	// One user's failure must not abandon the rest of the flagged set;
	// the next sweep retries anyone left untouched.
	for _, r := range flagged {
		if r.isVIP {
			if err := m.demoteVIP(ctx, r.id, "rating average outside acceptable range"); err != nil {
				log.Printf("[MODERATION] VIP demotion of user %d failed: %v", r.id, err)
			}
			continue
		}
		reason := fmt.Sprintf("rating average %.1f outside acceptable range", r.avgRating)
		if err := m.SuspendUser(ctx, r.id, reason); err != nil {
			log.Printf("[MODERATION] Suspension of user %d failed: %v", r.id, err)
		}
	}

	return nil
}

func (m *ModerationService) promoteToVIP(ctx context.Context, userID int64) error {
	_, err := m.db.ExecContext(ctx, `
		UPDATE users
		SET is_vip = TRUE, updated_at = $1
		WHERE id = $2`, time.Now(), userID)
	if err != nil {
		return storageErr(err)
	}
	log.Printf("[MODERATION] User %d promoted to VIP", userID)
	return nil
}

// demoteVIP strips VIP status. A suspended VIP returns to approved; losing
// VIP is the penalty in that case.
func (m *ModerationService) demoteVIP(ctx context.Context, userID int64, reason string) error {
	_, err := m.db.ExecContext(ctx, `
		UPDATE users
		SET is_vip = FALSE, status = $1, updated_at = $2
		WHERE id = $3`,
		models.StatusApproved, time.Now(), userID)
	if err != nil {
		return storageErr(err)
	}
	log.Printf("[MODERATION] User %d demoted from VIP: %s", userID, reason)
	return nil
}

func (m *ModerationService) requireRow(res sql.Result, userID int64, action string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return storageErr(err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	log.Printf("[MODERATION] User %d %s", userID, action)
	return nil
}
