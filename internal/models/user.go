package models

import "time"

// Roles. Visitors become users on approval; superusers are assigned by an
// administrator, never promoted automatically.
const (
	RoleVisitor   = "visitor"
	RoleUser      = "user"
	RoleSuperuser = "superuser"
)

// Moderation statuses. Only approved users may bid or be settled against.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusSuspended = "suspended"
)

type User struct {
	ID              int64     `json:"id" db:"id"`
	Email           string    `json:"email" db:"email"`
	Username        string    `json:"username" db:"username"`
	Role            string    `json:"role" db:"role"`
	Balance         int64     `json:"balance" db:"balance"` // in cents
	IsVIP           bool      `json:"is_vip" db:"is_vip"`
	Status          string    `json:"status" db:"status"`
	SuspensionCount int       `json:"suspension_count" db:"suspension_count"`
	FineDue         int64     `json:"fine_due" db:"fine_due"`
	Version         int       `json:"version" db:"version"` // for optimistic locking
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
