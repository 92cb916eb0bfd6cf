package services

import (
	"errors"
	"fmt"
)

// Settlement error taxonomy. All of these are non-fatal and returned to the
// caller, which branches with errors.Is. Any of them means the store was
// left exactly as it was before the call.
var (
	ErrItemNotFound      = errors.New("item not found")
	ErrBidNotFound       = errors.New("bid not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrNotAuthorized     = errors.New("not authorized")
	ErrItemNotActive     = errors.New("item is no longer active for bidding")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrBidderIneligible  = errors.New("bidder is not eligible")
	ErrBidTooLow         = errors.New("bid amount below starting price")
	ErrPastDeadline      = errors.New("deadline cannot be in the past")
	ErrNotParticipant    = errors.New("user did not participate in this transaction")
	ErrUserNotSuspended  = errors.New("user is not suspended")

	// ErrStorage wraps persistence failures. By the time it surfaces the
	// in-flight database transaction has been rolled back.
	ErrStorage = errors.New("storage failure")
)

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStorage, err)
}
