package inventory

import "errors"

// Inventory errors are transaction-time rejections. They are never
// partially applied: the surrounding transaction rolls back whole.
var (
	ErrInvalidQuantity        = errors.New("quantity must be at least 1")
	ErrInsufficientAllocation = errors.New("requested quantity exceeds remaining allocation")
	ErrReleaseNotOnSale       = errors.New("release is not on sale")
	ErrAlreadyRefunded        = errors.New("sale was already refunded")
	ErrTryAgain               = errors.New("could not complete the request, try again")
	ErrInvalidTransition      = errors.New("status transition not allowed")
)
