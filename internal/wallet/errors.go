package wallet

import "errors"

var (
	// ErrInvalidAmount rejects amounts that are not positive decimals with at
	// most four fractional digits.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidUser rejects wallet creation without an owning user id.
	ErrInvalidUser = errors.New("user id is required")

	// ErrSameWallet rejects transfers where source and destination coincide.
	ErrSameWallet = errors.New("cannot transfer to the same wallet")

	// ErrWalletNotFound indicates the referenced wallet does not exist.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrInsufficientFunds indicates the source balance cannot cover the
	// requested amount. Retrying will not help the caller.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrConcurrencyConflict indicates another mutation won the version race
	// on every attempt within the retry budget. Safe for the caller to retry.
	ErrConcurrencyConflict = errors.New("concurrent update detected")
)
