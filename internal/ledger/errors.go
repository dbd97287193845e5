package ledger

import "errors"

// Ledger errors. The API layer maps them onto HTTP status codes.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrSameWallet        = errors.New("cannot transfer to the same wallet")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrSenderNotFound    = errors.New("sender wallet not found")
	ErrReceiverNotFound  = errors.New("receiver wallet not found")
	ErrUserNotFound      = errors.New("user not found")

	// ErrTxUnsupported is returned by Store.WithinTx when the store cannot
	// run multi-row transactions.
	ErrTxUnsupported = errors.New("transactions not supported")
)

// IsNotFound reports whether err is one of the ledger's not-found errors
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWalletNotFound) ||
		errors.Is(err, ErrSenderNotFound) ||
		errors.Is(err, ErrReceiverNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsValidation reports whether err is caused by caller input
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrSameWallet) ||
		errors.Is(err, ErrInsufficientFunds)
}
