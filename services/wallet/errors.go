package wallet

import "errors"

// ErrInsufficientBalance: the guarded debit matched no row, either the
// balance was too low or the account does not exist.
var ErrInsufficientBalance = errors.New("insufficient balance")
