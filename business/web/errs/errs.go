// Package errs provides types and support related to web v1 functionality.
package errs

import (
	"errors"
	"net/http"

	"github.com/utxoledger/ledger/foundation/blockchain/chain"
	"github.com/utxoledger/ledger/foundation/blockchain/database"
	"github.com/utxoledger/ledger/foundation/blockchain/wallet"
)

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is used to pass an error during the request through the
// application with web specific context.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// Error implements the error interface. It uses the default message of the
// wrapped error. This is what will be shown in the services' logs.
func (te *Trusted) Error() string {
	return te.Err.Error()
}

// Unwrap provides access to the wrapped error.
func (te *Trusted) Unwrap() error {
	return te.Err
}

// IsTrusted checks if an error of type Trusted exists.
func IsTrusted(err error) bool {
	var te *Trusted
	return errors.As(err, &te)
}

// GetTrusted returns a copy of the Trusted pointer.
func GetTrusted(err error) *Trusted {
	var te *Trusted
	if !errors.As(err, &te) {
		return nil
	}
	return te
}

// =============================================================================

// FromLedger wraps errors raised by the ledger with the status the client
// should see. A conflict wins over the invalid transaction it is wrapped
// in. Errors the client can't act on are returned as is.
func FromLedger(err error) error {
	switch {
	case errors.Is(err, database.ErrInsufficientFunds),
		errors.Is(err, chain.ErrDoubleSpend):
		return NewTrusted(err, http.StatusConflict)

	case errors.Is(err, wallet.ErrInvalidAddress),
		errors.Is(err, database.ErrInvalidAmount),
		errors.Is(err, database.ErrInvalidTransaction),
		errors.Is(err, database.ErrMissingPriorTx):
		return NewTrusted(err, http.StatusBadRequest)

	case errors.Is(err, chain.ErrTxNotFound):
		return NewTrusted(err, http.StatusNotFound)

	case errors.Is(err, chain.ErrMissingTip):
		return NewTrusted(err, http.StatusServiceUnavailable)
	}

	return err
}
