// Package deposit implements the reserve/refund/slash bookkeeping the
// engine performs against an external currency. The engine never touches
// balances directly; it only ever goes through this narrow surface.
package deposit

import (
	"math/big"

	"assembly/core/errors"
	"assembly/crypto"
)

// Currency is the external collaborator that actually moves balances. The
// engine is parameterized over this interface (spec §6) rather than owning
// an account ledger itself.
type Currency interface {
	Reserve(who crypto.Address, amount *big.Int) error
	Unreserve(who crypto.Address, amount *big.Int) error
	SlashReserved(who crypto.Address, amount *big.Int) error
}

// Deposit is a handle to funds reserved from an account. It is created by
// Take and destroyed by Refund or Slash; the engine never mutates a
// Deposit in place once constructed.
type Deposit struct {
	Who    crypto.Address
	Amount *big.Int
}

// Take reserves amount from who via currency and returns a Deposit handle.
func Take(currency Currency, who crypto.Address, amount *big.Int) (Deposit, error) {
	if err := currency.Reserve(who, amount); err != nil {
		return Deposit{}, err
	}
	return Deposit{Who: who, Amount: new(big.Int).Set(amount)}, nil
}

// Refund unreserves a deposit. A nil deposit yields errors.ErrNoDeposit.
func Refund(currency Currency, d *Deposit) error {
	if d == nil {
		return errors.ErrNoDeposit
	}
	return currency.Unreserve(d.Who, d.Amount)
}

// Slash withdraws a deposit's reserved funds irreversibly. A nil deposit
// yields errors.ErrNoDeposit.
func Slash(currency Currency, d *Deposit) error {
	if d == nil {
		return errors.ErrNoDeposit
	}
	return currency.SlashReserved(d.Who, d.Amount)
}
