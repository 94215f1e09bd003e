// Package crypto provides the bech32 account addressing used to identify
// depositors, voters, and scheduling origins throughout the engine.
package crypto

import (
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
)

// AddressPrefix distinguishes the human-readable address namespaces the
// engine accepts.
type AddressPrefix string

const (
	// AccountPrefix is used for ordinary account addresses (depositors, voters).
	AccountPrefix AddressPrefix = "asm"
	// ScheduleOriginPrefix marks addresses that identify a scheduling origin
	// rather than a spendable account (e.g. the engine's own Root origin).
	ScheduleOriginPrefix AddressPrefix = "asmroot"
)

// Address represents a 20-byte account identifier with a human-readable prefix.
type Address struct {
	prefix AddressPrefix
	bytes  []byte
}

// NewAddress constructs an Address from exactly 20 raw bytes.
func NewAddress(prefix AddressPrefix, b []byte) (Address, error) {
	if len(b) != 20 {
		return Address{}, fmt.Errorf("crypto: address must be 20 bytes, got %d", len(b))
	}
	cloned := append([]byte(nil), b...)
	return Address{prefix: prefix, bytes: cloned}, nil
}

// MustNewAddress constructs an address and panics if the input is invalid.
// Reserved for call sites (tests, fixtures) that hold a known-good length.
func MustNewAddress(prefix AddressPrefix, b []byte) Address {
	addr, err := NewAddress(prefix, b)
	if err != nil {
		panic(err)
	}
	return addr
}

// String renders the address in bech32.
func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes, 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// Bytes returns a defensive copy of the raw 20-byte address.
func (a Address) Bytes() []byte {
	return append([]byte(nil), a.bytes...)
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

// IsZero reports whether the address has never been assigned raw bytes.
func (a Address) IsZero() bool {
	return len(a.bytes) == 0
}

// MarshalJSON renders the address as its bech32 string so stored records
// round-trip through the account's human-readable form.
func (a Address) MarshalJSON() ([]byte, error) {
	if a.IsZero() {
		return json.Marshal("")
	}
	return json.Marshal(a.String())
}

// UnmarshalJSON parses the bech32 string produced by MarshalJSON.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*a = Address{}
		return nil
	}
	decoded, err := DecodeAddress(s)
	if err != nil {
		return err
	}
	*a = decoded
	return nil
}

// DecodeAddress parses a bech32-encoded address string.
func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("crypto: invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("crypto: error converting bits: %w", err)
	}
	addr, err := NewAddress(AddressPrefix(prefix), conv)
	if err != nil {
		return Address{}, err
	}
	return addr, nil
}
