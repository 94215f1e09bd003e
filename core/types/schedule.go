package types

import "encoding/hex"

// ScheduleAddress is the opaque handle a Scheduler returns for a live
// alarm. The engine never inspects its contents; it only stores it and
// hands it back to Scheduler.Cancel.
type ScheduleAddress [32]byte

// String renders the address as hex for logging.
func (a ScheduleAddress) String() string {
	return hex.EncodeToString(a[:])
}

// IsZero reports whether the address is the zero value (no alarm held).
func (a ScheduleAddress) IsZero() bool {
	return a == ScheduleAddress{}
}

// Hash is a 32-byte content hash, used both for preimage references and for
// deriving deterministic named-schedule keys.
type Hash [32]byte

// String renders the hash as hex.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether the hash is unset.
func (h Hash) IsZero() bool {
	return h == Hash{}
}
