// Package store holds the referendum record types and the persisted
// key-value mapping the engine reads and writes them through (spec §3,
// §4.6): an indexed map of records, the per-track waiting queue, deciding
// counts, and metadata hashes.
package store

import (
	"encoding/json"

	"assembly/core/types"
	"assembly/deposit"
	"assembly/queue"
	"assembly/tally"
	"assembly/track"
)

// Status discriminates the ReferendumInfo tagged union.
type Status uint8

const (
	StatusOngoing Status = iota
	StatusApproved
	StatusRejected
	StatusCancelled
	StatusTimedOut
	StatusKilled
)

func (s Status) String() string {
	switch s {
	case StatusOngoing:
		return "Ongoing"
	case StatusApproved:
		return "Approved"
	case StatusRejected:
		return "Rejected"
	case StatusCancelled:
		return "Cancelled"
	case StatusTimedOut:
		return "TimedOut"
	case StatusKilled:
		return "Killed"
	default:
		return "Unknown"
	}
}

// Enactment describes when an approved proposal's call should be
// dispatched: either at a fixed block, or after a delay from the block at
// which it becomes approved.
type Enactment struct {
	At    *types.BlockNumber
	After *types.BlockNumber
}

// Evaluate resolves an Enactment against the block at which it is being
// scheduled (spec §4.8 schedule_enactment).
func (e Enactment) Evaluate(approvedAt types.BlockNumber) types.BlockNumber {
	if e.At != nil {
		return *e.At
	}
	if e.After != nil {
		return approvedAt.SaturatingAdd(*e.After)
	}
	return approvedAt
}

// DecidingStatus tracks the deciding-phase clock for an Ongoing referendum.
type DecidingStatus struct {
	Since      types.BlockNumber
	Confirming *types.BlockNumber
}

// Alarm is the single live scheduled wake-up held by a record, if any.
type Alarm struct {
	When    types.BlockNumber
	Address types.ScheduleAddress
}

// Proposal is the bounded call the engine carries opaquely between
// submission and enactment; the engine never inspects or executes it.
type Proposal struct {
	Hash   types.Hash
	Length uint32
}

// ReferendumStatus is the mutable body of an Ongoing record (spec §3).
type ReferendumStatus struct {
	Track             track.Id
	Origin            string
	Proposal          Proposal
	Enactment         Enactment
	Submitted         types.BlockNumber
	SubmissionDeposit deposit.Deposit
	DecisionDeposit   *deposit.Deposit
	Deciding          *DecidingStatus
	Tally             tally.Tally
	InQueue           bool
	Alarm             *Alarm
}

// ReferendumInfo is the tagged union stored per index: Ongoing while under
// consideration, one of five terminal variants afterward. Terminal records
// are retained forever to allow deposit refunds and metadata cleanup; the
// engine never moves a record back to Ongoing.
type ReferendumInfo struct {
	Status Status

	Ongoing *ReferendumStatus

	// Fields populated on terminal variants. SubmissionDeposit and
	// DecisionDeposit are nil once refunded (or for Killed, which retains
	// neither - both are slashed instead).
	End               types.BlockNumber
	SubmissionDeposit *deposit.Deposit
	DecisionDeposit   *deposit.Deposit
}

// IsOngoing reports whether the record is still under consideration.
func (r ReferendumInfo) IsOngoing() bool {
	return r.Status == StatusOngoing && r.Ongoing != nil
}

// IsTerminal reports whether the record has concluded.
func (r ReferendumInfo) IsTerminal() bool {
	return !r.IsOngoing()
}

// SubmissionDepositRefundable reports whether the terminal status retains
// a refundable submission deposit (spec §4.8 refund_submission_deposit:
// Killed never does).
func (r ReferendumInfo) SubmissionDepositRefundable() bool {
	switch r.Status {
	case StatusApproved, StatusRejected, StatusCancelled, StatusTimedOut:
		return true
	default:
		return false
	}
}

// Queue is an alias of queue.Track used across the store's public surface.
type Queue = queue.Track

// referendumStatusWire is the JSON-serializable shadow of ReferendumStatus.
// The Tally field is an external interface (spec §6, §9); this store only
// knows how to round-trip the reference tally.WeightSnapshot
// implementation shipped alongside it. A deployment plugging in a
// different Tally implementation must supply its own store codec.
type referendumStatusWire struct {
	Track             track.Id
	Origin            string
	Proposal          Proposal
	Enactment         Enactment
	Submitted         types.BlockNumber
	SubmissionDeposit deposit.Deposit
	DecisionDeposit   *deposit.Deposit
	Deciding          *DecidingStatus
	Tally             tally.WeightSnapshot
	InQueue           bool
	Alarm             *Alarm
}

// MarshalJSON implements json.Marshaler.
func (r ReferendumStatus) MarshalJSON() ([]byte, error) {
	wire := referendumStatusWire{
		Track:             r.Track,
		Origin:            r.Origin,
		Proposal:          r.Proposal,
		Enactment:         r.Enactment,
		Submitted:         r.Submitted,
		SubmissionDeposit: r.SubmissionDeposit,
		DecisionDeposit:   r.DecisionDeposit,
		Deciding:          r.Deciding,
		InQueue:           r.InQueue,
		Alarm:             r.Alarm,
	}
	if r.Tally != nil {
		if snap, ok := r.Tally.(tally.WeightSnapshot); ok {
			wire.Tally = snap
		}
	}
	return json.Marshal(wire)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *ReferendumStatus) UnmarshalJSON(data []byte) error {
	var wire referendumStatusWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	r.Track = wire.Track
	r.Origin = wire.Origin
	r.Proposal = wire.Proposal
	r.Enactment = wire.Enactment
	r.Submitted = wire.Submitted
	r.SubmissionDeposit = wire.SubmissionDeposit
	r.DecisionDeposit = wire.DecisionDeposit
	r.Deciding = wire.Deciding
	r.Tally = wire.Tally
	r.InQueue = wire.InQueue
	r.Alarm = wire.Alarm
	return nil
}
