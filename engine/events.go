package engine

import (
	"strconv"

	"assembly/core/types"
	"assembly/store"
	"assembly/tally"
	"assembly/track"
)

// Event type names emitted by the engine (spec §6). Every event carries the
// referendum index where applicable.
const (
	EventTypeSubmitted                 = "referenda.submitted"
	EventTypeDecisionDepositPlaced     = "referenda.decision_deposit_placed"
	EventTypeDecisionDepositRefunded   = "referenda.decision_deposit_refunded"
	EventTypeSubmissionDepositRefunded = "referenda.submission_deposit_refunded"
	EventTypeDepositSlashed            = "referenda.deposit_slashed"
	EventTypeDecisionStarted           = "referenda.decision_started"
	EventTypeConfirmStarted            = "referenda.confirm_started"
	EventTypeConfirmAborted            = "referenda.confirm_aborted"
	EventTypeConfirmed                 = "referenda.confirmed"
	EventTypeApproved                  = "referenda.approved"
	EventTypeRejected                  = "referenda.rejected"
	EventTypeTimedOut                  = "referenda.timed_out"
	EventTypeCancelled                 = "referenda.cancelled"
	EventTypeKilled                    = "referenda.killed"
	EventTypeMetadataSet               = "referenda.metadata_set"
	EventTypeMetadataCleared           = "referenda.metadata_cleared"
)

func indexAttr(index uint32) string { return strconv.FormatUint(uint64(index), 10) }

func tallyAttrs(attrs map[string]string, t tally.Tally, trackID track.Id) {
	if t == nil {
		return
	}
	attrs["ayes"] = strconv.FormatUint(t.Ayes(trackID), 10)
	attrs["approval"] = strconv.FormatUint(uint64(t.Approval(trackID)), 10)
	attrs["support"] = strconv.FormatUint(uint64(t.Support(trackID)), 10)
}

func newSubmittedEvent(index uint32, trackID track.Id, proposal store.Proposal) *types.Event {
	return &types.Event{Type: EventTypeSubmitted, Attributes: map[string]string{
		"index":    indexAttr(index),
		"track":    strconv.FormatUint(uint64(trackID), 10),
		"proposal": proposal.Hash.String(),
	}}
}

func newDecisionDepositPlacedEvent(index uint32, who string, amount string) *types.Event {
	return &types.Event{Type: EventTypeDecisionDepositPlaced, Attributes: map[string]string{
		"index":  indexAttr(index),
		"who":    who,
		"amount": amount,
	}}
}

func newDecisionDepositRefundedEvent(index uint32, who string, amount string) *types.Event {
	return &types.Event{Type: EventTypeDecisionDepositRefunded, Attributes: map[string]string{
		"index":  indexAttr(index),
		"who":    who,
		"amount": amount,
	}}
}

func newSubmissionDepositRefundedEvent(index uint32, who string, amount string) *types.Event {
	return &types.Event{Type: EventTypeSubmissionDepositRefunded, Attributes: map[string]string{
		"index":  indexAttr(index),
		"who":    who,
		"amount": amount,
	}}
}

func newDepositSlashedEvent(who string, amount string) *types.Event {
	return &types.Event{Type: EventTypeDepositSlashed, Attributes: map[string]string{
		"who":    who,
		"amount": amount,
	}}
}

func newDecisionStartedEvent(index uint32, trackID track.Id, proposal store.Proposal, t tally.Tally) *types.Event {
	attrs := map[string]string{
		"index":    indexAttr(index),
		"track":    strconv.FormatUint(uint64(trackID), 10),
		"proposal": proposal.Hash.String(),
	}
	tallyAttrs(attrs, t, trackID)
	return &types.Event{Type: EventTypeDecisionStarted, Attributes: attrs}
}

func newConfirmStartedEvent(index uint32) *types.Event {
	return &types.Event{Type: EventTypeConfirmStarted, Attributes: map[string]string{"index": indexAttr(index)}}
}

func newConfirmAbortedEvent(index uint32) *types.Event {
	return &types.Event{Type: EventTypeConfirmAborted, Attributes: map[string]string{"index": indexAttr(index)}}
}

func newConfirmedEvent(index uint32, trackID track.Id, t tally.Tally) *types.Event {
	attrs := map[string]string{"index": indexAttr(index)}
	tallyAttrs(attrs, t, trackID)
	return &types.Event{Type: EventTypeConfirmed, Attributes: attrs}
}

func newApprovedEvent(index uint32) *types.Event {
	return &types.Event{Type: EventTypeApproved, Attributes: map[string]string{"index": indexAttr(index)}}
}

func newRejectedEvent(index uint32, trackID track.Id, t tally.Tally) *types.Event {
	attrs := map[string]string{"index": indexAttr(index)}
	tallyAttrs(attrs, t, trackID)
	return &types.Event{Type: EventTypeRejected, Attributes: attrs}
}

func newTimedOutEvent(index uint32, trackID track.Id, t tally.Tally) *types.Event {
	attrs := map[string]string{"index": indexAttr(index)}
	tallyAttrs(attrs, t, trackID)
	return &types.Event{Type: EventTypeTimedOut, Attributes: attrs}
}

func newCancelledEvent(index uint32, trackID track.Id, t tally.Tally) *types.Event {
	attrs := map[string]string{"index": indexAttr(index)}
	tallyAttrs(attrs, t, trackID)
	return &types.Event{Type: EventTypeCancelled, Attributes: attrs}
}

func newKilledEvent(index uint32, trackID track.Id, t tally.Tally) *types.Event {
	attrs := map[string]string{"index": indexAttr(index)}
	tallyAttrs(attrs, t, trackID)
	return &types.Event{Type: EventTypeKilled, Attributes: attrs}
}

func newMetadataSetEvent(index uint32, hash types.Hash) *types.Event {
	return &types.Event{Type: EventTypeMetadataSet, Attributes: map[string]string{
		"index": indexAttr(index),
		"hash":  hash.String(),
	}}
}

func newMetadataClearedEvent(index uint32, hash types.Hash) *types.Event {
	return &types.Event{Type: EventTypeMetadataCleared, Attributes: map[string]string{
		"index": indexAttr(index),
		"hash":  hash.String(),
	}}
}
