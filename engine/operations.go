package engine

import (
	"math/big"

	"assembly/alarm"
	"assembly/core/errors"
	"assembly/core/types"
	"assembly/crypto"
	"assembly/deposit"
	"assembly/store"
	"assembly/track"
)

// Submit admits a new referendum (spec §4.8 submit): it classifies the
// origin into a track, bounds the call via the preimage registry, reserves
// the submission deposit, allocates an index, and arms the initial alarm.
func (e *Engine) Submit(origin string, call []byte, enactment store.Enactment, submitter crypto.Address) (uint32, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	trackID, err := e.registry.TrackFor(origin)
	if err != nil {
		return 0, err
	}
	now := e.now()
	proposal := e.preimages.Bound(call)
	if storedLen, ok := e.preimages.Len(proposal.Hash); ok && storedLen != proposal.Length {
		return 0, errors.ErrPreimageStoredWithDifferentLength
	}
	dep, err := deposit.Take(e.currency, submitter, e.submissionDeposit)
	if err != nil {
		return 0, err
	}
	index, err := e.state.NextIndex()
	if err != nil {
		return 0, err
	}

	status := store.ReferendumStatus{
		Track:             trackID,
		Origin:            origin,
		Proposal:          proposal,
		Enactment:         enactment,
		Submitted:         now,
		SubmissionDeposit: dep,
		Tally:             e.tallies.New(trackID),
	}
	e.emit(newSubmittedEvent(index, trackID, proposal))

	newInfo, _, err := e.serviceReferendum(now, index, status)
	if err != nil {
		return 0, err
	}
	if err := e.state.PutReferendum(index, newInfo); err != nil {
		return 0, err
	}
	return index, nil
}

// PlaceDecisionDeposit reserves the track's decision deposit from who and
// re-services the record so it can progress out of preparation (spec
// §4.8).
func (e *Engine) PlaceDecisionDeposit(index uint32, who crypto.Address) error {
	if err := e.ready(); err != nil {
		return err
	}
	info, ok, err := e.state.GetReferendum(index)
	if err != nil {
		return err
	}
	if !ok || !info.IsOngoing() {
		return errors.ErrNotOngoing
	}
	status := *info.Ongoing
	if status.DecisionDeposit != nil {
		return errors.ErrHasDeposit
	}
	trackInfo, ok := e.registry.Info(status.Track)
	if !ok {
		return errors.ErrBadTrack
	}
	amount := new(big.Int).SetUint64(trackInfo.DecisionDeposit)
	dep, err := deposit.Take(e.currency, who, amount)
	if err != nil {
		return err
	}
	status.DecisionDeposit = &dep
	e.emit(newDecisionDepositPlacedEvent(index, who.String(), amount.String()))

	now := e.now()
	newInfo, _, err := e.serviceReferendum(now, index, status)
	if err != nil {
		return err
	}
	return e.state.PutReferendum(index, newInfo)
}

// RefundDecisionDeposit returns a concluded referendum's decision deposit
// to its depositor (spec §4.8). The referendum must have left the Ongoing
// state.
func (e *Engine) RefundDecisionDeposit(index uint32) error {
	if err := e.ready(); err != nil {
		return err
	}
	info, ok, err := e.state.GetReferendum(index)
	if err != nil {
		return err
	}
	if !ok {
		return errors.ErrBadReferendum
	}
	if info.IsOngoing() {
		return errors.ErrUnfinished
	}
	if info.DecisionDeposit == nil {
		return errors.ErrNoDeposit
	}
	dep := info.DecisionDeposit
	if err := deposit.Refund(e.currency, dep); err != nil {
		return err
	}
	e.emit(newDecisionDepositRefundedEvent(index, dep.Who.String(), dep.Amount.String()))
	info.DecisionDeposit = nil
	return e.state.PutReferendum(index, info)
}

// RefundSubmissionDeposit returns a concluded referendum's submission
// deposit (spec §4.8). Killed records never retain one; a Killed or still
// Ongoing record yields ErrBadStatus.
func (e *Engine) RefundSubmissionDeposit(index uint32) error {
	if err := e.ready(); err != nil {
		return err
	}
	info, ok, err := e.state.GetReferendum(index)
	if err != nil {
		return err
	}
	if !ok {
		return errors.ErrBadReferendum
	}
	if !info.SubmissionDepositRefundable() {
		return errors.ErrBadStatus
	}
	if info.SubmissionDeposit == nil {
		return errors.ErrNoDeposit
	}
	dep := info.SubmissionDeposit
	if err := deposit.Refund(e.currency, dep); err != nil {
		return err
	}
	e.emit(newSubmissionDepositRefundedEvent(index, dep.Who.String(), dep.Amount.String()))
	info.SubmissionDeposit = nil
	return e.state.PutReferendum(index, info)
}

// Cancel concludes an Ongoing referendum without penalty: both deposits are
// retained on the terminal record for later refund (spec §4.8).
func (e *Engine) Cancel(index uint32) error {
	if err := e.ready(); err != nil {
		return err
	}
	info, ok, err := e.state.GetReferendum(index)
	if err != nil {
		return err
	}
	if !ok || !info.IsOngoing() {
		return errors.ErrNotOngoing
	}
	status := info.Ongoing
	now := e.now()

	_ = e.alarms.EnsureNoAlarm(toAlarm(status.Alarm))
	if status.InQueue {
		if err := e.removeFromQueue(status.Track, index); err != nil {
			return err
		}
	}
	e.noteOneFewerDeciding(now, status.Track)
	e.emit(newCancelledEvent(index, status.Track, status.Tally))

	terminal := store.ReferendumInfo{
		Status:            store.StatusCancelled,
		End:               now,
		SubmissionDeposit: &status.SubmissionDeposit,
		DecisionDeposit:   status.DecisionDeposit,
	}
	return e.state.PutReferendum(index, terminal)
}

// Kill concludes an Ongoing referendum with both deposits slashed (spec
// §4.8). Neither deposit survives on the terminal record.
func (e *Engine) Kill(index uint32) error {
	if err := e.ready(); err != nil {
		return err
	}
	info, ok, err := e.state.GetReferendum(index)
	if err != nil {
		return err
	}
	if !ok || !info.IsOngoing() {
		return errors.ErrNotOngoing
	}
	status := info.Ongoing
	now := e.now()

	_ = e.alarms.EnsureNoAlarm(toAlarm(status.Alarm))
	if status.InQueue {
		if err := e.removeFromQueue(status.Track, index); err != nil {
			return err
		}
	}
	e.noteOneFewerDeciding(now, status.Track)

	if err := deposit.Slash(e.currency, &status.SubmissionDeposit); err != nil {
		return err
	}
	e.emit(newDepositSlashedEvent(status.SubmissionDeposit.Who.String(), status.SubmissionDeposit.Amount.String()))
	if status.DecisionDeposit != nil {
		if err := deposit.Slash(e.currency, status.DecisionDeposit); err != nil {
			return err
		}
		e.emit(newDepositSlashedEvent(status.DecisionDeposit.Who.String(), status.DecisionDeposit.Amount.String()))
	}
	e.emit(newKilledEvent(index, status.Track, status.Tally))

	terminal := store.ReferendumInfo{Status: store.StatusKilled, End: now}
	return e.state.PutReferendum(index, terminal)
}

// NudgeReferendum re-services an Ongoing record, typically in response to
// its own alarm firing (spec §4.8).
func (e *Engine) NudgeReferendum(index uint32) error {
	if err := e.ready(); err != nil {
		return err
	}
	info, ok, err := e.state.GetReferendum(index)
	if err != nil {
		return err
	}
	if !ok || !info.IsOngoing() {
		return errors.ErrNothingToDo
	}
	now := e.now()
	newInfo, dirty, err := e.serviceReferendum(now, index, *info.Ongoing)
	if err != nil {
		return err
	}
	if !dirty {
		return nil
	}
	return e.state.PutReferendum(index, newInfo)
}

// OneFewerDeciding promotes the next eligible queued referendum for track,
// or decrements its deciding count if none is waiting (spec §4.4, §4.8).
// It is the Root-origin callback the scheduler dispatches one block after
// noteOneFewerDeciding armed the unconditional nudge — never called
// synchronously from within conclude/cancel/kill itself.
func (e *Engine) OneFewerDeciding(trackID track.Id) error {
	if err := e.ready(); err != nil {
		return err
	}
	return e.applyOneFewerDeciding(e.now(), trackID)
}

// noteOneFewerDeciding arms the unconditional next-block nudge described in
// spec §4.4: conclude/cancel/kill all call this rather than promoting the
// queue inline, so a freed deciding slot is only ever filled one block
// after it is vacated (spec §8 S3: "a one_fewer_deciding alarm fires at
// 111"). A scheduler failure here is tolerated: it is logged, not
// propagated, matching the SetAlarm path's (*Alarm, bool) shape.
func (e *Engine) noteOneFewerDeciding(now types.BlockNumber, trackID track.Id) {
	if _, err := e.alarms.SetOneFewerDecidingAlarm(now, uint16(trackID)); err != nil {
		e.log.Warn("failed to arm one_fewer_deciding alarm",
			"track", trackID, "block", now, "error", err)
	}
}

// applyOneFewerDeciding implements the policy recorded for Open Question
// (a): Cancel and Kill always arm this regardless of whether the record
// was actually deciding. It first tries to promote the next queued
// candidate; only if the queue yields nothing does it decrement the
// track's deciding count, and only if that count is already positive.
func (e *Engine) applyOneFewerDeciding(now types.BlockNumber, trackID track.Id) error {
	trackInfo, ok := e.registry.Info(trackID)
	if !ok {
		return errors.ErrBadTrack
	}
	q, err := e.state.GetQueue(trackID, trackInfo.MaxQueued)
	if err != nil {
		return err
	}
	candidate, found := q.NextForDeciding(func(idx uint32) bool {
		candInfo, ok, err := e.state.GetReferendum(idx)
		return err == nil && ok && candInfo.IsOngoing()
	})
	if err := e.state.PutQueue(trackID, q); err != nil {
		return err
	}
	if !found {
		count, err := e.state.DecidingCount(trackID)
		if err != nil {
			return err
		}
		if count > 0 {
			return e.state.SetDecidingCount(trackID, count-1)
		}
		return nil
	}

	candInfo, ok, err := e.state.GetReferendum(candidate.Index)
	if err != nil {
		return err
	}
	if !ok || !candInfo.IsOngoing() {
		return nil
	}
	status := *candInfo.Ongoing
	status.InQueue = false
	newInfo, _, err := e.beginDeciding(now, candidate.Index, status, trackInfo)
	if err != nil {
		return err
	}
	return e.state.PutReferendum(candidate.Index, newInfo)
}

func (e *Engine) removeFromQueue(trackID track.Id, index uint32) error {
	trackInfo, ok := e.registry.Info(trackID)
	if !ok {
		return errors.ErrBadTrack
	}
	q, err := e.state.GetQueue(trackID, trackInfo.MaxQueued)
	if err != nil {
		return err
	}
	q.Remove(index)
	return e.state.PutQueue(trackID, q)
}

// SetMetadata attaches or clears the off-chain metadata preimage hash
// associated with a referendum (spec §4.8 set_metadata). Setting a hash
// requires the record to be Ongoing, signer to be its submission
// depositor, and the preimage to already be stored. Clearing is permitted
// on a terminal record by anyone, but on an Ongoing record only by the
// submission depositor. Preserved from the original implementation:
// clearing a referendum with no metadata on record is a silent no-op, not
// an error.
func (e *Engine) SetMetadata(index uint32, hash *types.Hash, signer crypto.Address) error {
	if err := e.ready(); err != nil {
		return err
	}
	if hash != nil {
		info, ok, err := e.state.GetReferendum(index)
		if err != nil {
			return err
		}
		if !ok || !info.IsOngoing() {
			return errors.ErrNotOngoing
		}
		if info.Ongoing.SubmissionDeposit.Who.String() != signer.String() {
			return errors.ErrNoPermission
		}
		if _, ok := e.preimages.Len(*hash); !ok {
			return errors.ErrPreimageNotExist
		}
		if err := e.state.SetMetadata(index, *hash); err != nil {
			return err
		}
		e.emit(newMetadataSetEvent(index, *hash))
		return nil
	}

	info, ok, err := e.state.GetReferendum(index)
	if err != nil {
		return err
	}
	if ok && info.IsOngoing() {
		if info.Ongoing.SubmissionDeposit.Who.String() != signer.String() {
			return errors.ErrNoPermission
		}
	}
	existing, ok, err := e.state.GetMetadata(index)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := e.state.ClearMetadata(index); err != nil {
		return err
	}
	e.emit(newMetadataClearedEvent(index, existing))
	return nil
}

// scheduleEnactment arms the approved proposal's dispatch at the later of
// its requested enactment block and the track's minimum enactment delay,
// keyed so repeated scheduling attempts never duplicate the dispatch
// (spec §4.8 schedule_enactment).
func (e *Engine) scheduleEnactment(now types.BlockNumber, index uint32, status store.ReferendumStatus) error {
	if e.enactments == nil {
		return nil
	}
	trackInfo, ok := e.registry.Info(status.Track)
	if !ok {
		return errors.ErrBadTrack
	}
	target := status.Enactment.Evaluate(now)
	minAllowed := now.SaturatingAdd(trackInfo.MinEnactmentPeriod.Max(1))
	if target < minAllowed {
		target = minAllowed
	}
	key := alarm.ScheduleKey("enactment", index)
	_, err := e.enactments.ScheduleNamed(key, target, EnactmentPriority, status.Origin, status.Proposal)
	return err
}
