package engine

import (
	"assembly/alarm"
	"assembly/core/errors"
	"assembly/core/types"
	"assembly/store"
	"assembly/tally"
	"assembly/track"
)

// serviceReferendum executes one step of the state machine for the record
// at index and returns the updated info and whether anything changed
// (spec §4.7). It is the only function permitted to mutate deciding,
// alarm, in_queue, or decision_deposit.
func (e *Engine) serviceReferendum(now types.BlockNumber, index uint32, status store.ReferendumStatus) (store.ReferendumInfo, bool, error) {
	info, ok := e.registry.Info(status.Track)
	if !ok {
		return store.ReferendumInfo{}, false, errors.ErrBadTrack
	}
	if status.Deciding == nil {
		return e.serviceNotDeciding(now, index, status, info)
	}
	return e.serviceDeciding(now, index, status, info)
}

// toAlarm and fromAlarm bridge store.Alarm (the persisted record field)
// and alarm.Alarm (the Manager's in-flight handle); the two packages keep
// distinct types so neither depends on the other's full surface.
func toAlarm(a *store.Alarm) *alarm.Alarm {
	if a == nil {
		return nil
	}
	return &alarm.Alarm{When: a.When, Address: a.Address}
}

func fromAlarm(a *alarm.Alarm) *store.Alarm {
	if a == nil {
		return nil
	}
	return &store.Alarm{When: a.When, Address: a.Address}
}

// --- Branch A: not yet deciding ---

func (e *Engine) serviceNotDeciding(now types.BlockNumber, index uint32, status store.ReferendumStatus, info track.Info) (store.ReferendumInfo, bool, error) {
	if status.InQueue {
		return e.branchA1Requeue(index, status, info)
	}
	prepareEnd := status.Submitted.SaturatingAdd(info.PreparePeriod)
	timeoutAt := status.Submitted.SaturatingAdd(e.undecidingTimeout)

	if status.DecisionDeposit != nil && now >= prepareEnd {
		return e.branchA2ReadyForDeciding(now, index, status, info)
	}
	if now >= timeoutAt {
		return e.branchA5Timeout(now, index, status)
	}
	if status.DecisionDeposit == nil {
		return e.branchA3HoldUndecidingAlarm(index, status, timeoutAt)
	}
	return e.branchA4HoldPrepareAlarm(index, status, prepareEnd)
}

func (e *Engine) branchA1Requeue(index uint32, status store.ReferendumStatus, info track.Info) (store.ReferendumInfo, bool, error) {
	q, err := e.state.GetQueue(status.Track, info.MaxQueued)
	if err != nil {
		return store.ReferendumInfo{}, false, err
	}
	ayes := uint64(0)
	if status.Tally != nil {
		ayes = status.Tally.Ayes(status.Track)
	}
	q.Update(index, ayes)
	if err := e.state.PutQueue(status.Track, q); err != nil {
		return store.ReferendumInfo{}, false, err
	}
	return store.ReferendumInfo{Status: store.StatusOngoing, Ongoing: &status}, false, nil
}

func (e *Engine) branchA2ReadyForDeciding(now types.BlockNumber, index uint32, status store.ReferendumStatus, info track.Info) (store.ReferendumInfo, bool, error) {
	count, err := e.state.DecidingCount(status.Track)
	if err != nil {
		return store.ReferendumInfo{}, false, err
	}
	if count < info.MaxDeciding {
		if err := e.state.SetDecidingCount(status.Track, count+1); err != nil {
			return store.ReferendumInfo{}, false, err
		}
		return e.beginDeciding(now, index, status, info)
	}
	q, err := e.state.GetQueue(status.Track, info.MaxQueued)
	if err != nil {
		return store.ReferendumInfo{}, false, err
	}
	ayes := uint64(0)
	if status.Tally != nil {
		ayes = status.Tally.Ayes(status.Track)
	}
	q.Insert(index, ayes)
	if err := e.state.PutQueue(status.Track, q); err != nil {
		return store.ReferendumInfo{}, false, err
	}
	status.InQueue = true
	status.Alarm = fromAlarm(e.alarms.EnsureNoAlarm(toAlarm(status.Alarm)))
	return store.ReferendumInfo{Status: store.StatusOngoing, Ongoing: &status}, true, nil
}

func (e *Engine) branchA3HoldUndecidingAlarm(index uint32, status store.ReferendumStatus, timeoutAt types.BlockNumber) (store.ReferendumInfo, bool, error) {
	next, changed := e.alarms.EnsureAlarmAt(toAlarm(status.Alarm), index, timeoutAt)
	status.Alarm = fromAlarm(next)
	return store.ReferendumInfo{Status: store.StatusOngoing, Ongoing: &status}, changed, nil
}

func (e *Engine) branchA4HoldPrepareAlarm(index uint32, status store.ReferendumStatus, prepareEnd types.BlockNumber) (store.ReferendumInfo, bool, error) {
	next, changed := e.alarms.EnsureAlarmAt(toAlarm(status.Alarm), index, prepareEnd)
	status.Alarm = fromAlarm(next)
	return store.ReferendumInfo{Status: store.StatusOngoing, Ongoing: &status}, changed, nil
}

func (e *Engine) branchA5Timeout(now types.BlockNumber, index uint32, status store.ReferendumStatus) (store.ReferendumInfo, bool, error) {
	status.Alarm = fromAlarm(e.alarms.EnsureNoAlarm(toAlarm(status.Alarm)))
	e.emit(newTimedOutEvent(index, status.Track, status.Tally))
	return store.ReferendumInfo{
		Status:            store.StatusTimedOut,
		End:               now,
		SubmissionDeposit: &status.SubmissionDeposit,
		DecisionDeposit:   status.DecisionDeposit,
	}, true, nil
}

// beginDeciding sets in_queue=false, starts the deciding clock (entering
// confirmation immediately if currently passing), and arms the recomputed
// alarm (spec §4.7 begin_deciding).
func (e *Engine) beginDeciding(now types.BlockNumber, index uint32, status store.ReferendumStatus, info track.Info) (store.ReferendumInfo, bool, error) {
	status.InQueue = false
	deciding := &store.DecidingStatus{Since: now}
	passing := e.isPassing(info, now, now, status.Tally, status.Track)
	e.emit(newDecisionStartedEvent(index, status.Track, status.Proposal, status.Tally))
	if passing {
		confirmEnd := now.SaturatingAdd(info.ConfirmPeriod)
		deciding.Confirming = &confirmEnd
		e.emit(newConfirmStartedEvent(index))
	}
	status.Deciding = deciding

	alarmAt := e.decisionTime(info, deciding, now, status.Tally, status.Track)
	next, _ := e.alarms.EnsureAlarmAt(toAlarm(status.Alarm), index, alarmAt)
	status.Alarm = fromAlarm(next)
	return store.ReferendumInfo{Status: store.StatusOngoing, Ongoing: &status}, true, nil
}

// --- Branch B: deciding ---

func (e *Engine) serviceDeciding(now types.BlockNumber, index uint32, status store.ReferendumStatus, info track.Info) (store.ReferendumInfo, bool, error) {
	d := *status.Deciding
	passing := e.isPassing(info, d.Since, now, status.Tally, status.Track)
	dirty := false

	if passing {
		switch {
		case d.Confirming != nil && now >= *d.Confirming:
			return e.concludeApproved(now, index, status)
		case d.Confirming != nil:
			// still confirming, no change
		default:
			confirmEnd := now.SaturatingAdd(info.ConfirmPeriod)
			d.Confirming = &confirmEnd
			e.emit(newConfirmStartedEvent(index))
			dirty = true
		}
	} else {
		decisionEnd := d.Since.SaturatingAdd(info.DecisionPeriod)
		switch {
		case now >= decisionEnd:
			return e.concludeRejected(now, index, status)
		case d.Confirming != nil:
			d.Confirming = nil
			e.emit(newConfirmAbortedEvent(index))
			dirty = true
		default:
			// continue not confirming, no change
		}
	}

	status.Deciding = &d
	alarmAt := e.decisionTime(info, &d, now, status.Tally, status.Track)
	next, changed := e.alarms.EnsureAlarmAt(toAlarm(status.Alarm), index, alarmAt)
	status.Alarm = fromAlarm(next)
	return store.ReferendumInfo{Status: store.StatusOngoing, Ongoing: &status}, dirty || changed, nil
}

func (e *Engine) concludeApproved(now types.BlockNumber, index uint32, status store.ReferendumStatus) (store.ReferendumInfo, bool, error) {
	status.Alarm = fromAlarm(e.alarms.EnsureNoAlarm(toAlarm(status.Alarm)))
	e.noteOneFewerDeciding(now, status.Track)
	if err := e.scheduleEnactment(now, index, status); err != nil {
		return store.ReferendumInfo{}, false, err
	}
	e.emit(newConfirmedEvent(index, status.Track, status.Tally))
	e.emit(newApprovedEvent(index))
	return store.ReferendumInfo{
		Status:            store.StatusApproved,
		End:               now,
		SubmissionDeposit: &status.SubmissionDeposit,
		DecisionDeposit:   status.DecisionDeposit,
	}, true, nil
}

func (e *Engine) concludeRejected(now types.BlockNumber, index uint32, status store.ReferendumStatus) (store.ReferendumInfo, bool, error) {
	status.Alarm = fromAlarm(e.alarms.EnsureNoAlarm(toAlarm(status.Alarm)))
	e.noteOneFewerDeciding(now, status.Track)
	e.emit(newRejectedEvent(index, status.Track, status.Tally))
	return store.ReferendumInfo{
		Status:            store.StatusRejected,
		End:               now,
		SubmissionDeposit: &status.SubmissionDeposit,
		DecisionDeposit:   status.DecisionDeposit,
	}, true, nil
}

// isPassing evaluates both curves at the elapsed fraction of the decision
// period since d.Since (spec §4.7 B.1).
func (e *Engine) isPassing(info track.Info, since, now types.BlockNumber, t tally.Tally, trackID track.Id) bool {
	x := elapsedFraction(since, now, info.DecisionPeriod)
	approval := zeroPerbill
	support := zeroPerbill
	if t != nil {
		approval = t.Approval(trackID)
		support = t.Support(trackID)
	}
	return info.MinApproval.Passing(x, approval) && info.MinSupport.Passing(x, support)
}

// decisionTime computes the next informative alarm for a deciding record
// (spec §4.7 B.4): the confirmation deadline if confirming, otherwise the
// earliest block at which current measurements would newly be passing.
func (e *Engine) decisionTime(info track.Info, d *store.DecidingStatus, now types.BlockNumber, t tally.Tally, trackID track.Id) types.BlockNumber {
	if d.Confirming != nil {
		return maxBlock(*d.Confirming, now.SaturatingAdd(1))
	}
	approval := zeroPerbill
	support := zeroPerbill
	if t != nil {
		approval = t.Approval(trackID)
		support = t.Support(trackID)
	}
	approvalDelay := info.MinApproval.Delay(approval)
	supportDelay := info.MinSupport.Delay(support)
	delay := approvalDelay
	if supportDelay > delay {
		delay = supportDelay
	}
	offset := perbillToBlocksCeil(delay, info.DecisionPeriod)
	return maxBlock(d.Since.SaturatingAdd(offset), now.SaturatingAdd(1))
}

func elapsedFraction(since, now, period types.BlockNumber) types.Perbill {
	if now <= since || period == 0 {
		return 0
	}
	elapsed := uint64(now - since)
	return types.PerbillFromFraction(elapsed, uint64(period))
}

func perbillToBlocksCeil(p types.Perbill, period types.BlockNumber) types.BlockNumber {
	num := uint64(p) * uint64(period)
	denom := uint64(types.OneBillion)
	return types.BlockNumber((num + denom - 1) / denom)
}

func maxBlock(a, b types.BlockNumber) types.BlockNumber {
	if a > b {
		return a
	}
	return b
}

var zeroPerbill types.Perbill
