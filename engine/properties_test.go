package engine

import (
	"math/big"
	"testing"

	"assembly/store"
	"assembly/tally"
)

// These tests exercise the property-level invariants from spec §8 that
// belong to this package (P7, the queue ordering, is covered in the queue
// package; P3 has no dedicated test).

// P2: DecidingCount never exceeds MaxDeciding for a track, even with more
// referenda ready than the track has room for.
func TestPropertyDecidingCountNeverExceedsMaxDeciding(t *testing.T) {
	r := newScenarioRig(3)
	r.at(0)
	indices := make([]uint32, 0, 4)
	for i := byte(1); i <= 4; i++ {
		index, err := r.engine.Submit("t", []byte{i}, enactAfter(0), testAddr(i))
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		indices = append(indices, index)
	}
	r.at(1)
	for i, index := range indices {
		if err := r.engine.PlaceDecisionDeposit(index, testAddr(byte(10+i))); err != nil {
			t.Fatalf("deposit %d: %v", index, err)
		}
	}

	r.at(10)
	for _, index := range indices {
		if err := r.engine.NudgeReferendum(index); err != nil {
			t.Fatalf("nudge %d: %v", index, err)
		}
	}

	count, err := r.engine.state.DecidingCount(scenarioTrack)
	if err != nil {
		t.Fatalf("deciding count: %v", err)
	}
	if count > 1 {
		t.Fatalf("expected DecidingCount <= max_deciding(1), got %d", count)
	}

	deciding, queued := 0, 0
	for _, index := range indices {
		info, _, _ := r.engine.state.GetReferendum(index)
		if info.Ongoing.Deciding != nil {
			deciding++
		}
		if info.Ongoing.InQueue {
			queued++
		}
	}
	if deciding != 1 {
		t.Fatalf("expected exactly 1 referendum deciding, got %d", deciding)
	}
	if queued != 3 {
		t.Fatalf("expected the remaining 3 referenda queued, got %d", queued)
	}
}

// P4: a deciding record's since is always strictly before its confirming
// deadline, whenever one is set.
func TestPropertySinceBeforeConfirming(t *testing.T) {
	r := newScenarioRig(1)
	r.at(0)
	index, err := r.engine.Submit("t", []byte("call"), enactAfter(0), testAddr(1))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	r.at(1)
	if err := r.engine.PlaceDecisionDeposit(index, testAddr(2)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	r.setStoredTally(t, index, tally.WeightSnapshot{AyeWeight: 1, Electorate: 1})

	r.at(10)
	if err := r.engine.NudgeReferendum(index); err != nil {
		t.Fatalf("nudge: %v", err)
	}
	info, _, _ := r.engine.state.GetReferendum(index)
	d := info.Ongoing.Deciding
	if d == nil || d.Confirming == nil {
		t.Fatalf("expected confirming to be set, got %+v", d)
	}
	if !(d.Since < *d.Confirming) {
		t.Fatalf("expected since(%d) < confirming(%d)", d.Since, *d.Confirming)
	}
}

// P5: a live alarm is always scheduled at or after the current block, and
// exactly on an AlarmInterval boundary.
func TestPropertyAlarmQuantizedAndInFuture(t *testing.T) {
	r := newScenarioRig(1)
	e := r.engine
	e.SetScheduler(r.scheduler, 16) // AlarmInterval=16 boundary case (spec §8 boundary behaviors)

	r.at(3)
	index, err := e.Submit("t", []byte("call"), enactAfter(0), testAddr(1))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	info, _, _ := e.state.GetReferendum(index)
	alarm := info.Ongoing.Alarm
	if alarm == nil {
		t.Fatalf("expected an alarm to be armed")
	}
	if alarm.When < r.blocks.now {
		t.Fatalf("alarm %d must not be in the past (now=%d)", alarm.When, r.blocks.now)
	}
	if alarm.When%16 != 0 {
		t.Fatalf("alarm %d must land on an AlarmInterval=16 boundary", alarm.When)
	}
}

// P6: currency reserved moves exactly in step with stored deposit amounts
// across a full approve-then-refund cycle; nothing is leaked or double
// moved.
func TestPropertyDepositReserveTracksStoredAmounts(t *testing.T) {
	r := newScenarioRig(1)
	r.at(0)
	alice, bob := testAddr(1), testAddr(2)
	index, err := r.engine.Submit("t", []byte("call"), enactAfter(0), alice)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := r.currency.reserved[alice.String()]; got == nil || got.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("expected alice's reserve to equal SubmissionDeposit(1), got %v", got)
	}

	r.at(1)
	if err := r.engine.PlaceDecisionDeposit(index, bob); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if got := r.currency.reserved[bob.String()]; got == nil || got.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("expected bob's reserve to equal decision_deposit(10), got %v", got)
	}

	r.setStoredTally(t, index, tally.WeightSnapshot{AyeWeight: 1, Electorate: 1})
	r.at(10)
	if err := r.engine.NudgeReferendum(index); err != nil {
		t.Fatalf("nudge at 10: %v", err)
	}
	r.at(30)
	if err := r.engine.NudgeReferendum(index); err != nil {
		t.Fatalf("nudge at 30: %v", err)
	}
	info, _, _ := r.engine.state.GetReferendum(index)
	if info.Status != store.StatusApproved {
		t.Fatalf("expected Approved, got %v", info.Status)
	}
	// Still reserved: approval alone does not refund.
	if got := r.currency.reserved[alice.String()]; got == nil || got.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("expected alice's reserve to remain 1 pre-refund, got %v", got)
	}

	if err := r.engine.RefundSubmissionDeposit(index); err != nil {
		t.Fatalf("refund submission: %v", err)
	}
	if err := r.engine.RefundDecisionDeposit(index); err != nil {
		t.Fatalf("refund decision: %v", err)
	}
	if got := r.currency.reserved[alice.String()]; got.Sign() != 0 {
		t.Fatalf("expected alice's reserve fully released, got %v", got)
	}
	if got := r.currency.reserved[bob.String()]; got.Sign() != 0 {
		t.Fatalf("expected bob's reserve fully released, got %v", got)
	}
	if err := r.engine.RefundSubmissionDeposit(index); err == nil {
		t.Fatalf("expected double refund of submission deposit to fail")
	}
	if err := r.engine.RefundDecisionDeposit(index); err == nil {
		t.Fatalf("expected double refund of decision deposit to fail")
	}
}

// P1: ReferendumCount always equals the number of indices that have ever
// been written a record.
func TestPropertyReferendumCountMatchesStoredEntries(t *testing.T) {
	r := newScenarioRig(3)
	r.at(0)
	want := 5
	for i := byte(1); i <= byte(want); i++ {
		if _, err := r.engine.Submit("t", []byte{i}, enactAfter(0), testAddr(i)); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	count, err := r.engine.state.ReferendumCount()
	if err != nil {
		t.Fatalf("referendum count: %v", err)
	}
	if int(count) != want {
		t.Fatalf("expected ReferendumCount=%d, got %d", want, count)
	}
	for i := uint32(0); i < count; i++ {
		if _, ok, err := r.engine.state.GetReferendum(i); err != nil || !ok {
			t.Fatalf("expected index %d to have a stored record, ok=%v err=%v", i, ok, err)
		}
	}
}

// P8: replaying the same operation sequence from the same initial state
// yields identical storage and event log.
func TestPropertyDeterministicReplay(t *testing.T) {
	run := func() (store.ReferendumInfo, []string) {
		r := newScenarioRig(1)
		r.at(0)
		index, err := r.engine.Submit("t", []byte("call"), enactAfter(0), testAddr(1))
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		r.at(1)
		if err := r.engine.PlaceDecisionDeposit(index, testAddr(2)); err != nil {
			t.Fatalf("deposit: %v", err)
		}
		r.setStoredTally(t, index, tally.WeightSnapshot{AyeWeight: 1, Electorate: 1})
		r.at(10)
		if err := r.engine.NudgeReferendum(index); err != nil {
			t.Fatalf("nudge at 10: %v", err)
		}
		r.at(30)
		if err := r.engine.NudgeReferendum(index); err != nil {
			t.Fatalf("nudge at 30: %v", err)
		}
		info, _, _ := r.engine.state.GetReferendum(index)
		return info, r.emitter.events
	}

	infoA, eventsA := run()
	infoB, eventsB := run()

	if infoA.Status != infoB.Status || infoA.End != infoB.End {
		t.Fatalf("replay diverged on terminal status: %+v vs %+v", infoA, infoB)
	}
	if len(eventsA) != len(eventsB) {
		t.Fatalf("replay diverged on event count: %v vs %v", eventsA, eventsB)
	}
	for i := range eventsA {
		if eventsA[i] != eventsB[i] {
			t.Fatalf("replay diverged at event %d: %q vs %q", i, eventsA[i], eventsB[i])
		}
	}
}
