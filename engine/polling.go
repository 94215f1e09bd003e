package engine

import (
	"assembly/core/errors"
	"assembly/core/types"
	"assembly/store"
)

// Referendum returns the current record for index, for read-only consumers
// such as the polling package. The second return value is false if no
// referendum has ever been submitted at that index.
func (e *Engine) Referendum(index uint32) (store.ReferendumInfo, bool, error) {
	if err := e.ready(); err != nil {
		return store.ReferendumInfo{}, false, err
	}
	return e.state.GetReferendum(index)
}

// CurrentBlock exposes the wired BlockNumberProvider to read-only consumers.
func (e *Engine) CurrentBlock() types.BlockNumber {
	return e.now()
}

// ArmAlarm idempotently ensures an Ongoing referendum has a live alarm at
// exactly when, persisting the change. It is the mechanism the polling
// package uses to schedule a re-service one block after a voting subsystem
// observes and mutates the tally (spec §6 access_poll).
func (e *Engine) ArmAlarm(index uint32, when types.BlockNumber) error {
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
	next, _ := e.alarms.EnsureAlarmAt(toAlarm(status.Alarm), index, when)
	status.Alarm = fromAlarm(next)
	info.Ongoing = &status
	return e.state.PutReferendum(index, info)
}
