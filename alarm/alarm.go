// Package alarm manages the quantized scheduled wake-ups ("alarms") the
// engine arms against an external scheduler so that referenda and tracks
// are re-serviced at the right future block without polling.
package alarm

import (
	"encoding/binary"

	"assembly/core/types"
	"golang.org/x/crypto/blake2b"
)

// Priority is the scheduler priority used when arming a per-referendum
// alarm, per spec §4.4.
const Priority = 128

// OneFewerDecidingPriority is the priority used for the unconditional
// next-block nudge armed by one_fewer_deciding.
const OneFewerDecidingPriority = 128

// Origin identifies the dispatch origin the scheduler should use when
// invoking the alarm's call. The engine always arms alarms with Root.
const Origin = "root"

// Call is the opaque payload the scheduler will eventually dispatch back
// into the engine. It is either a per-referendum nudge or a per-track
// one-fewer-deciding nudge.
type Call struct {
	NudgeReferendum *uint32
	OneFewerDeciding *uint16
}

// Scheduler is the external collaborator providing named/anonymous future
// dispatch and cancellation (spec §6).
type Scheduler interface {
	Schedule(at types.BlockNumber, priority uint8, origin string, call Call) (types.ScheduleAddress, error)
	ScheduleNamed(key [32]byte, at types.BlockNumber, priority uint8, origin string, call Call) (types.ScheduleAddress, error)
	Cancel(address types.ScheduleAddress) error
}

// Manager wraps a Scheduler with the engine's quantization and
// idempotence policy for per-referendum alarms.
type Manager struct {
	scheduler     Scheduler
	alarmInterval types.BlockNumber
}

// NewManager constructs a Manager. alarmInterval must be at least 1; every
// arming rounds its target block up to the next multiple of it.
func NewManager(scheduler Scheduler, alarmInterval types.BlockNumber) *Manager {
	if alarmInterval == 0 {
		alarmInterval = 1
	}
	return &Manager{scheduler: scheduler, alarmInterval: alarmInterval}
}

// Quantize rounds when up to the next multiple of the configured
// AlarmInterval.
func (m *Manager) Quantize(when types.BlockNumber) types.BlockNumber {
	interval := uint64(m.alarmInterval)
	w := uint64(when)
	rounded := ((w + interval - 1) / interval) * interval
	return types.BlockNumber(rounded)
}

// Alarm is a live scheduled wake-up: the quantized block it fires at and
// the scheduler-assigned address needed to cancel it.
type Alarm struct {
	When    types.BlockNumber
	Address types.ScheduleAddress
}

// SetAlarm rounds when up to the AlarmInterval boundary and submits an
// anonymous scheduled dispatch at Priority with Root origin. A scheduler
// failure is treated as a non-fatal internal condition per spec §4.4: the
// caller proceeds without an alarm and the next touch of the record will
// re-arm it.
func (m *Manager) SetAlarm(index uint32, when types.BlockNumber) (*Alarm, bool) {
	rounded := m.Quantize(when)
	addr, err := m.scheduler.Schedule(rounded, Priority, Origin, Call{NudgeReferendum: &index})
	if err != nil {
		return nil, false
	}
	return &Alarm{When: rounded, Address: addr}, true
}

// EnsureAlarmAt idempotently ensures current fires at exactly the quantized
// w: if current already matches, it is a no-op and reports false (no
// change). Otherwise any existing alarm is cancelled and a fresh one is
// armed at w, reporting true.
func (m *Manager) EnsureAlarmAt(current *Alarm, index uint32, w types.BlockNumber) (*Alarm, bool) {
	rounded := m.Quantize(w)
	if current != nil && current.When == rounded {
		return current, false
	}
	if current != nil {
		_ = m.scheduler.Cancel(current.Address)
	}
	next, ok := m.SetAlarm(index, rounded)
	if !ok {
		return nil, true
	}
	return next, true
}

// EnsureNoAlarm cancels and clears any existing alarm.
func (m *Manager) EnsureNoAlarm(current *Alarm) *Alarm {
	if current == nil {
		return nil
	}
	_ = m.scheduler.Cancel(current.Address)
	return nil
}

// SetOneFewerDecidingAlarm schedules an unconditional nudge for the next
// block for a track that just vacated a deciding slot, per spec §4.4.
func (m *Manager) SetOneFewerDecidingAlarm(now types.BlockNumber, track uint16) (types.ScheduleAddress, error) {
	return m.scheduler.Schedule(now.SaturatingAdd(1), OneFewerDecidingPriority, Origin, Call{OneFewerDeciding: &track})
}

// ScheduleKey derives the deterministic key used for named scheduling, per
// spec's `blake2_256("assembly" ++ domain ++ index)` convention. The
// enactment key uses domain "enactment"; this helper is shared so any
// future named-schedule domain stays bit-for-bit reproducible.
func ScheduleKey(domain string, index uint32) [32]byte {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(err)
	}
	h.Write([]byte("assembly"))
	h.Write([]byte(domain))
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], index)
	h.Write(buf[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
