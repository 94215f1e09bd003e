// Package tally defines the external ballot-tallying interface the engine
// consumes and the opaque vote totals it accepts without interpreting
// them. The engine never counts votes; it only reads monotonically
// evolving totals written elsewhere, keyed by track.
package tally

import (
	"assembly/core/types"
	"assembly/track"
)

// Tally is the external collaborator exposing a referendum's current vote
// totals. Implementations are free to represent the underlying ballots
// however they like; the engine only ever calls these three methods (spec
// §6, §9 "polymorphism over tally").
type Tally interface {
	Ayes(trackID track.Id) uint64
	Approval(trackID track.Id) types.Perbill
	Support(trackID track.Id) types.Perbill
}

// Factory constructs a fresh Tally for a newly submitted referendum in the
// given track.
type Factory interface {
	New(trackID track.Id) Tally
}

// WeightSnapshot is a reference in-memory Tally implementation backed by a
// fixed conviction-weighted vote snapshot, suitable for tests and
// single-process examples wiring the engine end to end.
type WeightSnapshot struct {
	AyeWeight  uint64
	NayWeight  uint64
	Electorate uint64
}

// Ayes implements Tally.
func (w WeightSnapshot) Ayes(track.Id) uint64 { return w.AyeWeight }

// Approval implements Tally: ayes / (ayes + nays), the fraction of cast,
// weighted votes in favor.
func (w WeightSnapshot) Approval(track.Id) types.Perbill {
	total := w.AyeWeight + w.NayWeight
	if total == 0 {
		return 0
	}
	return types.PerbillFromFraction(w.AyeWeight, total)
}

// Support implements Tally: (ayes + nays) / electorate, the fraction of
// total possible weight that has turned out at all.
func (w WeightSnapshot) Support(track.Id) types.Perbill {
	if w.Electorate == 0 {
		return 0
	}
	return types.PerbillFromFraction(w.AyeWeight+w.NayWeight, w.Electorate)
}

// WeightSnapshotFactory produces zero-valued WeightSnapshot tallies.
type WeightSnapshotFactory struct {
	Electorate uint64
}

// New implements Factory.
func (f WeightSnapshotFactory) New(track.Id) Tally {
	return WeightSnapshot{Electorate: f.Electorate}
}
