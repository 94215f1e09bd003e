// Package track holds the immutable per-track policy registry: deposits,
// timing periods, queue limits, and the approval/support curves that decide
// whether a referendum in that track is passing.
package track

import (
	"assembly/core/errors"
	"assembly/core/types"
	"assembly/curve"
)

// Id is an opaque track identifier.
type Id uint16

// Info is the immutable configuration of a single track.
type Info struct {
	Name               string
	MaxDeciding        uint32
	DecisionDeposit    uint64
	PreparePeriod      types.BlockNumber
	DecisionPeriod     types.BlockNumber
	ConfirmPeriod      types.BlockNumber
	MinEnactmentPeriod types.BlockNumber
	MinApproval        curve.Curve
	MinSupport         curve.Curve
	MaxQueued          uint32
}

// Registry yields the set of configured tracks and classifies dispatch
// origins into a track. Implementations must return a stable value for the
// duration of any one state-machine service call (spec §4.2); a dynamic
// implementation is otherwise permitted.
type Registry interface {
	Tracks() []Id
	Info(id Id) (Info, bool)
	TrackFor(origin string) (Id, error)
}

// Static is an immutable Registry backed by a fixed map, built once at
// startup from configuration and never mutated afterward.
type Static struct {
	order      []Id
	infos      map[Id]Info
	originToID map[string]Id
}

// NewStatic builds a Static registry from the given tracks (in the order
// they should be reported by Tracks) and an origin classification table.
func NewStatic(tracks map[Id]Info, order []Id, originToID map[string]Id) *Static {
	infos := make(map[Id]Info, len(tracks))
	for id, info := range tracks {
		infos[id] = info
	}
	origins := make(map[string]Id, len(originToID))
	for origin, id := range originToID {
		origins[origin] = id
	}
	return &Static{
		order:      append([]Id(nil), order...),
		infos:      infos,
		originToID: origins,
	}
}

// Tracks implements Registry.
func (s *Static) Tracks() []Id {
	return append([]Id(nil), s.order...)
}

// Info implements Registry.
func (s *Static) Info(id Id) (Info, bool) {
	info, ok := s.infos[id]
	return info, ok
}

// TrackFor implements Registry.
func (s *Static) TrackFor(origin string) (Id, error) {
	id, ok := s.originToID[origin]
	if !ok {
		return 0, errors.ErrNoTrack
	}
	if _, ok := s.infos[id]; !ok {
		return 0, errors.ErrBadTrack
	}
	return id, nil
}
