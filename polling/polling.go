// Package polling is the consumer-facing surface a voting subsystem uses to
// read and react to Ongoing referenda without reaching into the engine's
// own state machine (spec §6): classes/access_poll/as_ongoing.
package polling

import (
	"assembly/core/types"
	"assembly/store"
	"assembly/tally"
	"assembly/track"
)

// Engine is the narrow slice of engine.Engine the polling service needs:
// read access to a record, the current block, and the ability to arm a
// re-service alarm. engine.Engine satisfies this directly.
type Engine interface {
	Referendum(index uint32) (store.ReferendumInfo, bool, error)
	CurrentBlock() types.BlockNumber
	ArmAlarm(index uint32, when types.BlockNumber) error
}

// Kind discriminates the Status tagged union.
type Kind uint8

const (
	KindNone Kind = iota
	KindOngoing
	KindCompleted
)

// Ongoing carries the live tally and owning track of a referendum still
// under consideration.
type Ongoing struct {
	Tally tally.Tally
	Track track.Id
}

// Completed carries the terminal outcome of a concluded referendum.
// Only Approved/Rejected referenda are ever reported Completed; every other
// terminal status (Cancelled, TimedOut, Killed) and any unknown index
// report None, per spec §6.
type Completed struct {
	End      types.BlockNumber
	Approved bool
}

// Status is the tagged union returned by a poll access.
type Status struct {
	Kind      Kind
	Ongoing   *Ongoing
	Completed *Completed
}

// Service implements the polling consumer surface against a wired engine
// and the track registry it classifies referenda into.
type Service struct {
	registry track.Registry
	engine   Engine
}

// NewService constructs a Service.
func NewService(registry track.Registry, engine Engine) *Service {
	return &Service{registry: registry, engine: engine}
}

// Classes reports the full set of configured tracks.
func (s *Service) Classes() []track.Id {
	return s.registry.Tracks()
}

func (s *Service) statusOf(index uint32) (Status, error) {
	info, ok, err := s.engine.Referendum(index)
	if err != nil {
		return Status{}, err
	}
	if !ok {
		return Status{Kind: KindNone}, nil
	}
	if info.IsOngoing() {
		return Status{Kind: KindOngoing, Ongoing: &Ongoing{
			Tally: info.Ongoing.Tally,
			Track: info.Ongoing.Track,
		}}, nil
	}
	switch info.Status {
	case store.StatusApproved, store.StatusRejected:
		return Status{Kind: KindCompleted, Completed: &Completed{
			End:      info.End,
			Approved: info.Status == store.StatusApproved,
		}}, nil
	default:
		return Status{Kind: KindNone}, nil
	}
}

// AccessPoll resolves index's status and hands it to f. If the status is
// Ongoing, it additionally arms a re-service alarm at now+1 so the engine
// revisits the record after f (presumably) mutated the tally.
func (s *Service) AccessPoll(index uint32, f func(Status)) error {
	status, err := s.statusOf(index)
	if err != nil {
		return err
	}
	f(status)
	return s.rearmIfOngoing(index, status)
}

// TryAccessPoll is AccessPoll for callbacks that can themselves fail; a
// callback error is propagated without arming the re-service alarm.
func (s *Service) TryAccessPoll(index uint32, f func(Status) error) error {
	status, err := s.statusOf(index)
	if err != nil {
		return err
	}
	if err := f(status); err != nil {
		return err
	}
	return s.rearmIfOngoing(index, status)
}

func (s *Service) rearmIfOngoing(index uint32, status Status) error {
	if status.Kind != KindOngoing {
		return nil
	}
	return s.engine.ArmAlarm(index, s.engine.CurrentBlock().SaturatingAdd(1))
}

// AsOngoing returns the live tally and track of index if, and only if, it is
// currently Ongoing.
func (s *Service) AsOngoing(index uint32) (tally.Tally, track.Id, bool) {
	status, err := s.statusOf(index)
	if err != nil || status.Kind != KindOngoing {
		return nil, 0, false
	}
	return status.Ongoing.Tally, status.Ongoing.Track, true
}
