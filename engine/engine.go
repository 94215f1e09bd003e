// Package engine implements the deterministic referenda state machine: the
// service_referendum function family and the public operations that drive
// it (spec §4.7, §4.8). It is the only writer of a record's deciding,
// alarm, in_queue, and decision_deposit fields (spec §9).
package engine

import (
	"io"
	"log/slog"
	"math/big"
	"os"

	"assembly/alarm"
	"assembly/core/errors"
	"assembly/core/events"
	"assembly/core/types"
	"assembly/deposit"
	"assembly/store"
	"assembly/tally"
	"assembly/track"
)

// Preimages is the external collaborator storing/looking up proposal
// bodies by hash (spec §6).
type Preimages interface {
	Bound(call []byte) store.Proposal
	Len(hash types.Hash) (uint32, bool)
}

// BlockNumberProvider supplies the current block height.
type BlockNumberProvider interface {
	CurrentBlockNumber() types.BlockNumber
}

// EnactmentScheduler is the external collaborator that eventually dispatches
// an approved proposal's call. It is distinct from the alarm Scheduler: the
// engine hands it the bounded proposal itself rather than a nudge back into
// the engine, and never learns whether dispatch succeeded (spec §1
// non-goals: the engine does not execute proposals).
type EnactmentScheduler interface {
	ScheduleNamed(key [32]byte, at types.BlockNumber, priority uint8, origin string, proposal store.Proposal) (types.ScheduleAddress, error)
}

// EnactmentPriority is the scheduler priority used for approved proposals,
// per spec §6.
const EnactmentPriority = 63

// Scheduler is re-exported so callers only need to import engine to wire
// the full stack.
type Scheduler = alarm.Scheduler

// Config holds the engine-wide configurable constants of spec §6. The
// alarm quantization interval is supplied separately via SetScheduler,
// since it is a property of the scheduler wiring rather than a referenda
// policy constant.
type Config struct {
	SubmissionDeposit *big.Int
	UndecidingTimeout types.BlockNumber
}

// Engine orchestrates referenda admission, deciding, and conclusion. It
// never executes a proposal itself; it hands prepared proposals to the
// scheduler at the earliest permitted block (spec §1 non-goals).
type Engine struct {
	state      store.ReferendumStore
	registry   track.Registry
	currency   deposit.Currency
	preimages  Preimages
	tallies    tally.Factory
	blocks     BlockNumberProvider
	emitter    events.Emitter
	enactments EnactmentScheduler

	alarms *alarm.Manager
	log    *slog.Logger

	submissionDeposit *big.Int
	undecidingTimeout types.BlockNumber
}

// NewEngine constructs an Engine with no-op dependencies; callers must
// wire state, registry, currency, preimages, tallies, blocks, and a
// scheduler before use.
func NewEngine() *Engine {
	return &Engine{
		emitter:           events.NoopEmitter{},
		submissionDeposit: big.NewInt(0),
		log:               slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
}

// SetState wires the referendum store.
func (e *Engine) SetState(state store.ReferendumStore) { e.state = state }

// SetRegistry wires the track registry.
func (e *Engine) SetRegistry(registry track.Registry) { e.registry = registry }

// SetCurrency wires the deposit currency.
func (e *Engine) SetCurrency(currency deposit.Currency) { e.currency = currency }

// SetPreimages wires the preimage registry.
func (e *Engine) SetPreimages(preimages Preimages) { e.preimages = preimages }

// SetTallyFactory wires the tally factory used to initialize new referenda.
func (e *Engine) SetTallyFactory(factory tally.Factory) { e.tallies = factory }

// SetBlockNumberProvider wires the current-block source.
func (e *Engine) SetBlockNumberProvider(provider BlockNumberProvider) { e.blocks = provider }

// SetScheduler wires the scheduler and the alarm quantization interval.
func (e *Engine) SetScheduler(scheduler Scheduler, alarmInterval types.BlockNumber) {
	e.alarms = alarm.NewManager(scheduler, alarmInterval)
}

// SetEnactmentScheduler wires the collaborator that dispatches approved
// proposals at their computed enactment block.
func (e *Engine) SetEnactmentScheduler(scheduler EnactmentScheduler) { e.enactments = scheduler }

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetLogger wires the structured logger used to report tolerated failures
// (spec §4.4, §7), e.g. a scheduler unable to arm a one_fewer_deciding
// alarm. Passing nil resets to a discarding logger.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		e.log = slog.New(slog.NewTextHandler(io.Discard, nil))
		return
	}
	e.log = logger
}

// SetConfig applies the configurable constants of spec §6.
func (e *Engine) SetConfig(cfg Config) {
	if cfg.SubmissionDeposit != nil {
		e.submissionDeposit = new(big.Int).Set(cfg.SubmissionDeposit)
	} else {
		e.submissionDeposit = big.NewInt(0)
	}
	e.undecidingTimeout = cfg.UndecidingTimeout
}

func (e *Engine) now() types.BlockNumber {
	if e.blocks == nil {
		return 0
	}
	return e.blocks.CurrentBlockNumber()
}

func (e *Engine) ready() error {
	if e.state == nil || e.registry == nil || e.currency == nil || e.tallies == nil || e.alarms == nil {
		return errors.ErrStateNotConfigured
	}
	return nil
}

func (e *Engine) emit(evt *types.Event) {
	if evt == nil {
		return
	}
	e.emitter.Emit(referendumEvent{evt: evt})
}

type referendumEvent struct {
	evt *types.Event
}

func (r referendumEvent) EventType() string {
	if r.evt == nil {
		return ""
	}
	return r.evt.Type
}

func (r referendumEvent) Event() *types.Event { return r.evt }
