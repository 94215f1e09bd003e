package engine

import (
	"math/big"

	"assembly/alarm"
	"assembly/core/events"
	"assembly/core/types"
	"assembly/crypto"
	"assembly/store"
	"assembly/tally"
	"assembly/track"
)

type fakeCurrency struct {
	reserved map[string]*big.Int
	fail     bool
}

func newFakeCurrency() *fakeCurrency {
	return &fakeCurrency{reserved: make(map[string]*big.Int)}
}

func (c *fakeCurrency) Reserve(who crypto.Address, amount *big.Int) error {
	if c.fail {
		return errInsufficientTest
	}
	key := who.String()
	cur, ok := c.reserved[key]
	if !ok {
		cur = big.NewInt(0)
	}
	c.reserved[key] = new(big.Int).Add(cur, amount)
	return nil
}

func (c *fakeCurrency) Unreserve(who crypto.Address, amount *big.Int) error {
	key := who.String()
	cur := c.reserved[key]
	if cur == nil {
		cur = big.NewInt(0)
	}
	c.reserved[key] = new(big.Int).Sub(cur, amount)
	return nil
}

func (c *fakeCurrency) SlashReserved(who crypto.Address, amount *big.Int) error {
	key := who.String()
	cur := c.reserved[key]
	if cur == nil {
		cur = big.NewInt(0)
	}
	c.reserved[key] = new(big.Int).Sub(cur, amount)
	return nil
}

type testErrType string

func (e testErrType) Error() string { return string(e) }

const errInsufficientTest = testErrType("engine: insufficient funds for test")

type fakePreimages struct {
	nextHash byte
	stored   map[types.Hash]uint32
}

func (p *fakePreimages) Bound(call []byte) store.Proposal {
	p.nextHash++
	var h types.Hash
	h[0] = p.nextHash
	if p.stored == nil {
		p.stored = make(map[types.Hash]uint32)
	}
	if _, already := p.stored[h]; !already {
		p.stored[h] = uint32(len(call))
	}
	return store.Proposal{Hash: h, Length: uint32(len(call))}
}

func (p *fakePreimages) Len(hash types.Hash) (uint32, bool) {
	length, ok := p.stored[hash]
	return length, ok
}

type fakeBlocks struct {
	now types.BlockNumber
}

func (b *fakeBlocks) CurrentBlockNumber() types.BlockNumber { return b.now }

type fakeScheduler struct {
	nextAddr byte
	canceled map[types.ScheduleAddress]bool
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{canceled: make(map[types.ScheduleAddress]bool)}
}

func (s *fakeScheduler) Schedule(at types.BlockNumber, priority uint8, origin string, call alarm.Call) (types.ScheduleAddress, error) {
	s.nextAddr++
	var addr types.ScheduleAddress
	addr[0] = s.nextAddr
	return addr, nil
}

func (s *fakeScheduler) ScheduleNamed(key [32]byte, at types.BlockNumber, priority uint8, origin string, call alarm.Call) (types.ScheduleAddress, error) {
	return s.Schedule(at, priority, origin, call)
}

func (s *fakeScheduler) Cancel(address types.ScheduleAddress) error {
	s.canceled[address] = true
	return nil
}

type enactmentRecord struct {
	index    uint32
	at       types.BlockNumber
	origin   string
	proposal store.Proposal
}

type fakeEnactments struct {
	scheduled []enactmentRecord
}

func (f *fakeEnactments) ScheduleNamed(key [32]byte, at types.BlockNumber, priority uint8, origin string, proposal store.Proposal) (types.ScheduleAddress, error) {
	f.scheduled = append(f.scheduled, enactmentRecord{at: at, origin: origin, proposal: proposal})
	var addr types.ScheduleAddress
	return addr, nil
}

type recordingEmitter struct {
	events []string
}

func (r *recordingEmitter) Emit(evt events.Event) {
	r.events = append(r.events, evt.EventType())
}

func testAddr(b byte) crypto.Address {
	raw := make([]byte, 20)
	raw[0] = b
	return crypto.MustNewAddress(crypto.AccountPrefix, raw)
}

// manualTally lets tests directly control ayes/approval/support per track.
type manualTally struct {
	ayes     uint64
	approval types.Perbill
	support  types.Perbill
}

func (m *manualTally) Ayes(track.Id) uint64          { return m.ayes }
func (m *manualTally) Approval(track.Id) types.Perbill { return m.approval }
func (m *manualTally) Support(track.Id) types.Perbill  { return m.support }

type manualTallyFactory struct {
	byTrack map[track.Id]*manualTally
}

func newManualTallyFactory() *manualTallyFactory {
	return &manualTallyFactory{byTrack: make(map[track.Id]*manualTally)}
}

func (f *manualTallyFactory) New(id track.Id) tally.Tally {
	t, ok := f.byTrack[id]
	if !ok {
		t = &manualTally{}
		f.byTrack[id] = t
	}
	return t
}
