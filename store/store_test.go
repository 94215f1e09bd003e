package store

import (
	"math/big"
	"testing"

	"assembly/core/types"
	"assembly/crypto"
	"assembly/deposit"
	"assembly/queue"
	"assembly/storage"
	"assembly/tally"
	"assembly/track"
)

func testAddress(b byte) crypto.Address {
	raw := make([]byte, 20)
	raw[0] = b
	return crypto.MustNewAddress(crypto.AccountPrefix, raw)
}

func newStore() *KVStore {
	return NewKVStore(storage.NewMemDB())
}

func TestNextIndexIncrementsAndPersists(t *testing.T) {
	s := newStore()
	first, err := s.NextIndex()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != 0 {
		t.Fatalf("expected first index 0, got %d", first)
	}
	second, err := s.NextIndex()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second != 1 {
		t.Fatalf("expected second index 1, got %d", second)
	}
	count, err := s.ReferendumCount()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
}

func TestReferendumRoundTrip(t *testing.T) {
	s := newStore()
	confirming := types.BlockNumber(30)
	addr := testAddress(1)
	info := ReferendumInfo{
		Status: StatusOngoing,
		Ongoing: &ReferendumStatus{
			Track:     0,
			Origin:    "root",
			Submitted: 5,
			SubmissionDeposit: deposit.Deposit{
				Who:    addr,
				Amount: big.NewInt(1),
			},
			Deciding: &DecidingStatus{Since: 10, Confirming: &confirming},
			Tally:    tally.WeightSnapshot{AyeWeight: 10, NayWeight: 1, Electorate: 100},
			InQueue:  false,
		},
	}
	if err := s.PutReferendum(0, info); err != nil {
		t.Fatalf("unexpected put error: %v", err)
	}
	got, ok, err := s.GetReferendum(0)
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if !ok {
		t.Fatalf("expected referendum to be found")
	}
	if got.Status != StatusOngoing || got.Ongoing == nil {
		t.Fatalf("unexpected round-tripped status: %+v", got)
	}
	if got.Ongoing.Submitted != 5 {
		t.Fatalf("unexpected submitted block: %d", got.Ongoing.Submitted)
	}
	if got.Ongoing.SubmissionDeposit.Who.String() != addr.String() {
		t.Fatalf("unexpected depositor: %s", got.Ongoing.SubmissionDeposit.Who.String())
	}
	if got.Ongoing.SubmissionDeposit.Amount.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("unexpected deposit amount: %v", got.Ongoing.SubmissionDeposit.Amount)
	}
	if got.Ongoing.Deciding == nil || got.Ongoing.Deciding.Confirming == nil || *got.Ongoing.Deciding.Confirming != 30 {
		t.Fatalf("unexpected deciding status: %+v", got.Ongoing.Deciding)
	}
	snap, ok := got.Ongoing.Tally.(tally.WeightSnapshot)
	if !ok || snap.AyeWeight != 10 {
		t.Fatalf("unexpected tally round-trip: %+v", got.Ongoing.Tally)
	}
}

func TestGetReferendumMissing(t *testing.T) {
	s := newStore()
	_, ok, err := s.GetReferendum(42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected missing referendum to report false")
	}
}

func TestQueueRoundTrip(t *testing.T) {
	s := newStore()
	q := queue.New(3)
	q.Insert(1, 5)
	q.Insert(2, 10)
	if err := s.PutQueue(0, q); err != nil {
		t.Fatalf("unexpected put error: %v", err)
	}
	restored, err := s.GetQueue(0, 3)
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	entries := restored.Entries()
	if len(entries) != 2 || entries[0].Ayes != 5 || entries[1].Ayes != 10 {
		t.Fatalf("unexpected restored entries: %+v", entries)
	}
	if restored.Max() != 3 {
		t.Fatalf("unexpected restored max: %d", restored.Max())
	}
}

func TestGetQueueMissingReturnsFreshQueue(t *testing.T) {
	s := newStore()
	q, err := s.GetQueue(track.Id(7), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Len() != 0 || q.Max() != 5 {
		t.Fatalf("expected fresh empty queue, got len=%d max=%d", q.Len(), q.Max())
	}
}

func TestDecidingCountRoundTrip(t *testing.T) {
	s := newStore()
	if err := s.SetDecidingCount(0, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	count, err := s.DecidingCount(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 3 {
		t.Fatalf("unexpected count: %d", count)
	}
}

func TestDecidingCountDefaultsToZero(t *testing.T) {
	s := newStore()
	count, err := s.DecidingCount(99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected default zero, got %d", count)
	}
}

func TestMetadataSetGetClear(t *testing.T) {
	s := newStore()
	var h types.Hash
	h[0] = 0xab
	if err := s.SetMetadata(0, h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok, err := s.GetMetadata(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || got != h {
		t.Fatalf("unexpected metadata round-trip: %+v ok=%v", got, ok)
	}
	if err := s.ClearMetadata(0); err != nil {
		t.Fatalf("unexpected clear error: %v", err)
	}
	_, ok, err = s.GetMetadata(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected metadata to be cleared")
	}
}
