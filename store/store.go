package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"assembly/core/types"
	"assembly/queue"
	"assembly/storage"
	"assembly/track"
)

// StorageVersion is the on-disk layout version for the four persisted
// entities (spec §6).
const StorageVersion = 1

var (
	keyReferendumCount   = []byte("assembly/v1/referendum_count")
	prefixReferendumInfo = []byte("assembly/v1/referendum_info/")
	prefixTrackQueue     = []byte("assembly/v1/track_queue/")
	prefixDecidingCount  = []byte("assembly/v1/deciding_count/")
	prefixMetadata       = []byte("assembly/v1/metadata/")
)

func referendumInfoKey(index uint32) []byte {
	return append(append([]byte(nil), prefixReferendumInfo...), indexBytes(index)...)
}

func trackQueueKey(id track.Id) []byte {
	return append(append([]byte(nil), prefixTrackQueue...), trackBytes(id)...)
}

func decidingCountKey(id track.Id) []byte {
	return append(append([]byte(nil), prefixDecidingCount...), trackBytes(id)...)
}

func metadataKey(index uint32) []byte {
	return append(append([]byte(nil), prefixMetadata...), indexBytes(index)...)
}

func indexBytes(index uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], index)
	return b[:]
}

func trackBytes(id track.Id) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], uint16(id))
	return b[:]
}

// ReferendumStore is the key-value mapping the engine reads and writes the
// four persisted entities of spec §3 through. Implementations guarantee
// atomic per-key read-modify-write from the perspective of a single block;
// the engine never holds two mutable references to the same record.
type ReferendumStore interface {
	NextIndex() (uint32, error)
	ReferendumCount() (uint32, error)

	GetReferendum(index uint32) (ReferendumInfo, bool, error)
	PutReferendum(index uint32, info ReferendumInfo) error

	// GetQueue reconstructs the persisted queue for id, or a fresh empty
	// queue of capacity max if none has been written yet.
	GetQueue(id track.Id, max uint32) (*queue.Track, error)
	PutQueue(id track.Id, q *queue.Track) error

	DecidingCount(id track.Id) (uint32, error)
	SetDecidingCount(id track.Id, count uint32) error

	GetMetadata(index uint32) (types.Hash, bool, error)
	SetMetadata(index uint32, hash types.Hash) error
	ClearMetadata(index uint32) error
}

// queueSnapshot is the JSON-serializable form of a queue.Track's contents.
type queueSnapshot struct {
	Max     uint32          `json:"max"`
	Entries []queueEntryDTO `json:"entries"`
}

type queueEntryDTO struct {
	Index uint32 `json:"index"`
	Ayes  uint64 `json:"ayes"`
}

// KVStore implements ReferendumStore over a storage.Database, namespacing
// keys by entity. Referendum records and track queues are encoded as JSON;
// counts are 4-byte big-endian integers and metadata is the raw 32-byte
// hash. It backs both the in-memory
// (storage.MemDB) and persistent (storage.LevelDB) deployments identically.
type KVStore struct {
	mu sync.Mutex
	db storage.Database
}

// NewKVStore wraps db as a ReferendumStore.
func NewKVStore(db storage.Database) *KVStore {
	return &KVStore{db: db}
}

// NextIndex atomically allocates and persists the next referendum index.
func (s *KVStore) NextIndex() (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count, err := s.referendumCountLocked()
	if err != nil {
		return 0, err
	}
	if err := s.db.Put(keyReferendumCount, indexBytes(count+1)); err != nil {
		return 0, err
	}
	return count, nil
}

// ReferendumCount returns the current count without allocating.
func (s *KVStore) ReferendumCount() (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.referendumCountLocked()
}

func (s *KVStore) referendumCountLocked() (uint32, error) {
	raw, err := s.db.Get(keyReferendumCount)
	if err != nil {
		if err == storage.ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	if len(raw) != 4 {
		return 0, fmt.Errorf("store: corrupt referendum count")
	}
	return binary.BigEndian.Uint32(raw), nil
}

// GetReferendum implements ReferendumStore.
func (s *KVStore) GetReferendum(index uint32) (ReferendumInfo, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := s.db.Get(referendumInfoKey(index))
	if err != nil {
		if err == storage.ErrNotFound {
			return ReferendumInfo{}, false, nil
		}
		return ReferendumInfo{}, false, err
	}
	var info ReferendumInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return ReferendumInfo{}, false, err
	}
	return info, true, nil
}

// PutReferendum implements ReferendumStore.
func (s *KVStore) PutReferendum(index uint32, info ReferendumInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return s.db.Put(referendumInfoKey(index), raw)
}

// GetQueue implements ReferendumStore.
func (s *KVStore) GetQueue(id track.Id, max uint32) (*queue.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := s.db.Get(trackQueueKey(id))
	if err != nil {
		if err == storage.ErrNotFound {
			return queue.New(max), nil
		}
		return nil, err
	}
	var snap queueSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	entries := make([]queue.Entry, len(snap.Entries))
	for i, e := range snap.Entries {
		entries[i] = queue.Entry{Index: e.Index, Ayes: e.Ayes}
	}
	return queue.Restore(snap.Max, entries), nil
}

// PutQueue implements ReferendumStore.
func (s *KVStore) PutQueue(id track.Id, q *queue.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := q.Entries()
	snap := queueSnapshot{Max: q.Max(), Entries: make([]queueEntryDTO, len(entries))}
	for i, e := range entries {
		snap.Entries[i] = queueEntryDTO{Index: e.Index, Ayes: e.Ayes}
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.db.Put(trackQueueKey(id), raw)
}

// DecidingCount implements ReferendumStore.
func (s *KVStore) DecidingCount(id track.Id) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := s.db.Get(decidingCountKey(id))
	if err != nil {
		if err == storage.ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	if len(raw) != 4 {
		return 0, fmt.Errorf("store: corrupt deciding count")
	}
	return binary.BigEndian.Uint32(raw), nil
}

// SetDecidingCount implements ReferendumStore.
func (s *KVStore) SetDecidingCount(id track.Id, count uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Put(decidingCountKey(id), indexBytes(count))
}

// GetMetadata implements ReferendumStore.
func (s *KVStore) GetMetadata(index uint32) (types.Hash, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := s.db.Get(metadataKey(index))
	if err != nil {
		if err == storage.ErrNotFound {
			return types.Hash{}, false, nil
		}
		return types.Hash{}, false, err
	}
	if len(raw) != 32 {
		return types.Hash{}, false, fmt.Errorf("store: corrupt metadata hash")
	}
	var h types.Hash
	copy(h[:], raw)
	return h, true, nil
}

// SetMetadata implements ReferendumStore.
func (s *KVStore) SetMetadata(index uint32, hash types.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Put(metadataKey(index), hash[:])
}

// ClearMetadata implements ReferendumStore.
func (s *KVStore) ClearMetadata(index uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Delete(metadataKey(index))
}
