package consensus

import (
	"github.com/pkg/errors"

	"github.com/tesserachain/tessera/common"
	"github.com/tesserachain/tessera/core"
	"github.com/tesserachain/tessera/store"
)

const (
	// DBStateStubKey is the key under which the engine's scalar state is stored.
	DBStateStubKey = "cs/ss"
	// DBCommittedSlotsKey is the key under which the committed slot set is stored.
	DBCommittedSlotsKey = "cs/cmt"
)

// StateStub is the persisted scalar portion of the consensus state.
type StateStub struct {
	CurrentSlot uint64
	Epoch       uint64
	HasHead     bool
	BestSlot    uint64
	BestHash    common.Hash
	BestWeight  uint64
}

// State is the durable portion of the consensus engine: the current slot, the
// epoch, the fork-choice head and the committed slot set. Every mutation is
// written through to the backing store so a restart resumes where the engine
// left off. Not safe for concurrent use; the engine serializes access.
type State struct {
	db store.Store

	stub      StateStub
	committed *core.CommittedSlots
}

// NewState creates a State bound to db, loading any previously persisted
// snapshot.
func NewState(db store.Store) *State {
	s := &State{
		db:        db,
		committed: core.NewCommittedSlots(),
	}
	if err := s.load(); err != nil {
		panic(err)
	}
	return s
}

func (s *State) load() error {
	stub := StateStub{}
	if err := s.db.Get(common.Bytes(DBStateStubKey), &stub); err == nil {
		s.stub = stub
	}

	slots := []uint64{}
	if err := s.db.Get(common.Bytes(DBCommittedSlotsKey), &slots); err == nil {
		for _, slot := range slots {
			s.committed.Add(slot)
		}
	}
	return nil
}

func (s *State) commitStub() error {
	if err := s.db.Put(common.Bytes(DBStateStubKey), s.stub); err != nil {
		return errors.Wrap(err, "failed to persist consensus state")
	}
	return nil
}

// CurrentSlot returns the engine's current slot.
func (s *State) CurrentSlot() uint64 {
	return s.stub.CurrentSlot
}

// SetCurrentSlot updates and persists the current slot.
func (s *State) SetCurrentSlot(slot uint64) error {
	s.stub.CurrentSlot = slot
	return s.commitStub()
}

// Epoch returns the current epoch.
func (s *State) Epoch() uint64 {
	return s.stub.Epoch
}

// SetEpoch updates and persists the current epoch.
func (s *State) SetEpoch(epoch uint64) error {
	s.stub.Epoch = epoch
	return s.commitStub()
}

// Head returns the persisted fork-choice head, and false if none was ever set.
func (s *State) Head() (Head, bool) {
	return Head{
		Slot:   s.stub.BestSlot,
		Hash:   s.stub.BestHash,
		Weight: s.stub.BestWeight,
	}, s.stub.HasHead
}

// SetHead updates and persists the fork-choice head.
func (s *State) SetHead(head Head) error {
	s.stub.HasHead = true
	s.stub.BestSlot = head.Slot
	s.stub.BestHash = head.Hash
	s.stub.BestWeight = head.Weight
	return s.commitStub()
}

// CommittedSlots returns the committed slot set. The caller must not retain
// the reference across engine restarts.
func (s *State) CommittedSlots() *core.CommittedSlots {
	return s.committed
}

// CommitSlot adds a slot to the committed set and persists the set. Returns
// whether the slot was newly added.
func (s *State) CommitSlot(slot uint64) (bool, error) {
	if !s.committed.Add(slot) {
		return false, nil
	}
	return true, s.db.Put(common.Bytes(DBCommittedSlotsKey), s.committed.Slots())
}
