package consensus

import (
	"fmt"
	"sync"

	"github.com/tesserachain/tessera/common"
)

// Head is the engine's current notion of the canonical chain tip.
type Head struct {
	Slot   uint64
	Hash   common.Hash
	Weight uint64
}

func (h Head) String() string {
	return fmt.Sprintf("Head{slot: %d, hash: %v, weight: %d}", h.Slot, h.Hash, h.Weight)
}

// ForkChoice tracks the best (slot, hash, weight) candidate across all live
// slots. A candidate replaces the head iff it wins under the total order
// (higher slot, then higher weight, then numerically smaller hash), which
// makes the head deterministic across replicas regardless of vote arrival
// order and monotone in (slot, weight). Safe for concurrent use; the update
// is a short exclusive section shared by every slot worker.
type ForkChoice struct {
	mu      sync.Mutex
	head    Head
	hasHead bool
}

// NewForkChoice creates an empty fork choice state.
func NewForkChoice() *ForkChoice {
	return &ForkChoice{}
}

// Update offers a candidate and reports whether the head changed. Candidates
// for slots below the current head are never considered.
func (f *ForkChoice) Update(slot uint64, hash common.Hash, weight uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.hasHead {
		f.head = Head{Slot: slot, Hash: hash, Weight: weight}
		f.hasHead = true
		return true
	}

	better := slot > f.head.Slot ||
		(slot == f.head.Slot && weight > f.head.Weight) ||
		(slot == f.head.Slot && weight == f.head.Weight && hash.Cmp(f.head.Hash) < 0)
	if !better {
		return false
	}

	f.head = Head{Slot: slot, Hash: hash, Weight: weight}
	return true
}

// Head returns the current head, and false if no candidate has been offered
// yet.
func (f *ForkChoice) Head() (Head, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.head, f.hasHead
}

// Reset restores a previously persisted head. Used on restart before any
// votes are processed.
func (f *ForkChoice) Reset(head Head, hasHead bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.head = head
	f.hasHead = hasHead
}
