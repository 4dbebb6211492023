package core

import (
	"fmt"

	"github.com/tesserachain/tessera/common"
)

// TallyDelta reports the aggregates affected by applying one vote, so callers
// can react without rescanning the tally.
type TallyDelta struct {
	Slot      uint64
	Hash      common.Hash // hash the vote now backs
	Aggregate uint64      // new aggregate stake behind Hash

	// Set when the validator switched away from a previously backed hash.
	Switched      bool
	PrevHash      common.Hash
	PrevAggregate uint64
}

// recordedVote remembers the hash a validator backs and the stake it was
// admitted with, so a later switch subtracts exactly what was added even if
// the validator's stake changes across epochs.
type recordedVote struct {
	hash  common.Hash
	stake uint64
}

// SlotTally accumulates admitted votes for a single slot. Each validator
// contributes its stake to at most one candidate hash at any instant: a later
// vote for a different hash moves the stake, a re-vote for the same hash is a
// no-op. SlotTally is not safe for concurrent use; the engine serializes
// access per slot.
type SlotTally struct {
	slot       uint64
	votes      map[common.Address]recordedVote
	aggregates map[common.Hash]uint64
}

// NewSlotTally creates an empty tally for the given slot.
func NewSlotTally(slot uint64) *SlotTally {
	return &SlotTally{
		slot:       slot,
		votes:      make(map[common.Address]recordedVote),
		aggregates: make(map[common.Hash]uint64),
	}
}

// Slot returns the slot this tally accumulates votes for.
func (t *SlotTally) Slot() uint64 {
	return t.slot
}

// Apply folds an admitted vote into the tally and reports the affected
// aggregates.
func (t *SlotTally) Apply(av AdmittedVote) TallyDelta {
	if av.Vote.Slot != t.slot {
		panic(fmt.Sprintf("Vote for slot %d applied to tally of slot %d", av.Vote.Slot, t.slot))
	}

	voter := av.Vote.Validator
	hash := av.Vote.BlockHash
	delta := TallyDelta{Slot: t.slot, Hash: hash}

	prev, ok := t.votes[voter]
	if ok {
		if prev.hash == hash {
			// Idempotent re-vote.
			delta.Aggregate = t.aggregates[hash]
			return delta
		}
		prevAgg := t.aggregates[prev.hash]
		if prevAgg < prev.stake {
			panic(fmt.Sprintf("Aggregate underflow for hash %v: %d < %d", prev.hash, prevAgg, prev.stake))
		}
		prevAgg -= prev.stake
		if prevAgg == 0 {
			delete(t.aggregates, prev.hash)
		} else {
			t.aggregates[prev.hash] = prevAgg
		}
		delta.Switched = true
		delta.PrevHash = prev.hash
		delta.PrevAggregate = prevAgg
	}

	t.votes[voter] = recordedVote{hash: hash, stake: av.Stake}
	t.aggregates[hash] += av.Stake
	delta.Aggregate = t.aggregates[hash]
	return delta
}

// LeadingHash returns the hash with the greatest aggregate stake, breaking
// ties with the numerically smaller hash so the result is independent of
// vote arrival order. Returns false if the tally is empty.
func (t *SlotTally) LeadingHash() (common.Hash, uint64, bool) {
	var best common.Hash
	bestStake := uint64(0)
	found := false
	for hash, stake := range t.aggregates {
		if !found || stake > bestStake || (stake == bestStake && hash.Cmp(best) < 0) {
			best = hash
			bestStake = stake
			found = true
		}
	}
	return best, bestStake, found
}

// VotedStake returns the total stake of the distinct validators with a
// recorded vote for this slot.
func (t *SlotTally) VotedStake() uint64 {
	total := uint64(0)
	for _, rec := range t.votes {
		total += rec.stake
	}
	return total
}

// AggregateStake returns the stake currently backing the given hash.
func (t *SlotTally) AggregateStake(hash common.Hash) uint64 {
	return t.aggregates[hash]
}

// Size returns the number of validators with a recorded vote.
func (t *SlotTally) Size() int {
	return len(t.votes)
}
