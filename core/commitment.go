package core

import (
	"sort"
)

// CommitmentLevel classifies how final a slot is. It is always derived from
// the committed slot set, never stored on its own.
type CommitmentLevel byte

const (
	// CommitmentProcessed means the slot has not reached the commit threshold.
	CommitmentProcessed CommitmentLevel = iota
	// CommitmentConfirmed means the slot reached the commit threshold.
	CommitmentConfirmed
	// CommitmentFinalized means enough later slots also committed on top of it.
	CommitmentFinalized
)

func (l CommitmentLevel) String() string {
	switch l {
	case CommitmentProcessed:
		return "processed"
	case CommitmentConfirmed:
		return "confirmed"
	case CommitmentFinalized:
		return "finalized"
	}
	return "unknown"
}

// CommittedSlots is the append-only set of slots that reached the commit
// threshold. Once a slot enters the set it is never removed, even if stake
// later shifts below the threshold. Not safe for concurrent use; the engine
// serializes access.
type CommittedSlots struct {
	slots  []uint64 // ascending
	lookup map[uint64]bool
}

// NewCommittedSlots creates an empty committed slot set.
func NewCommittedSlots() *CommittedSlots {
	return &CommittedSlots{
		lookup: make(map[uint64]bool),
	}
}

// Add inserts a slot into the set. Returns false if the slot was already
// present.
func (c *CommittedSlots) Add(slot uint64) bool {
	if c.lookup[slot] {
		return false
	}
	c.lookup[slot] = true
	i := sort.Search(len(c.slots), func(i int) bool { return c.slots[i] >= slot })
	c.slots = append(c.slots, 0)
	copy(c.slots[i+1:], c.slots[i:])
	c.slots[i] = slot
	return true
}

// Contains returns whether the slot is in the set.
func (c *CommittedSlots) Contains(slot uint64) bool {
	return c.lookup[slot]
}

// CountAfter returns the number of committed slots strictly greater than the
// given slot.
func (c *CommittedSlots) CountAfter(slot uint64) int {
	i := sort.Search(len(c.slots), func(i int) bool { return c.slots[i] > slot })
	return len(c.slots) - i
}

// Level derives the commitment level of a slot given the finality depth.
func (c *CommittedSlots) Level(slot uint64, finalityDepth int) CommitmentLevel {
	if !c.Contains(slot) {
		return CommitmentProcessed
	}
	if c.CountAfter(slot) >= finalityDepth {
		return CommitmentFinalized
	}
	return CommitmentConfirmed
}

// Slots returns a copy of the committed slots in ascending order.
func (c *CommittedSlots) Slots() []uint64 {
	ret := make([]uint64, len(c.slots))
	copy(ret, c.slots)
	return ret
}

// Size returns the number of committed slots.
func (c *CommittedSlots) Size() int {
	return len(c.slots)
}
