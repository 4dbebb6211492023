package consensus

import (
	"github.com/tesserachain/tessera/core"
)

// LeaderSchedule is the read-only mapping from slot to leader identity. It is
// consumed for diagnostics and propagation priority only; the tally does not
// depend on it.
type LeaderSchedule interface {
	LeaderForSlot(slot uint64) core.Validator
}

var _ LeaderSchedule = (*FixedLeaderSchedule)(nil)

// FixedLeaderSchedule designates a single leader for every slot. Useful for
// tests and single-proposer deployments.
type FixedLeaderSchedule struct {
	table *core.StakeTable
}

// NewFixedLeaderSchedule creates a FixedLeaderSchedule over the given table.
func NewFixedLeaderSchedule(table *core.StakeTable) *FixedLeaderSchedule {
	return &FixedLeaderSchedule{table: table}
}

// LeaderForSlot implements the LeaderSchedule interface.
func (s *FixedLeaderSchedule) LeaderForSlot(_ uint64) core.Validator {
	validators := s.table.Validators()
	if len(validators) == 0 {
		panic("No validators have been added")
	}
	return validators[0]
}

var _ LeaderSchedule = (*RotatingLeaderSchedule)(nil)

// RotatingLeaderSchedule rotates the leader role round-robin over the
// address-sorted validators, so every replica derives the same leader for a
// slot without coordination.
type RotatingLeaderSchedule struct {
	table *core.StakeTable
}

// NewRotatingLeaderSchedule creates a RotatingLeaderSchedule over the given table.
func NewRotatingLeaderSchedule(table *core.StakeTable) *RotatingLeaderSchedule {
	return &RotatingLeaderSchedule{table: table}
}

// LeaderForSlot implements the LeaderSchedule interface.
func (s *RotatingLeaderSchedule) LeaderForSlot(slot uint64) core.Validator {
	validators := s.table.Validators()
	if len(validators) == 0 {
		panic("No validators have been added")
	}
	return validators[slot%uint64(len(validators))]
}
