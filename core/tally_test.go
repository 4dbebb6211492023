// +build unit

package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tesserachain/tessera/common"
)

func makeAdmittedVote(voter byte, slot uint64, hash byte, stake uint64) AdmittedVote {
	return AdmittedVote{
		Vote: &Vote{
			Validator: common.BytesToAddress([]byte{voter}),
			Slot:      slot,
			BlockHash: common.BytesToHash([]byte{hash}),
		},
		Stake: stake,
	}
}

func TestTallyAccumulates(t *testing.T) {
	assert := assert.New(t)

	tally := NewSlotTally(10)
	delta := tally.Apply(makeAdmittedVote(0xa, 10, 0x1, 40))
	assert.Equal(uint64(40), delta.Aggregate)
	assert.False(delta.Switched)

	delta = tally.Apply(makeAdmittedVote(0xb, 10, 0x1, 35))
	assert.Equal(uint64(75), delta.Aggregate)

	hash, stake, ok := tally.LeadingHash()
	assert.True(ok)
	assert.Equal(common.BytesToHash([]byte{0x1}), hash)
	assert.Equal(uint64(75), stake)
}

func TestTallyIdempotentRevote(t *testing.T) {
	assert := assert.New(t)

	tally := NewSlotTally(10)
	tally.Apply(makeAdmittedVote(0xa, 10, 0x1, 40))
	delta := tally.Apply(makeAdmittedVote(0xa, 10, 0x1, 40))
	assert.Equal(uint64(40), delta.Aggregate)
	assert.False(delta.Switched)
	assert.Equal(uint64(40), tally.VotedStake())
	assert.Equal(1, tally.Size())
}

func TestTallySwitchMovesStake(t *testing.T) {
	assert := assert.New(t)

	tally := NewSlotTally(10)
	tally.Apply(makeAdmittedVote(0xa, 10, 0x1, 40))
	tally.Apply(makeAdmittedVote(0xb, 10, 0x1, 35))

	delta := tally.Apply(makeAdmittedVote(0xa, 10, 0x2, 40))
	assert.True(delta.Switched)
	assert.Equal(common.BytesToHash([]byte{0x1}), delta.PrevHash)
	assert.Equal(uint64(35), delta.PrevAggregate)
	assert.Equal(uint64(40), delta.Aggregate)

	assert.Equal(uint64(35), tally.AggregateStake(common.BytesToHash([]byte{0x1})))
	assert.Equal(uint64(40), tally.AggregateStake(common.BytesToHash([]byte{0x2})))
}

func TestTallyNoDoubleCounting(t *testing.T) {
	assert := assert.New(t)

	tally := NewSlotTally(7)
	tally.Apply(makeAdmittedVote(0xa, 7, 0x1, 40))
	tally.Apply(makeAdmittedVote(0xa, 7, 0x2, 40))
	tally.Apply(makeAdmittedVote(0xa, 7, 0x1, 40))
	tally.Apply(makeAdmittedVote(0xb, 7, 0x2, 25))

	// Sum of per-hash aggregates equals sum of stake of distinct voters.
	total := tally.AggregateStake(common.BytesToHash([]byte{0x1})) +
		tally.AggregateStake(common.BytesToHash([]byte{0x2}))
	assert.Equal(tally.VotedStake(), total)
	assert.Equal(uint64(65), total)
}

func TestTallyLeadingHashTieBreak(t *testing.T) {
	assert := assert.New(t)

	tally := NewSlotTally(3)
	tally.Apply(makeAdmittedVote(0xa, 3, 0x2, 50))
	tally.Apply(makeAdmittedVote(0xb, 3, 0x1, 50))

	hash, stake, ok := tally.LeadingHash()
	assert.True(ok)
	assert.Equal(uint64(50), stake)
	// The numerically smaller hash wins the tie.
	assert.Equal(common.BytesToHash([]byte{0x1}), hash)
}

func TestTallyEmptyLeadingHash(t *testing.T) {
	assert := assert.New(t)

	tally := NewSlotTally(1)
	_, _, ok := tally.LeadingHash()
	assert.False(ok)
}

func TestTallyWrongSlotPanics(t *testing.T) {
	assert := assert.New(t)

	tally := NewSlotTally(5)
	assert.Panics(func() {
		tally.Apply(makeAdmittedVote(0xa, 6, 0x1, 10))
	})
}
