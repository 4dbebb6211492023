// +build unit

package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tesserachain/tessera/common"
	"github.com/tesserachain/tessera/core"
	"github.com/tesserachain/tessera/store/database/backend"
	"github.com/tesserachain/tessera/store/kvstore"
)

func TestConsensusStateBasic(t *testing.T) {
	assert := assert.New(t)

	db := kvstore.NewKVStore(backend.NewMemDatabase())

	state1 := NewState(db)
	state1.SetCurrentSlot(120)
	state1.SetEpoch(3)
	state1.SetHead(Head{Slot: 118, Hash: common.HexToHash("a1"), Weight: 75})
	state1.CommitSlot(100)
	state1.CommitSlot(118)

	state2 := NewState(db)
	assert.Equal(uint64(120), state2.CurrentSlot())
	assert.Equal(uint64(3), state2.Epoch())

	head, ok := state2.Head()
	assert.True(ok)
	assert.Equal(uint64(118), head.Slot)
	assert.Equal(common.HexToHash("a1"), head.Hash)
	assert.Equal(uint64(75), head.Weight)

	committed := state2.CommittedSlots()
	assert.True(committed.Contains(100))
	assert.True(committed.Contains(118))
	assert.False(committed.Contains(110))
	assert.Equal([]uint64{100, 118}, committed.Slots())
}

func TestConsensusStateFresh(t *testing.T) {
	assert := assert.New(t)

	db := kvstore.NewKVStore(backend.NewMemDatabase())
	state := NewState(db)

	assert.Equal(uint64(0), state.CurrentSlot())
	assert.Equal(uint64(0), state.Epoch())
	_, ok := state.Head()
	assert.False(ok)
	assert.Equal(0, state.CommittedSlots().Size())
}

func TestConsensusStateCommitIdempotent(t *testing.T) {
	assert := assert.New(t)

	db := kvstore.NewKVStore(backend.NewMemDatabase())
	state := NewState(db)

	added, err := state.CommitSlot(7)
	assert.Nil(err)
	assert.True(added)

	added, err = state.CommitSlot(7)
	assert.Nil(err)
	assert.False(added)

	assert.Equal(core.CommitmentProcessed, state.CommittedSlots().Level(8, 32))
}
