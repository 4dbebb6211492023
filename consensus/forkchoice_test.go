// +build unit

package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tesserachain/tessera/common"
)

func TestForkChoiceOrdering(t *testing.T) {
	assert := assert.New(t)

	fc := NewForkChoice()
	_, ok := fc.Head()
	assert.False(ok)

	hashA := common.HexToHash("aa")
	hashB := common.HexToHash("bb")

	assert.True(fc.Update(5, hashA, 40))
	head, ok := fc.Head()
	assert.True(ok)
	assert.Equal(uint64(5), head.Slot)

	// Higher slot wins regardless of weight.
	assert.True(fc.Update(6, hashB, 10))
	head, _ = fc.Head()
	assert.Equal(uint64(6), head.Slot)
	assert.Equal(hashB, head.Hash)

	// Lower slot never wins.
	assert.False(fc.Update(5, hashA, 1000))
	head, _ = fc.Head()
	assert.Equal(uint64(6), head.Slot)

	// Same slot, higher weight wins.
	assert.True(fc.Update(6, hashA, 50))
	head, _ = fc.Head()
	assert.Equal(hashA, head.Hash)
	assert.Equal(uint64(50), head.Weight)

	// Same slot, same weight: numerically smaller hash wins.
	smaller := common.HexToHash("a0")
	assert.True(fc.Update(6, smaller, 50))
	head, _ = fc.Head()
	assert.Equal(smaller, head.Hash)

	// The exact current head is not an improvement.
	assert.False(fc.Update(6, smaller, 50))
}

func TestForkChoiceArrivalOrderIndependence(t *testing.T) {
	assert := assert.New(t)

	candidates := []Head{
		{Slot: 3, Hash: common.HexToHash("03"), Weight: 90},
		{Slot: 7, Hash: common.HexToHash("07"), Weight: 20},
		{Slot: 7, Hash: common.HexToHash("77"), Weight: 60},
		{Slot: 5, Hash: common.HexToHash("05"), Weight: 100},
	}
	orders := [][]int{
		{0, 1, 2, 3},
		{3, 2, 1, 0},
		{2, 0, 3, 1},
		{1, 3, 0, 2},
	}

	for _, order := range orders {
		fc := NewForkChoice()
		for _, i := range order {
			c := candidates[i]
			fc.Update(c.Slot, c.Hash, c.Weight)
		}
		head, ok := fc.Head()
		assert.True(ok)
		assert.Equal(uint64(7), head.Slot)
		assert.Equal(common.HexToHash("77"), head.Hash)
		assert.Equal(uint64(60), head.Weight)
	}
}

func TestForkChoiceReset(t *testing.T) {
	assert := assert.New(t)

	fc := NewForkChoice()
	restored := Head{Slot: 42, Hash: common.HexToHash("42"), Weight: 70}
	fc.Reset(restored, true)

	head, ok := fc.Head()
	assert.True(ok)
	assert.Equal(restored, head)

	// Candidates below the restored head stay rejected.
	assert.False(fc.Update(41, common.HexToHash("41"), 500))
}
