// +build unit

package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tesserachain/tessera/common"
)

func TestStakeTableLookup(t *testing.T) {
	assert := assert.New(t)

	a := common.BytesToAddress([]byte{0xa})
	b := common.BytesToAddress([]byte{0xb})
	table := NewStakeTable([]Validator{
		NewValidator(a, 40, true),
		NewValidator(b, 35, false),
	})

	v, err := table.GetValidator(a)
	assert.Nil(err)
	assert.Equal(uint64(40), v.Stake())
	assert.True(v.Active())

	v, err = table.GetValidator(b)
	assert.Nil(err)
	assert.False(v.Active())

	_, err = table.GetValidator(common.BytesToAddress([]byte{0xc}))
	assert.Equal(ErrValidatorNotFound, err)
}

func TestStakeTableTotalActiveStake(t *testing.T) {
	assert := assert.New(t)

	table := NewStakeTable([]Validator{
		NewValidator(common.BytesToAddress([]byte{0xa}), 40, true),
		NewValidator(common.BytesToAddress([]byte{0xb}), 35, true),
		NewValidator(common.BytesToAddress([]byte{0xc}), 25, false),
	})
	// Inactive validators do not count towards the active stake.
	assert.Equal(uint64(75), table.TotalActiveStake())
}

func TestStakeTableRequiredStake(t *testing.T) {
	assert := assert.New(t)

	table := NewStakeTable([]Validator{
		NewValidator(common.BytesToAddress([]byte{0xa}), 40, true),
		NewValidator(common.BytesToAddress([]byte{0xb}), 35, true),
		NewValidator(common.BytesToAddress([]byte{0xc}), 25, true),
	})
	// ceil(100 * 2 / 3) = 67
	assert.Equal(uint64(67), table.RequiredStake())

	table = NewStakeTable([]Validator{
		NewValidator(common.BytesToAddress([]byte{0xa}), 1, true),
		NewValidator(common.BytesToAddress([]byte{0xb}), 1, true),
		NewValidator(common.BytesToAddress([]byte{0xc}), 1, true),
	})
	// ceil(3 * 2 / 3) = 2
	assert.Equal(uint64(2), table.RequiredStake())
}

func TestStakeTableRejectsZeroStake(t *testing.T) {
	assert := assert.New(t)

	assert.Panics(func() {
		NewStakeTable([]Validator{
			NewValidator(common.BytesToAddress([]byte{0xa}), 0, true),
		})
	})
}

func TestStakeTableValidatorsSorted(t *testing.T) {
	assert := assert.New(t)

	table := NewStakeTable([]Validator{
		NewValidator(common.BytesToAddress([]byte{0xc}), 10, true),
		NewValidator(common.BytesToAddress([]byte{0xa}), 10, true),
		NewValidator(common.BytesToAddress([]byte{0xb}), 10, true),
	})
	validators := table.Validators()
	assert.Equal(3, len(validators))
	assert.Equal(common.BytesToAddress([]byte{0xa}), validators[0].Address())
	assert.Equal(common.BytesToAddress([]byte{0xb}), validators[1].Address())
	assert.Equal(common.BytesToAddress([]byte{0xc}), validators[2].Address())
}
