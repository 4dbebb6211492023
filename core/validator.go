package core

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/tesserachain/tessera/common"
)

var (
	// ErrValidatorNotFound for ID is not found in the stake table.
	ErrValidatorNotFound = errors.New("ValidatorNotFound")
)

// Validator contains the public information of a validator.
type Validator struct {
	address common.Address
	stake   uint64
	active  bool
}

// NewValidator creates a new validator instance.
func NewValidator(address common.Address, stake uint64, active bool) Validator {
	return Validator{address: address, stake: stake, active: active}
}

// Address returns the address of the validator.
func (v Validator) Address() common.Address {
	return v.address
}

// Stake returns the stake of the validator.
func (v Validator) Stake() uint64 {
	return v.stake
}

// Active returns whether the validator is active in the current epoch.
func (v Validator) Active() bool {
	return v.active
}

func (v Validator) String() string {
	return fmt.Sprintf("{address: %v, stake: %d, active: %v}", v.address, v.stake, v.active)
}

// ByAddress implements sort.Interface for []Validator based on address.
type ByAddress []Validator

func (b ByAddress) Len() int      { return len(b) }
func (b ByAddress) Swap(i, j int) { b[i], b[j] = b[j], b[i] }
func (b ByAddress) Less(i, j int) bool {
	return bytes.Compare(b[i].address.Bytes(), b[j].address.Bytes()) < 0
}

// StakeTable maps validator addresses to their stake for one epoch. A stake
// table is immutable once constructed; epoch transitions swap in a new table
// rather than mutating the old one.
type StakeTable struct {
	validators       map[common.Address]Validator
	sorted           []Validator
	totalActiveStake uint64
}

// NewStakeTable builds a stake table from the given validators. Validators
// with zero stake are rejected with a panic since the table is constructed
// from trusted epoch data.
func NewStakeTable(validators []Validator) *StakeTable {
	t := &StakeTable{
		validators: make(map[common.Address]Validator),
	}
	for _, v := range validators {
		if v.stake == 0 {
			panic(fmt.Sprintf("Validator %v has zero stake", v.address))
		}
		if _, ok := t.validators[v.address]; ok {
			panic(fmt.Sprintf("Duplicate validator %v", v.address))
		}
		t.validators[v.address] = v
		t.sorted = append(t.sorted, v)
		if v.active {
			t.totalActiveStake += v.stake
		}
	}
	sort.Sort(ByAddress(t.sorted))
	return t
}

// Size returns the number of validators in the table.
func (t *StakeTable) Size() int {
	return len(t.validators)
}

// GetValidator returns a validator if a matching address is found.
func (t *StakeTable) GetValidator(addr common.Address) (Validator, error) {
	v, ok := t.validators[addr]
	if !ok {
		return Validator{}, ErrValidatorNotFound
	}
	return v, nil
}

// Validators returns the validators sorted by address.
func (t *StakeTable) Validators() []Validator {
	return t.sorted
}

// TotalActiveStake returns the total stake of the active validators.
func (t *StakeTable) TotalActiveStake() uint64 {
	return t.totalActiveStake
}

// RequiredStake returns the stake threshold for committing a slot,
// ceil(totalActiveStake * 2 / 3).
func (t *StakeTable) RequiredStake() uint64 {
	return (t.totalActiveStake*2 + 2) / 3
}
