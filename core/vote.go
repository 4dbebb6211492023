package core

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/tesserachain/tessera/common"
)

// Vote represents a vote on a block by a validator. A vote is immutable once
// constructed and carries no authority until it passes admission.
type Vote struct {
	Validator common.Address
	Slot      uint64
	BlockHash common.Hash
	Signature common.Bytes
}

func (v Vote) String() string {
	return fmt.Sprintf("Vote{validator: %v, slot: %d, block: %v}", v.Validator, v.Slot, v.BlockHash)
}

// voteSignData is the portion of a vote covered by its signature.
type voteSignData struct {
	Validator common.Address
	Slot      uint64
	BlockHash common.Hash
}

// SignBytes returns the canonical byte representation of the vote used for
// signing and signature verification.
func (v Vote) SignBytes() common.Bytes {
	ret, err := rlp.EncodeToBytes(voteSignData{
		Validator: v.Validator,
		Slot:      v.Slot,
		BlockHash: v.BlockHash,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to encode vote sign bytes: %v", err))
	}
	return ret
}

// AdmittedVote is a vote that passed admission, annotated with the stake of
// its validator in the stake table it was admitted against.
type AdmittedVote struct {
	Vote  *Vote
	Stake uint64
}
