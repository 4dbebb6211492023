package consensus

import (
	"crypto/sha256"
	"errors"

	lru "github.com/hashicorp/golang-lru"

	"github.com/tesserachain/tessera/common"
	"github.com/tesserachain/tessera/core"
	"github.com/tesserachain/tessera/crypto"
)

var (
	// ErrFutureSlot is returned when a vote anticipates more than the immediate next slot.
	ErrFutureSlot = errors.New("FutureSlot")
	// ErrPastSlot is returned when a vote references a slot below the lookback window.
	ErrPastSlot = errors.New("PastSlot")
	// ErrInvalidSignature is returned when the signature capability rejects the vote.
	ErrInvalidSignature = errors.New("InvalidSignature")
	// ErrUnknownValidator is returned when the voter is absent from the stake table or inactive.
	ErrUnknownValidator = errors.New("UnknownOrInactiveValidator")
)

// SignatureVerifier is the cryptographic capability consumed by vote
// admission. Implementations must be safe for concurrent use.
type SignatureVerifier interface {
	VerifyVote(vote *core.Vote) bool
}

// AdmitVote validates an incoming vote against the slot window, the signature
// capability and the stake table, in that order, short-circuiting on the
// first failure. It has no side effects, so it can be exercised independently
// of any aggregation state.
func AdmitVote(vote *core.Vote, currentSlot uint64, lookback uint64, table *core.StakeTable, verifier SignatureVerifier) (core.AdmittedVote, error) {
	if vote.Slot > currentSlot+1 {
		return core.AdmittedVote{}, ErrFutureSlot
	}
	if currentSlot > lookback && vote.Slot < currentSlot-lookback {
		return core.AdmittedVote{}, ErrPastSlot
	}
	if !verifier.VerifyVote(vote) {
		return core.AdmittedVote{}, ErrInvalidSignature
	}
	validator, err := table.GetValidator(vote.Validator)
	if err != nil || !validator.Active() {
		return core.AdmittedVote{}, ErrUnknownValidator
	}
	return core.AdmittedVote{Vote: vote, Stake: validator.Stake()}, nil
}

//
// ------- Signature verifiers ------- //
//

var _ SignatureVerifier = (*Ed25519Verifier)(nil)

// Ed25519Verifier verifies vote signatures treating the validator address as
// a raw ed25519 public key.
type Ed25519Verifier struct{}

// NewEd25519Verifier creates an Ed25519Verifier.
func NewEd25519Verifier() *Ed25519Verifier {
	return &Ed25519Verifier{}
}

// VerifyVote implements the SignatureVerifier interface.
func (v *Ed25519Verifier) VerifyVote(vote *core.Vote) bool {
	return crypto.VerifyBytes(vote.Validator, vote.SignBytes(), vote.Signature)
}

var _ SignatureVerifier = (*CachingVerifier)(nil)

// CachingVerifier memoizes the results of an inner verifier, keyed by vote
// digest. Re-broadcast votes are common, so skipping repeated signature
// checks keeps them off the hot path.
type CachingVerifier struct {
	inner SignatureVerifier
	cache *lru.Cache
}

// NewCachingVerifier wraps the inner verifier with an LRU result cache of the
// given size.
func NewCachingVerifier(inner SignatureVerifier, size int) *CachingVerifier {
	cache, err := lru.New(size)
	if err != nil {
		panic(err)
	}
	return &CachingVerifier{inner: inner, cache: cache}
}

// VerifyVote implements the SignatureVerifier interface.
func (v *CachingVerifier) VerifyVote(vote *core.Vote) bool {
	digest := voteDigest(vote)
	if cached, ok := v.cache.Get(digest); ok {
		return cached.(bool)
	}
	ret := v.inner.VerifyVote(vote)
	v.cache.Add(digest, ret)
	return ret
}

func voteDigest(vote *core.Vote) common.Hash {
	h := sha256.New()
	h.Write(vote.SignBytes())
	h.Write(vote.Signature)
	return common.BytesToHash(h.Sum(nil))
}
