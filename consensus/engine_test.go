// +build unit

package consensus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tesserachain/tessera/common"
	"github.com/tesserachain/tessera/core"
	"github.com/tesserachain/tessera/store"
	"github.com/tesserachain/tessera/store/database/backend"
	"github.com/tesserachain/tessera/store/kvstore"
)

// testCommittee is a three-validator committee with stakes 40/35/25, which
// puts the commit threshold at ceil(100 * 2 / 3) = 67.
type testCommittee struct {
	a, b, c signer
	table   *core.StakeTable
	db      store.Store
}

func newTestCommittee(t *testing.T) *testCommittee {
	tc := &testCommittee{
		a:  newSigner(t),
		b:  newSigner(t),
		c:  newSigner(t),
		db: kvstore.NewKVStore(backend.NewMemDatabase()),
	}
	tc.table = core.NewStakeTable([]core.Validator{
		core.NewValidator(tc.a.addr, 40, true),
		core.NewValidator(tc.b.addr, 35, true),
		core.NewValidator(tc.c.addr, 25, true),
	})
	return tc
}

func (tc *testCommittee) engine() *ConsensusEngine {
	return NewConsensusEngine(tc.db, tc.table, NewEd25519Verifier())
}

func TestEngineCommitAndRevote(t *testing.T) {
	assert := assert.New(t)

	tc := newTestCommittee(t)
	e := tc.engine()
	hashX := common.HexToHash("01")
	hashY := common.HexToHash("02")

	assert.Equal(uint64(67), tc.table.RequiredStake())
	e.SetCurrentSlot(10)

	// A and B vote for X on slot 10: 75 stake crosses the threshold.
	assert.Nil(e.ProcessVote(tc.a.vote(10, hashX)))
	assert.Equal(core.CommitmentProcessed, e.CommitmentLevel(10))
	assert.Nil(e.ProcessVote(tc.b.vote(10, hashX)))
	assert.Equal(core.CommitmentConfirmed, e.CommitmentLevel(10))

	head, ok := e.CurrentHead()
	assert.True(ok)
	assert.Equal(uint64(10), head.Slot)
	assert.Equal(hashX, head.Hash)
	assert.Equal(uint64(75), head.Weight)

	select {
	case slot := <-e.CommittedSlotsChan():
		assert.Equal(uint64(10), slot)
	default:
		t.Fatal("expected slot 10 on the committed channel")
	}

	// B switches to Y: X drops to 40, but the commitment is never retracted.
	assert.Nil(e.ProcessVote(tc.b.vote(10, hashY)))
	assert.Equal(core.CommitmentConfirmed, e.CommitmentLevel(10))

	// The head stays at the earlier, heavier candidate.
	head, _ = e.CurrentHead()
	assert.Equal(hashX, head.Hash)
	assert.Equal(uint64(75), head.Weight)
}

func TestEngineNoDoubleCounting(t *testing.T) {
	assert := assert.New(t)

	tc := newTestCommittee(t)
	e := tc.engine()
	hash := common.HexToHash("aa")
	e.SetCurrentSlot(3)

	// The same vote replayed five times adds stake exactly once.
	vote := tc.a.vote(3, hash)
	for i := 0; i < 5; i++ {
		assert.Nil(e.ProcessVote(vote))
	}
	head, ok := e.CurrentHead()
	assert.True(ok)
	assert.Equal(uint64(40), head.Weight)
	assert.Equal(core.CommitmentProcessed, e.CommitmentLevel(3))
}

func TestEngineRejectedVoteMutatesNothing(t *testing.T) {
	assert := assert.New(t)

	tc := newTestCommittee(t)
	e := tc.engine()
	hash := common.HexToHash("bb")

	e.SetCurrentSlot(100)
	assert.Equal(ErrFutureSlot, e.ProcessVote(tc.a.vote(150, hash)))
	assert.Equal(ErrPastSlot, e.ProcessVote(tc.a.vote(10, hash)))

	stranger := newSigner(t)
	assert.Equal(ErrUnknownValidator, e.ProcessVote(stranger.vote(100, hash)))

	bad := tc.a.vote(100, hash)
	bad.Signature = tc.b.key.Sign(bad.SignBytes())
	assert.Equal(ErrInvalidSignature, e.ProcessVote(bad))

	_, ok := e.CurrentHead()
	assert.False(ok)
	assert.Equal(uint64(100), e.CurrentSlot())
}

func TestEngineCurrentSlotAdvances(t *testing.T) {
	assert := assert.New(t)

	tc := newTestCommittee(t)
	e := tc.engine()
	hash := common.HexToHash("cc")

	// An admitted vote for the immediate next slot advances the clock.
	assert.Nil(e.ProcessVote(tc.a.vote(1, hash)))
	assert.Equal(uint64(1), e.CurrentSlot())
	assert.Nil(e.ProcessVote(tc.b.vote(2, hash)))
	assert.Equal(uint64(2), e.CurrentSlot())

	// The clock never moves backwards.
	e.SetCurrentSlot(1)
	assert.Equal(uint64(2), e.CurrentSlot())
}

func TestEngineFinalization(t *testing.T) {
	assert := assert.New(t)

	tc := newTestCommittee(t)
	e := tc.engine()

	// Commit slot 1, then 32 later slots on top of it.
	for slot := uint64(1); slot <= 33; slot++ {
		hash := common.HexToHash("ff")
		assert.Nil(e.ProcessVote(tc.a.vote(slot, hash)))
		assert.Nil(e.ProcessVote(tc.b.vote(slot, hash)))
	}

	assert.Equal(core.CommitmentFinalized, e.CommitmentLevel(1))
	assert.Equal(core.CommitmentConfirmed, e.CommitmentLevel(2))
	assert.Equal(core.CommitmentConfirmed, e.CommitmentLevel(33))
	assert.Equal(core.CommitmentProcessed, e.CommitmentLevel(34))
}

func TestEngineRebase(t *testing.T) {
	assert := assert.New(t)

	tc := newTestCommittee(t)
	e := tc.engine()
	hash := common.HexToHash("dd")

	e.SetCurrentSlot(10)
	assert.Nil(e.ProcessVote(tc.a.vote(10, hash)))
	assert.Nil(e.ProcessVote(tc.b.vote(10, hash)))
	assert.Equal(core.CommitmentConfirmed, e.CommitmentLevel(10))

	// New epoch doubles everyone's stake, so the old 75 no longer commits.
	next := core.NewStakeTable([]core.Validator{
		core.NewValidator(tc.a.addr, 80, true),
		core.NewValidator(tc.b.addr, 70, true),
		core.NewValidator(tc.c.addr, 50, true),
	})
	e.Rebase(next, EpochBounds{Epoch: 1, FirstSlot: 432, LastSlot: 863})
	assert.Equal(uint64(1), e.Epoch())
	assert.Equal(uint64(134), next.RequiredStake())

	// Slots below the retention window of the new epoch are rejected.
	e.SetCurrentSlot(432)
	assert.Equal(ErrPastSlot, e.ProcessVote(tc.a.vote(399, hash)))

	// The earlier commitment survives the rebase.
	assert.Equal(core.CommitmentConfirmed, e.CommitmentLevel(10))

	// Votes in the new epoch are weighed with the new stakes.
	assert.Nil(e.ProcessVote(tc.a.vote(432, hash)))
	assert.Nil(e.ProcessVote(tc.b.vote(432, hash)))
	assert.Equal(core.CommitmentConfirmed, e.CommitmentLevel(432))
}

func TestEngineRestart(t *testing.T) {
	assert := assert.New(t)

	tc := newTestCommittee(t)
	hash := common.HexToHash("ee")

	e1 := tc.engine()
	e1.SetCurrentSlot(20)
	assert.Nil(e1.ProcessVote(tc.a.vote(20, hash)))
	assert.Nil(e1.ProcessVote(tc.b.vote(20, hash)))

	// A second engine over the same store resumes with the head, clock and
	// commitments intact.
	e2 := tc.engine()
	assert.Equal(uint64(20), e2.CurrentSlot())
	assert.Equal(core.CommitmentConfirmed, e2.CommitmentLevel(20))

	head, ok := e2.CurrentHead()
	assert.True(ok)
	assert.Equal(uint64(20), head.Slot)
	assert.Equal(hash, head.Hash)
	assert.Equal(uint64(75), head.Weight)
}

func TestEngineConcurrentVotes(t *testing.T) {
	assert := assert.New(t)

	tc := newTestCommittee(t)
	e := tc.engine()
	hash := common.HexToHash("0123")

	e.SetCurrentSlot(8)
	signers := []signer{tc.a, tc.b, tc.c}
	wg := &sync.WaitGroup{}
	for _, s := range signers {
		for slot := uint64(1); slot <= 8; slot++ {
			wg.Add(1)
			go func(s signer, slot uint64) {
				defer wg.Done()
				e.ProcessVote(s.vote(slot, hash))
			}(s, slot)
		}
	}
	wg.Wait()

	// Every slot saw the full committee, so all of them committed.
	for slot := uint64(1); slot <= 8; slot++ {
		assert.Equal(core.CommitmentConfirmed, e.CommitmentLevel(slot))
	}
	head, ok := e.CurrentHead()
	assert.True(ok)
	assert.Equal(uint64(8), head.Slot)
	assert.Equal(uint64(100), head.Weight)
}
