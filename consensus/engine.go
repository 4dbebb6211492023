package consensus

import (
	"context"
	"sync"
	"sync/atomic"

	gometrics "github.com/rcrowley/go-metrics"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/tesserachain/tessera/common"
	"github.com/tesserachain/tessera/common/util"
	"github.com/tesserachain/tessera/core"
	"github.com/tesserachain/tessera/metrics"
	"github.com/tesserachain/tessera/store"
)

var logger *log.Entry = util.GetLoggerForModule("consensus")

// EpochBounds describes the slot range covered by one stake snapshot.
type EpochBounds struct {
	Epoch     uint64
	FirstSlot uint64
	LastSlot  uint64
}

// stakeSnapshot pairs a stake table with the epoch it belongs to. The engine
// holds the active snapshot behind an atomic pointer; a rebase swaps the
// pointer and in-flight votes finish against the old table.
type stakeSnapshot struct {
	table *core.StakeTable
	epoch uint64
}

// slotShard is the per-slot critical section: the tally plus the mutex that
// serializes votes touching this slot. Votes for different slots proceed in
// parallel on their own shards.
type slotShard struct {
	mu    sync.Mutex
	tally *core.SlotTally
}

// ConsensusEngine converts asynchronously arriving votes into a monotone
// canonical head and per-slot commitment levels. Votes are admitted against
// the active stake snapshot, folded into the slot's tally, fed to fork
// choice, and checked against the ceil(2/3) commit threshold. All exported
// methods are safe for concurrent use.
type ConsensusEngine struct {
	state      *State
	forkChoice *ForkChoice
	verifier   SignatureVerifier
	leaders    LeaderSchedule // optional, diagnostics only

	stake atomic.Value // *stakeSnapshot

	shardsMu   sync.RWMutex
	shards     map[uint64]*slotShard
	pruneFloor uint64 // slots below this have been pruned; guarded by shardsMu

	stateMu sync.Mutex // guards all access to the persisted state

	lookback      uint64
	finalityDepth int

	committedSlots chan uint64

	voteMeter   gometrics.Meter
	rejectMeter gometrics.Meter

	// Life cycle
	incoming chan *core.Vote
	wg       *sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	stopped  bool
}

// NewConsensusEngine creates an engine over the given store, initial stake
// table and signature capability. Previously persisted state (head, current
// slot, committed slots) is restored from the store.
func NewConsensusEngine(db store.Store, table *core.StakeTable, verifier SignatureVerifier) *ConsensusEngine {
	e := &ConsensusEngine{
		state:      NewState(db),
		forkChoice: NewForkChoice(),
		verifier:   verifier,

		shards: make(map[uint64]*slotShard),

		lookback:      uint64(viper.GetInt(common.CfgConsensusLookbackSlots)),
		finalityDepth: viper.GetInt(common.CfgConsensusFinalityDepth),

		committedSlots: make(chan uint64, viper.GetInt(common.CfgConsensusMessageQueueSize)),

		voteMeter:   gometrics.GetOrRegisterMeter(metrics.MConsensusVotes, nil),
		rejectMeter: gometrics.GetOrRegisterMeter(metrics.MConsensusRejected, nil),

		incoming: make(chan *core.Vote, viper.GetInt(common.CfgConsensusMessageQueueSize)),
		wg:       &sync.WaitGroup{},
	}
	e.stake.Store(&stakeSnapshot{table: table, epoch: e.state.Epoch()})
	e.forkChoice.Reset(e.state.Head())
	return e
}

// SetLeaderSchedule attaches a leader schedule used for diagnostics.
func (e *ConsensusEngine) SetLeaderSchedule(s LeaderSchedule) {
	e.leaders = s
}

// Start launches the main loop draining asynchronously submitted votes.
func (e *ConsensusEngine) Start(ctx context.Context) {
	c, cancel := context.WithCancel(ctx)
	e.ctx = c
	e.cancel = cancel

	e.wg.Add(1)
	go e.mainLoop()
}

// Stop notifies the engine's goroutines to stop without blocking.
func (e *ConsensusEngine) Stop() {
	e.cancel()
}

// Wait blocks until all the engine's goroutines have finished.
func (e *ConsensusEngine) Wait() {
	e.wg.Wait()
}

func (e *ConsensusEngine) mainLoop() {
	defer e.wg.Done()

	for {
		select {
		case <-e.ctx.Done():
			e.stopped = true
			return
		case vote := <-e.incoming:
			if err := e.ProcessVote(vote); err != nil {
				logger.WithFields(log.Fields{"vote": vote, "error": err}).Debug("Vote rejected")
			}
		}
	}
}

// SubmitVote queues a vote for asynchronous processing. Votes are dropped if
// the queue is full, matching the reject-and-continue error model: a dropped
// vote is indistinguishable from one lost on the wire.
func (e *ConsensusEngine) SubmitVote(vote *core.Vote) {
	select {
	case e.incoming <- vote:
	default:
		logger.WithFields(log.Fields{"vote": vote}).Warn("Incoming vote queue full, dropping vote")
	}
}

// ProcessVote runs the full per-vote sequence: admission, tally update, fork
// choice and the commit threshold check. A rejected vote mutates nothing.
func (e *ConsensusEngine) ProcessVote(vote *core.Vote) error {
	snapshot := e.stakeSnapshot()
	currentSlot := e.CurrentSlot()

	// Admission (including the signature capability call) happens before any
	// critical section is entered.
	admitted, err := AdmitVote(vote, currentSlot, e.lookback, snapshot.table, e.verifier)
	if err != nil {
		e.rejectMeter.Mark(1)
		return err
	}

	e.advanceCurrentSlot(vote.Slot)

	shard := e.shard(vote.Slot)
	if shard == nil {
		// The slot was pruned between admission and application.
		e.rejectMeter.Mark(1)
		return ErrPastSlot
	}

	shard.mu.Lock()
	shard.tally.Apply(admitted)
	leadingHash, leadingStake, _ := shard.tally.LeadingHash()
	shard.mu.Unlock()

	if e.forkChoice.Update(vote.Slot, leadingHash, leadingStake) {
		head, _ := e.forkChoice.Head()
		e.stateMu.Lock()
		e.state.SetHead(head)
		e.stateMu.Unlock()
		logger.WithFields(log.Fields{"head": head}).Debug("Fork choice head updated")
	}

	if leadingStake >= snapshot.table.RequiredStake() {
		e.commitSlot(vote.Slot, leadingHash, leadingStake)
	}

	e.voteMeter.Mark(1)
	return nil
}

// CommitmentLevel derives the commitment level of a slot from the committed
// slot set and the finality depth.
func (e *ConsensusEngine) CommitmentLevel(slot uint64) core.CommitmentLevel {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.state.CommittedSlots().Level(slot, e.finalityDepth)
}

// CurrentHead returns the fork-choice head, and false if no vote has been
// processed yet.
func (e *ConsensusEngine) CurrentHead() (Head, bool) {
	return e.forkChoice.Head()
}

// CurrentSlot returns the engine's current slot.
func (e *ConsensusEngine) CurrentSlot() uint64 {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.state.CurrentSlot()
}

// SetCurrentSlot advances the engine's current slot. The slot never moves
// backwards.
func (e *ConsensusEngine) SetCurrentSlot(slot uint64) {
	e.advanceCurrentSlot(slot)
}

// Epoch returns the epoch of the active stake snapshot.
func (e *ConsensusEngine) Epoch() uint64 {
	return e.stakeSnapshot().epoch
}

// CommittedSlotList returns a copy of the committed slots in ascending order.
func (e *ConsensusEngine) CommittedSlotList() []uint64 {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.state.CommittedSlots().Slots()
}

// CommittedSlotsChan returns a channel publishing newly committed slots.
func (e *ConsensusEngine) CommittedSlotsChan() chan uint64 {
	return e.committedSlots
}

// Rebase atomically swaps in the stake table for a new epoch and prunes
// tallies below the new retention window. The committed slot set is never
// pruned. In-flight votes finish against the old table.
func (e *ConsensusEngine) Rebase(table *core.StakeTable, bounds EpochBounds) {
	e.stake.Store(&stakeSnapshot{table: table, epoch: bounds.Epoch})

	e.stateMu.Lock()
	e.state.SetEpoch(bounds.Epoch)
	e.stateMu.Unlock()

	floor := uint64(0)
	if bounds.FirstSlot > e.lookback {
		floor = bounds.FirstSlot - e.lookback
	}

	pruned := 0
	e.shardsMu.Lock()
	if floor > e.pruneFloor {
		e.pruneFloor = floor
	}
	for slot := range e.shards {
		if slot < e.pruneFloor {
			delete(e.shards, slot)
			pruned++
		}
	}
	e.shardsMu.Unlock()

	logger.WithFields(log.Fields{
		"epoch":            bounds.Epoch,
		"firstSlot":        bounds.FirstSlot,
		"totalActiveStake": table.TotalActiveStake(),
		"prunedTallies":    pruned,
	}).Info("Rebased onto new stake table")
}

func (e *ConsensusEngine) stakeSnapshot() *stakeSnapshot {
	return e.stake.Load().(*stakeSnapshot)
}

func (e *ConsensusEngine) advanceCurrentSlot(slot uint64) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	if slot > e.state.CurrentSlot() {
		e.state.SetCurrentSlot(slot)
	}
}

// shard returns the tally shard for the given slot, creating it on first
// vote. Returns nil for slots below the prune floor.
func (e *ConsensusEngine) shard(slot uint64) *slotShard {
	e.shardsMu.RLock()
	s, ok := e.shards[slot]
	e.shardsMu.RUnlock()
	if ok {
		return s
	}

	e.shardsMu.Lock()
	defer e.shardsMu.Unlock()
	if slot < e.pruneFloor {
		return nil
	}
	if s, ok := e.shards[slot]; ok {
		return s
	}
	s = &slotShard{tally: core.NewSlotTally(slot)}
	e.shards[slot] = s
	return s
}

func (e *ConsensusEngine) commitSlot(slot uint64, hash common.Hash, stake uint64) {
	e.stateMu.Lock()
	added, err := e.state.CommitSlot(slot)
	e.stateMu.Unlock()
	if err != nil {
		logger.WithFields(log.Fields{"slot": slot, "error": err}).Error("Failed to persist committed slot")
	}
	if !added {
		return
	}

	fields := log.Fields{"slot": slot, "hash": hash, "stake": stake}
	if e.leaders != nil {
		fields["leader"] = e.leaders.LeaderForSlot(slot).Address()
	}
	logger.WithFields(fields).Info("Slot committed")

	select {
	case e.committedSlots <- slot:
	default:
	}
}
