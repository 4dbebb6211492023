package consensus

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/tesserachain/tessera/common"
	"github.com/tesserachain/tessera/core"
)

const epochChannelBufferSize = 10

// StakeSnapshotProvider supplies the stake table for a given epoch. It is an
// external collaborator, typically backed by the staking ledger.
type StakeSnapshotProvider interface {
	StakeSnapshot(epoch uint64) *core.StakeTable
}

// EpochManager watches the engine's current slot and triggers a rebase when
// it crosses an epoch boundary. The rebase itself (stake table swap plus
// tally pruning) runs outside the per-vote hot path.
type EpochManager struct {
	engine   *ConsensusEngine
	provider StakeSnapshotProvider

	epochLength uint64
	interval    time.Duration
	C           chan uint64 // Channel for announcing new epochs.

	// Life cycle
	mu      *sync.Mutex
	wg      *sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
}

// NewEpochManager creates a new instance of EpochManager.
func NewEpochManager(engine *ConsensusEngine, provider StakeSnapshotProvider) *EpochManager {
	return &EpochManager{
		engine:   engine,
		provider: provider,

		epochLength: uint64(viper.GetInt(common.CfgConsensusEpochLength)),
		interval:    time.Duration(viper.GetInt(common.CfgConsensusEpochCheckIntervalSecs)) * time.Second,
		C:           make(chan uint64, epochChannelBufferSize),

		mu: &sync.Mutex{},
		wg: &sync.WaitGroup{},
	}
}

// Start is the main goroutine loop polling for epoch transitions.
func (m *EpochManager) Start(ctx context.Context) {
	c, cancel := context.WithCancel(ctx)
	m.ctx = c
	m.cancel = cancel

	m.wg.Add(1)
	go m.mainLoop()
}

// Stop notifies the epoch manager's goroutines to stop without blocking.
func (m *EpochManager) Stop() {
	m.cancel()
}

// Wait blocks until all the epoch manager's goroutines have finished.
func (m *EpochManager) Wait() {
	m.wg.Wait()
}

func (m *EpochManager) mainLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			m.mu.Lock()
			m.stopped = true
			m.mu.Unlock()
			return
		case <-ticker.C:
			m.maybeRebase()
		}
	}
}

// maybeRebase rebases the engine if the current slot has crossed into a new
// epoch. Exposed to tests through CheckNow.
func (m *EpochManager) maybeRebase() {
	epoch := m.engine.CurrentSlot() / m.epochLength
	if epoch <= m.engine.Epoch() {
		return
	}

	table := m.provider.StakeSnapshot(epoch)
	bounds := EpochBounds{
		Epoch:     epoch,
		FirstSlot: epoch * m.epochLength,
		LastSlot:  (epoch+1)*m.epochLength - 1,
	}
	log.WithFields(log.Fields{"epoch": epoch, "firstSlot": bounds.FirstSlot}).Debug("Epoch boundary crossed")
	m.engine.Rebase(table, bounds)

	select {
	case m.C <- epoch:
	default:
	}
}

// CheckNow synchronously runs one epoch transition check.
func (m *EpochManager) CheckNow() {
	m.maybeRebase()
}
