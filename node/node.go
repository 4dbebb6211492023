package node

import (
	"context"
	"sync"

	"github.com/spf13/viper"

	"github.com/tesserachain/tessera/common"
	"github.com/tesserachain/tessera/consensus"
	"github.com/tesserachain/tessera/core"
	"github.com/tesserachain/tessera/ledger"
	"github.com/tesserachain/tessera/metrics"
	"github.com/tesserachain/tessera/propagation"
	"github.com/tesserachain/tessera/rpc"
	"github.com/tesserachain/tessera/store"
	"github.com/tesserachain/tessera/store/database"
	"github.com/tesserachain/tessera/store/kvstore"
)

// Node assembles the sub components and manages their life cycle.
type Node struct {
	Store     store.Store
	Consensus *consensus.ConsensusEngine
	EpochMgr  *consensus.EpochManager
	Accounts  *ledger.AccountsDB
	Tree      *propagation.Tree
	RPC       *rpc.TesseraRPCServer

	// Life cycle
	wg      *sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
}

// Params groups the inputs of NewNode.
type Params struct {
	DB               database.Database
	Validators       *core.StakeTable
	SnapshotProvider consensus.StakeSnapshotProvider
}

// NewNode wires the sub components together.
func NewNode(params *Params) *Node {
	kv := kvstore.NewKVStore(params.DB)

	verifier := consensus.NewCachingVerifier(
		consensus.NewEd25519Verifier(),
		viper.GetInt(common.CfgConsensusSigCacheSize),
	)
	engine := consensus.NewConsensusEngine(kv, params.Validators, verifier)
	engine.SetLeaderSchedule(consensus.NewRotatingLeaderSchedule(params.Validators))

	epochMgr := consensus.NewEpochManager(engine, params.SnapshotProvider)
	accounts := ledger.NewAccountsDB(params.DB)
	tree := propagation.NewTree(viper.GetInt(common.CfgPropagationFanout))

	node := &Node{
		Store:     kv,
		Consensus: engine,
		EpochMgr:  epochMgr,
		Accounts:  accounts,
		Tree:      tree,

		wg: &sync.WaitGroup{},
	}

	if viper.GetBool(common.CfgRPCEnabled) {
		node.RPC = rpc.NewTesseraRPCServer(engine, accounts)
	}

	return node
}

// Start starts sub components and kicks off the main loop.
func (n *Node) Start(ctx context.Context) {
	c, cancel := context.WithCancel(ctx)
	n.ctx = c
	n.cancel = cancel

	n.Consensus.Start(n.ctx)
	n.EpochMgr.Start(n.ctx)
	metrics.Start(n.ctx)

	if n.RPC != nil {
		n.RPC.Start(n.ctx)
	}
}

// Stop notifies all sub components to stop without blocking.
func (n *Node) Stop() {
	n.cancel()
}

// Wait blocks until all sub components stop.
func (n *Node) Wait() {
	n.Consensus.Wait()
	n.EpochMgr.Wait()
	if n.RPC != nil {
		n.RPC.Wait()
	}
}
