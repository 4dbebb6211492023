package common

import (
	"github.com/spf13/viper"
)

const (
	// CfgConsensusLookbackSlots defines how many slots behind the current slot a vote may reference.
	CfgConsensusLookbackSlots = "consensus.lookbackSlots"
	// CfgConsensusFinalityDepth defines the number of later committed slots required to finalize a slot.
	CfgConsensusFinalityDepth = "consensus.finalityDepth"
	// CfgConsensusEpochLength defines the number of slots per epoch.
	CfgConsensusEpochLength = "consensus.epochLength"
	// CfgConsensusMessageQueueSize defines the capacity of the consensus message queue.
	CfgConsensusMessageQueueSize = "consensus.messageQueueSize"
	// CfgConsensusSigCacheSize defines the capacity of the signature verification cache.
	CfgConsensusSigCacheSize = "consensus.sigCacheSize"
	// CfgConsensusEpochCheckIntervalSecs defines how often the epoch manager polls for an epoch transition.
	CfgConsensusEpochCheckIntervalSecs = "consensus.epochCheckIntervalSecs"

	// CfgPropagationFanout defines the fanout of the block propagation tree.
	CfgPropagationFanout = "propagation.fanout"

	// CfgStorageDataPath defines the directory holding the database files.
	CfgStorageDataPath = "storage.dataPath"

	// CfgGenesisValidators lists the genesis validators with their stakes.
	CfgGenesisValidators = "genesis.validators"

	// CfgRPCEnabled sets whether to run the RPC service.
	CfgRPCEnabled = "rpc.enabled"
	// CfgRPCAddress sets the binding address of the RPC service.
	CfgRPCAddress = "rpc.address"
	// CfgRPCPort sets the port of the RPC service.
	CfgRPCPort = "rpc.port"
	// CfgRPCMaxConnections limits concurrent connections accepted by the RPC server.
	CfgRPCMaxConnections = "rpc.maxConnections"
	// CfgRPCTimeoutSecs sets the timeout for RPC requests.
	CfgRPCTimeoutSecs = "rpc.timeoutSecs"

	// CfgMetricsLogIntervalSecs sets how often metrics are reported to the log. Zero disables reporting.
	CfgMetricsLogIntervalSecs = "metrics.logIntervalSecs"

	// CfgLogDebug enables debug level logging.
	CfgLogDebug = "log.debug"
)

func init() {
	viper.SetDefault(CfgConsensusLookbackSlots, 32)
	viper.SetDefault(CfgConsensusFinalityDepth, 32)
	viper.SetDefault(CfgConsensusEpochLength, 432)
	viper.SetDefault(CfgConsensusMessageQueueSize, 512)
	viper.SetDefault(CfgConsensusSigCacheSize, 16384)
	viper.SetDefault(CfgConsensusEpochCheckIntervalSecs, 1)

	viper.SetDefault(CfgPropagationFanout, 8)

	viper.SetDefault(CfgStorageDataPath, "")

	viper.SetDefault(CfgRPCEnabled, false)
	viper.SetDefault(CfgRPCAddress, "127.0.0.1")
	viper.SetDefault(CfgRPCPort, "15672")
	viper.SetDefault(CfgRPCMaxConnections, 200)
	viper.SetDefault(CfgRPCTimeoutSecs, 60)

	viper.SetDefault(CfgMetricsLogIntervalSecs, 0)

	viper.SetDefault(CfgLogDebug, false)
}
