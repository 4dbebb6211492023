package metrics

import (
	"context"
	"time"

	"github.com/rcrowley/go-metrics"
	"github.com/spf13/viper"

	"github.com/tesserachain/tessera/common"
	"github.com/tesserachain/tessera/common/util"
)

const (
	MHeartBeat = "heartbeat"

	MConsensusVotes    = "consensus/votes"
	MConsensusRejected = "consensus/rejected"
)

var logger = util.GetLoggerForModule("metrics")

// Start launches the periodic metrics reporters. Reporting is off unless an
// interval is configured.
func Start(ctx context.Context) {
	intervalSecs := viper.GetInt(common.CfgMetricsLogIntervalSecs)
	if intervalSecs <= 0 {
		return
	}
	interval := time.Duration(intervalSecs) * time.Second

	go reportHeartBeat(ctx)
	go metrics.Log(metrics.DefaultRegistry, interval, logger)
}

func reportHeartBeat(ctx context.Context) {
	g := metrics.GetOrRegisterGauge(MHeartBeat, nil)
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
			g.Update(1)
		}
	}
}
