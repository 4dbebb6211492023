package cmd

import (
	"context"
	"fmt"
	"path"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tesserachain/tessera/common"
	"github.com/tesserachain/tessera/consensus"
	"github.com/tesserachain/tessera/core"
	"github.com/tesserachain/tessera/node"
	"github.com/tesserachain/tessera/store/database/backend"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start Tessera node.",
	Run:   runStart,
}

func init() {
	RootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) {
	dataPath := viper.GetString(common.CfgStorageDataPath)
	if dataPath == "" {
		dataPath = cfgPath
	}

	dbPath := path.Join(dataPath, "db")
	db, err := backend.NewLDBDatabase(dbPath, 256, 0)
	if err != nil {
		panic(fmt.Sprintf("Failed to open the db at %v: %v", dbPath, err))
	}

	table, err := loadGenesisValidators()
	if err != nil {
		panic(fmt.Sprintf("Failed to load the genesis validators: %v", err))
	}

	params := &node.Params{
		DB:               db,
		Validators:       table,
		SnapshotProvider: &staticSnapshotProvider{table: table},
	}
	n := node.NewNode(params)
	n.Start(context.Background())

	n.Wait()
}

// validatorConfig is one genesis validator entry in the config file.
type validatorConfig struct {
	Address string
	Stake   uint64
	Active  bool
}

func loadGenesisValidators() (*core.StakeTable, error) {
	entries := []validatorConfig{}
	if err := viper.UnmarshalKey(common.CfgGenesisValidators, &entries); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no validators configured under %v", common.CfgGenesisValidators)
	}

	validators := []core.Validator{}
	for _, entry := range entries {
		validators = append(validators, core.NewValidator(
			common.HexToAddress(entry.Address), entry.Stake, entry.Active))
	}
	return core.NewStakeTable(validators), nil
}

// staticSnapshotProvider reuses the genesis stake table for every epoch.
// Deployments with on-chain staking plug in a ledger-backed provider instead.
type staticSnapshotProvider struct {
	table *core.StakeTable
}

func (p *staticSnapshotProvider) StakeSnapshot(epoch uint64) *core.StakeTable {
	return p.table
}

var _ consensus.StakeSnapshotProvider = (*staticSnapshotProvider)(nil)
