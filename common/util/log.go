package util

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/tesserachain/tessera/common"
)

func init() {
	customFormatter := new(log.TextFormatter)
	customFormatter.TimestampFormat = "2006-01-02 15:04:05"
	customFormatter.FullTimestamp = true
	log.SetFormatter(customFormatter)
}

// InitLog applies the log settings from the loaded config. Called after the
// config file has been read in.
func InitLog() {
	if viper.GetBool(common.CfgLogDebug) {
		log.SetLevel(log.DebugLevel)
	}
}

// GetLoggerForModule returns a logger labeled with the given module name.
func GetLoggerForModule(module string) *log.Entry {
	return log.WithFields(log.Fields{"prefix": module})
}
