package srcbatch

import (
	"os"

	"github.com/chararch/srcbatch/internal/logs"
)

//log
var logger logs.Logger = logs.NewLogger(os.Stdout, logs.Info)

//SetLogger set a logger instance for srcbatch
func SetLogger(l logs.Logger) {
	if l == nil {
		panic("logger must not be nil")
	}
	logger = l
}

const (
	//DefaultChunkSize default number of catalog entities processed by one job
	DefaultChunkSize = 500
	//DefaultMaxRunningJobs default number of jobs a LocalDispatcher runs in parallel
	DefaultMaxRunningJobs = 10
	//DefaultMkTime default good-time-interval selection tag used in file names
	DefaultMkTime = "none"
	//DefaultCoordSys default coordinate system of analysis bins
	DefaultCoordSys = "GAL"
)
