package srcbatch

import (
	"time"

	"github.com/chararch/srcbatch/status"
)

//JobExecution the outcome of one run of one job
type JobExecution struct {
	RunName       string
	Key           string
	Status        status.BatchStatus
	OutputPath    string
	CreateTime    time.Time
	StartTime     time.Time
	EndTime       time.Time
	EntityCount   int64
	FailError     error
	CompressError error
	LastUpdated   time.Time
}

func newJobExecution(runName, key string) *JobExecution {
	return &JobExecution{
		RunName:    runName,
		Key:        key,
		Status:     status.STARTING,
		CreateTime: time.Now(),
	}
}

func (e *JobExecution) start() {
	e.StartTime = time.Now()
	e.Status = status.STARTED
}

func (e *JobExecution) finish(err BatchError) {
	e.EndTime = time.Now()
	if err == nil {
		e.Status = status.COMPLETED
		return
	}
	e.FailError = err
	if err.Code() == ErrCodeStop {
		e.Status = status.STOPPED
	} else {
		e.Status = status.FAILED
	}
}

//Duration time spent running the job
func (e *JobExecution) Duration() time.Duration {
	if e.StartTime.IsZero() || e.EndTime.IsZero() {
		return 0
	}
	return e.EndTime.Sub(e.StartTime)
}
