package srcbatch

import "context"

//JobListener job listener
type JobListener interface {
	//BeforeJob execute before a dispatched job starts, an error fails the job without running it
	BeforeJob(ctx context.Context, execution *JobExecution) BatchError
	//AfterJob execute after job end either normally or abnormally
	AfterJob(ctx context.Context, execution *JobExecution) BatchError
}

//BuildListener observes an artifact build
type BuildListener interface {
	//OnStateChange execute after each state transition of the builder
	OnStateChange(ctx context.Context, execution *JobExecution, from, to BuildState)
	//OnEntity execute after an entity was processed, err is nil on success
	OnEntity(ctx context.Context, execution *JobExecution, index int, name string, err BatchError)
}
