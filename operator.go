package srcbatch

import (
	"context"
	"sort"

	"github.com/chararch/srcbatch/status"
)

//RunReport the outcome of submitting or restarting a run
type RunReport struct {
	Run   string
	Table JobTable
	//Executions last execution of each job, jobs never dispatched are absent
	Executions map[string]*JobExecution
}

//Counts number of jobs per status of their last execution
func (r *RunReport) Counts() map[status.BatchStatus]int {
	counts := make(map[status.BatchStatus]int)
	for _, e := range r.Executions {
		counts[e.Status]++
	}
	return counts
}

//Unfinished keys of the jobs whose last execution did not complete, dispatched or not, in ascending order
func (r *RunReport) Unfinished() []string {
	keys := make([]string, 0)
	for _, key := range r.Table.Keys() {
		if e, ok := r.Executions[key]; !ok || e.Status != status.COMPLETED {
			keys = append(keys, key)
		}
	}
	return keys
}

//Operator generates, records and dispatches runs
type Operator struct {
	registry   *Registry
	repo       Repository
	dispatcher Dispatcher
}

//NewOperator creates an operator, dispatcher may be nil when tables are only generated and recorded
func NewOperator(registry *Registry, repo Repository, dispatcher Dispatcher) *Operator {
	if registry == nil {
		panic("registry must not be nil")
	}
	if repo == nil {
		repo = NewMemoryRepository()
	}
	return &Operator{registry: registry, repo: repo, dispatcher: dispatcher}
}

//Generate builds the job table of a new run and records it without dispatching any job
func (o *Operator) Generate(ctx context.Context, run, jobType string, params map[string]interface{}) (JobTable, BatchError) {
	if run == "" {
		return nil, NewBatchError(ErrCodeInvalidArgument, "run name is required")
	}
	existing, err := o.repo.FindTable(ctx, run)
	if err != nil {
		logger.Error(ctx, "find job table error, run:%v, err:%v", run, err)
		return nil, err
	}
	if existing != nil {
		logger.Error(ctx, "run already exists, run:%v", run)
		return nil, NewBatchError(ErrCodeDuplicateJob, "run %v already exists, restart it instead", run)
	}
	maker, err := o.registry.New(jobType, params)
	if err != nil {
		logger.Error(ctx, "create config maker error, run:%v, jobType:%v, err:%v", run, jobType, err)
		return nil, err
	}
	table, err := maker.BuildJobConfigs(ctx)
	if err != nil {
		logger.Error(ctx, "generate job table error, run:%v, jobType:%v, err:%v", run, jobType, err)
		return nil, err
	}
	if err = o.repo.SaveTable(ctx, run, table); err != nil {
		logger.Error(ctx, "save job table error, run:%v, err:%v", run, err)
		return nil, err
	}
	logger.Info(ctx, "job table generated, run:%v, jobType:%v, jobs:%v", run, jobType, len(table))
	return table, nil
}

//Submit generates the job table of a new run, records it and dispatches every job
func (o *Operator) Submit(ctx context.Context, run, jobType string, params map[string]interface{}) (*RunReport, BatchError) {
	table, err := o.Generate(ctx, run, jobType, params)
	if err != nil {
		return nil, err
	}
	report := &RunReport{Run: run, Table: table, Executions: make(map[string]*JobExecution)}
	return report, o.dispatch(ctx, report, table)
}

//Restart dispatches again the jobs of run whose last execution did not complete. Jobs are rebuilt from their first entity.
func (o *Operator) Restart(ctx context.Context, run string) (*RunReport, BatchError) {
	table, err := o.repo.FindTable(ctx, run)
	if err != nil {
		return nil, err
	}
	if table == nil {
		logger.Error(ctx, "can not find run:%v", run)
		return nil, NewBatchError(ErrCodeInvalidArgument, "can not find run:%v", run)
	}
	executions, err := o.repo.FindExecutions(ctx, run)
	if err != nil {
		return nil, err
	}
	report := &RunReport{Run: run, Table: table, Executions: executions}
	pending := report.Unfinished()
	logger.Info(ctx, "restart run, run:%v, jobs:%v, pending:%v", run, len(table), len(pending))
	if len(pending) == 0 {
		return report, nil
	}
	return report, o.dispatch(ctx, report, table.Subset(pending...))
}

func (o *Operator) dispatch(ctx context.Context, report *RunReport, table JobTable) BatchError {
	if o.dispatcher == nil {
		return NewBatchError(ErrCodeInvalidArgument, "no dispatcher configured")
	}
	executions, err := o.dispatcher.Dispatch(ctx, report.Run, table)
	if err != nil {
		logger.Error(ctx, "dispatch error, run:%v, err:%v", report.Run, err)
		return err
	}
	saved := make([]*JobExecution, 0, len(executions))
	for _, e := range executions {
		report.Executions[e.Key] = e
		saved = append(saved, e)
	}
	sort.Slice(saved, func(i, j int) bool {
		return saved[i].Key < saved[j].Key
	})
	if err = o.repo.SaveExecutions(ctx, saved...); err != nil {
		logger.Error(ctx, "save executions error, run:%v, err:%v", report.Run, err)
		return err
	}
	return nil
}
