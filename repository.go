package srcbatch

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/chararch/srcbatch/status"
	"github.com/chararch/srcbatch/util"
	"github.com/pkg/errors"
)

//Repository stores the job tables of runs and the executions of their jobs
type Repository interface {
	//SaveTable replaces the job table stored under run
	SaveTable(ctx context.Context, run string, table JobTable) BatchError
	//FindTable returns the job table of run, nil when the run is unknown
	FindTable(ctx context.Context, run string) (JobTable, BatchError)
	SaveExecutions(ctx context.Context, executions ...*JobExecution) BatchError
	//FindExecutions returns the last execution of each job of run
	FindExecutions(ctx context.Context, run string) (map[string]*JobExecution, BatchError)
}

//Schema DDL of the tables used by the SQL repository (MySQL dialect)
const Schema = `
CREATE TABLE IF NOT EXISTS srcbatch_run (
  run_name    VARCHAR(128) NOT NULL PRIMARY KEY,
  job_count   INT NOT NULL,
  create_time DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS srcbatch_job (
  run_name    VARCHAR(128) NOT NULL,
  job_key     VARCHAR(255) NOT NULL,
  descriptor  TEXT NOT NULL,
  create_time DATETIME NOT NULL,
  PRIMARY KEY (run_name, job_key)
);
CREATE TABLE IF NOT EXISTS srcbatch_job_execution (
  execution_id   BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
  run_name       VARCHAR(128) NOT NULL,
  job_key        VARCHAR(255) NOT NULL,
  status         VARCHAR(16) NOT NULL,
  output_path    VARCHAR(1024) NOT NULL,
  entity_count   BIGINT NOT NULL,
  create_time    DATETIME NOT NULL,
  start_time     DATETIME NULL,
  end_time       DATETIME NULL,
  fail_error     TEXT,
  compress_error TEXT,
  last_updated   DATETIME NOT NULL,
  KEY idx_run_key (run_name, job_key)
);
`

type memoryRepository struct {
	mu         sync.RWMutex
	tables     map[string]JobTable
	executions map[string]map[string]*JobExecution
}

//NewMemoryRepository a repository keeping everything in process memory
func NewMemoryRepository() Repository {
	return &memoryRepository{
		tables:     make(map[string]JobTable),
		executions: make(map[string]map[string]*JobExecution),
	}
}

func (r *memoryRepository) SaveTable(ctx context.Context, run string, table JobTable) BatchError {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := make(JobTable, len(table))
	for k, d := range table {
		dd := *d
		copied[k] = &dd
	}
	r.tables[run] = copied
	return nil
}

func (r *memoryRepository) FindTable(ctx context.Context, run string) (JobTable, BatchError) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	table, ok := r.tables[run]
	if !ok {
		return nil, nil
	}
	return table.Subset(table.Keys()...), nil
}

func (r *memoryRepository) SaveExecutions(ctx context.Context, executions ...*JobExecution) BatchError {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range executions {
		byKey, ok := r.executions[e.RunName]
		if !ok {
			byKey = make(map[string]*JobExecution)
			r.executions[e.RunName] = byKey
		}
		ee := *e
		ee.LastUpdated = time.Now()
		byKey[e.Key] = &ee
	}
	return nil
}

func (r *memoryRepository) FindExecutions(ctx context.Context, run string) (map[string]*JobExecution, BatchError) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[string]*JobExecution, len(r.executions[run]))
	for k, e := range r.executions[run] {
		ee := *e
		result[k] = &ee
	}
	return result, nil
}

type sqlRepository struct {
	db *sql.DB
}

//NewSQLRepository a repository over a database holding the tables of Schema
func NewSQLRepository(db *sql.DB) Repository {
	if db == nil {
		panic("db must not be nil")
	}
	return &sqlRepository{db: db}
}

func (r *sqlRepository) SaveTable(ctx context.Context, run string, table JobTable) (be BatchError) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return NewBatchError(ErrCodeDbFail, "begin tx", err)
	}
	defer func() {
		if be != nil {
			tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, "delete from srcbatch_job where run_name=?", run); err != nil {
		return NewBatchError(ErrCodeDbFail, "delete job table of run %v", run, err)
	}
	now := time.Now()
	if _, err = tx.ExecContext(ctx, "replace into srcbatch_run(run_name, job_count, create_time) values(?, ?, ?)", run, len(table), now); err != nil {
		return NewBatchError(ErrCodeDbFail, "save run %v", run, err)
	}
	for _, key := range table.Keys() {
		descriptor, err := util.JsonString(table[key])
		if err != nil {
			return NewBatchError(ErrCodeGeneral, "encode job %v", key, err)
		}
		if _, err = tx.ExecContext(ctx, "insert into srcbatch_job(run_name, job_key, descriptor, create_time) values(?, ?, ?, ?)", run, key, descriptor, now); err != nil {
			return NewBatchError(ErrCodeDbFail, "insert job %v of run %v", key, run, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return NewBatchError(ErrCodeDbFail, "commit job table of run %v", run, err)
	}
	return nil
}

func (r *sqlRepository) FindTable(ctx context.Context, run string) (JobTable, BatchError) {
	var count int
	err := r.db.QueryRowContext(ctx, "select job_count from srcbatch_run where run_name=?", run).Scan(&count)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, NewBatchError(ErrCodeDbFail, "query run %v", run, err)
	}
	rows, err := r.db.QueryContext(ctx, "select job_key, descriptor from srcbatch_job where run_name=?", run)
	if err != nil {
		return nil, NewBatchError(ErrCodeDbFail, "query job table of run %v", run, err)
	}
	defer rows.Close()
	table := make(JobTable, count)
	for rows.Next() {
		var key, descriptor string
		if err = rows.Scan(&key, &descriptor); err != nil {
			return nil, NewBatchError(ErrCodeDbFail, "scan job of run %v", run, err)
		}
		d := &JobDescriptor{}
		if err = util.ParseJson(descriptor, d); err != nil {
			return nil, NewBatchError(ErrCodeGeneral, "decode job %v of run %v", key, run, err)
		}
		table[key] = d
	}
	if err = rows.Err(); err != nil {
		return nil, NewBatchError(ErrCodeDbFail, "iterate job table of run %v", run, err)
	}
	return table, nil
}

func errString(err error) sql.NullString {
	if err == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: err.Error(), Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func (r *sqlRepository) SaveExecutions(ctx context.Context, executions ...*JobExecution) BatchError {
	for _, e := range executions {
		e.LastUpdated = time.Now()
		_, err := r.db.ExecContext(ctx, "insert into srcbatch_job_execution(run_name, job_key, status, output_path, entity_count, create_time, start_time, end_time, fail_error, compress_error, last_updated) values(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			e.RunName, e.Key, string(e.Status), e.OutputPath, e.EntityCount, e.CreateTime, nullTime(e.StartTime), nullTime(e.EndTime), errString(e.FailError), errString(e.CompressError), e.LastUpdated)
		if err != nil {
			return NewBatchError(ErrCodeDbFail, "insert execution of job %v", e.Key, err)
		}
	}
	return nil
}

func (r *sqlRepository) FindExecutions(ctx context.Context, run string) (map[string]*JobExecution, BatchError) {
	rows, err := r.db.QueryContext(ctx, "select job_key, status, output_path, entity_count, create_time, start_time, end_time, fail_error, compress_error, last_updated from srcbatch_job_execution where run_name=? order by execution_id", run)
	if err != nil {
		return nil, NewBatchError(ErrCodeDbFail, "query executions of run %v", run, err)
	}
	defer rows.Close()
	result := make(map[string]*JobExecution)
	for rows.Next() {
		var st string
		var startTime, endTime sql.NullTime
		var failError, compressError sql.NullString
		e := &JobExecution{RunName: run}
		if err = rows.Scan(&e.Key, &st, &e.OutputPath, &e.EntityCount, &e.CreateTime, &startTime, &endTime, &failError, &compressError, &e.LastUpdated); err != nil {
			return nil, NewBatchError(ErrCodeDbFail, "scan execution of run %v", run, err)
		}
		e.Status = status.BatchStatus(st)
		e.StartTime = startTime.Time
		e.EndTime = endTime.Time
		if failError.Valid {
			e.FailError = errors.New(failError.String)
		}
		if compressError.Valid {
			e.CompressError = errors.New(compressError.String)
		}
		result[e.Key] = e
	}
	if err = rows.Err(); err != nil {
		return nil, NewBatchError(ErrCodeDbFail, "iterate executions of run %v", run, err)
	}
	return result, nil
}
