package srcbatch

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/bmizerany/assert"
	"github.com/chararch/srcbatch/status"
	"github.com/chararch/srcbatch/util"
	"github.com/pkg/errors"
)

func testTable() JobTable {
	return JobTable{
		"E0_PSF3_3FGL_00": {Key: "E0_PSF3_3FGL_00", BinKey: "E0_PSF3", Catalog: "3FGL", Range: IndexRange{0, 500}, OutputPath: "o0.fits"},
		"E0_PSF3_3FGL_01": {Key: "E0_PSF3_3FGL_01", BinKey: "E0_PSF3", Catalog: "3FGL", JobIndex: 1, Range: IndexRange{500, 700}, OutputPath: "o1.fits"},
	}
}

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	table, err := repo.FindTable(ctx, "run1")
	assert.Equal(t, nil, err)
	assert.T(t, table == nil)

	assert.Equal(t, nil, repo.SaveTable(ctx, "run1", testTable()))
	table, _ = repo.FindTable(ctx, "run1")
	assert.Equal(t, testTable(), table)

	assert.Equal(t, nil, repo.SaveTable(ctx, "empty", JobTable{}))
	table, _ = repo.FindTable(ctx, "empty")
	assert.T(t, table != nil)
	assert.Equal(t, 0, len(table))

	e1 := newJobExecution("run1", "E0_PSF3_3FGL_00")
	e1.Status = status.FAILED
	assert.Equal(t, nil, repo.SaveExecutions(ctx, e1))
	e2 := newJobExecution("run1", "E0_PSF3_3FGL_00")
	e2.Status = status.COMPLETED
	assert.Equal(t, nil, repo.SaveExecutions(ctx, e2))

	executions, _ := repo.FindExecutions(ctx, "run1")
	assert.Equal(t, 1, len(executions))
	assert.Equal(t, status.COMPLETED, executions["E0_PSF3_3FGL_00"].Status)
	executions, _ = repo.FindExecutions(ctx, "other")
	assert.Equal(t, 0, len(executions))
}

func TestSQLRepository_SaveTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.Equal(t, nil, err)
	defer db.Close()
	table := testTable()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("delete from srcbatch_job where run_name=?")).WithArgs("run1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("replace into srcbatch_run(run_name, job_count, create_time)")).
		WithArgs("run1", 2, sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	for _, key := range table.Keys() {
		descriptor, _ := util.JsonString(table[key])
		mock.ExpectExec(regexp.QuoteMeta("insert into srcbatch_job(run_name, job_key, descriptor, create_time)")).
			WithArgs("run1", key, descriptor, sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	repo := NewSQLRepository(db)
	assert.Equal(t, nil, repo.SaveTable(context.Background(), "run1", table))
	assert.Equal(t, nil, mock.ExpectationsWereMet())
}

func TestSQLRepository_SaveTableRollback(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("delete from srcbatch_job")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("replace into srcbatch_run(")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("insert into srcbatch_job(")).WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	be := NewSQLRepository(db).SaveTable(context.Background(), "run1", testTable())
	assert.Equal(t, ErrCodeDbFail, be.Code())
	assert.Equal(t, nil, mock.ExpectationsWereMet())
}

func TestSQLRepository_FindTable(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	table := testTable()
	rows := sqlmock.NewRows([]string{"job_key", "descriptor"})
	for _, key := range table.Keys() {
		descriptor, _ := util.JsonString(table[key])
		rows.AddRow(key, descriptor)
	}
	runQuery := regexp.QuoteMeta("select job_count from srcbatch_run where run_name=?")
	jobQuery := regexp.QuoteMeta("select job_key, descriptor from srcbatch_job where run_name=?")
	mock.ExpectQuery(runQuery).WithArgs("run1").WillReturnRows(sqlmock.NewRows([]string{"job_count"}).AddRow(2))
	mock.ExpectQuery(jobQuery).WithArgs("run1").WillReturnRows(rows)
	mock.ExpectQuery(runQuery).WithArgs("absent").WillReturnRows(sqlmock.NewRows([]string{"job_count"}))
	mock.ExpectQuery(runQuery).WithArgs("empty").WillReturnRows(sqlmock.NewRows([]string{"job_count"}).AddRow(0))
	mock.ExpectQuery(jobQuery).WithArgs("empty").WillReturnRows(sqlmock.NewRows([]string{"job_key", "descriptor"}))
	mock.ExpectQuery(runQuery).WithArgs("broken").WillReturnError(errors.New("connection reset"))

	repo := NewSQLRepository(db)
	found, err := repo.FindTable(context.Background(), "run1")
	assert.Equal(t, nil, err)
	assert.Equal(t, table, found)
	found, err = repo.FindTable(context.Background(), "absent")
	assert.Equal(t, nil, err)
	assert.T(t, found == nil)
	found, err = repo.FindTable(context.Background(), "empty")
	assert.Equal(t, nil, err)
	assert.T(t, found != nil)
	assert.Equal(t, 0, len(found))
	_, err = repo.FindTable(context.Background(), "broken")
	assert.Equal(t, ErrCodeDbFail, err.Code())
	assert.Equal(t, nil, mock.ExpectationsWereMet())
}

func TestSQLRepository_Executions(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	repo := NewSQLRepository(db)

	e := newJobExecution("run1", "E0_PSF3_3FGL_00")
	e.start()
	e.finish(NewBatchError(ErrCodeEntityProcessing, "add entity src"))
	mock.ExpectExec(regexp.QuoteMeta("insert into srcbatch_job_execution(")).
		WithArgs("run1", "E0_PSF3_3FGL_00", "FAILED", "", int64(0), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	assert.Equal(t, nil, repo.SaveExecutions(context.Background(), e))

	now := time.Now()
	cols := []string{"job_key", "status", "output_path", "entity_count", "create_time", "start_time", "end_time", "fail_error", "compress_error", "last_updated"}
	mock.ExpectQuery(regexp.QuoteMeta("from srcbatch_job_execution where run_name=? order by execution_id")).WithArgs("run1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("E0_PSF3_3FGL_00", "FAILED", "", int64(0), now, now, now, "boom", nil, now).
			AddRow("E0_PSF3_3FGL_00", "COMPLETED", "o0.fits.gz", int64(500), now, now, now, nil, "no space", now).
			AddRow("E0_PSF3_3FGL_01", "STARTED", "", int64(3), now, now, nil, nil, nil, now))
	executions, err := repo.FindExecutions(context.Background(), "run1")
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, len(executions))
	e0 := executions["E0_PSF3_3FGL_00"]
	assert.Equal(t, status.COMPLETED, e0.Status)
	assert.Equal(t, int64(500), e0.EntityCount)
	assert.Equal(t, nil, e0.FailError)
	assert.Equal(t, "no space", e0.CompressError.Error())
	assert.T(t, executions["E0_PSF3_3FGL_01"].EndTime.IsZero())
	assert.Equal(t, nil, mock.ExpectationsWereMet())

	mock.ExpectQuery("select").WillReturnError(errors.New("gone"))
	_, err = repo.FindExecutions(context.Background(), "run1")
	assert.Equal(t, ErrCodeDbFail, err.Code())
}
