package srcbatch

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/panjf2000/ants/v2"
)

//taskPool runs jobs on a bounded ants goroutine pool
type taskPool struct {
	pool *ants.Pool
}

func newTaskPool(size int) (*taskPool, error) {
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, err
	}
	return &taskPool{
		pool: pool,
	}, nil
}

// Future get result in future
type Future interface {
	Get() (interface{}, error)
}

type futureImpl struct {
	ch <-chan taskResult
}

type taskResult struct {
	val interface{}
	err error
}

func (f *futureImpl) Get() (interface{}, error) {
	result := <-f.ch
	return result.val, result.err
}

//Submit schedules task, a panic in task is recovered and returned as the error of the future
func (p *taskPool) Submit(ctx context.Context, task func() (interface{}, error)) Future {
	result := make(chan taskResult, 1)
	err := p.pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(ctx, "panic in task, err:%v, stack:%v", r, string(debug.Stack()))
				result <- taskResult{err: fmt.Errorf("panic:%v", r)}
			}
		}()
		val, err := task()
		result <- taskResult{val: val, err: err}
	})
	if err != nil {
		result <- taskResult{err: err}
	}
	return &futureImpl{
		ch: result,
	}
}

//Running number of tasks currently executing
func (p *taskPool) Running() int {
	return p.pool.Running()
}

func (p *taskPool) Release() {
	p.pool.Release()
}
