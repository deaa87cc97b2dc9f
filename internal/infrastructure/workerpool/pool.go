package workerpool

import (
	"fmt"
	"log/slog"

	"github.com/panjf2000/ants/v2"
)

// Pool is a bounded goroutine pool shared by query and offer fan-out.
// Submit never blocks: a saturated pool rejects the task so callers can run
// it inline.
type Pool struct {
	pool *ants.Pool
}

func New(size int) (*Pool, error) {
	if size <= 0 {
		size = 8
	}
	pool, err := ants.NewPool(
		size,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(recovered any) {
			slog.Error("worker_task_panic", "panic", fmt.Sprint(recovered))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Pool{pool: pool}, nil
}

func (p *Pool) Submit(task func()) error {
	if err := p.pool.Submit(task); err != nil {
		return fmt.Errorf("submit task: %w", err)
	}
	return nil
}

func (p *Pool) Release() {
	p.pool.Release()
}
