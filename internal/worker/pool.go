package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var ErrStopped = errors.New("worker pool stopped")

// Pool runs jobs in per-key lanes: jobs sharing a key run one at a time in the
// order Do was called, jobs with different keys run independently.
type Pool struct {
	logger *zap.Logger

	mu      sync.Mutex
	lanes   map[string]*lane
	stopped bool
	wg      sync.WaitGroup
}

type lane struct {
	tail chan struct{} // closed when the last queued job finishes
	refs int
}

func NewPool(logger *zap.Logger) *Pool {
	return &Pool{
		logger: logger,
		lanes:  make(map[string]*lane),
	}
}

// Do waits for every earlier job on key, then runs fn. If ctx ends while
// waiting, fn is skipped and ctx.Err() is returned; later jobs still wait for
// the earlier ones.
func (p *Pool) Do(ctx context.Context, key string, fn func(context.Context) error) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return ErrStopped
	}
	l, ok := p.lanes[key]
	if !ok {
		l = &lane{}
		p.lanes[key] = l
	}
	prev := l.tail
	done := make(chan struct{})
	l.tail = done
	l.refs++
	p.wg.Add(1)
	p.mu.Unlock()

	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			// Держим очередь: следующий job стартует только после prev
			go func() {
				<-prev
				p.release(key, l, done)
			}()
			p.logger.Debug("job abandoned while queued", zap.String("key", key), zap.Error(ctx.Err()))
			return ctx.Err()
		}
	}
	defer p.release(key, l, done)

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

func (p *Pool) release(key string, l *lane, done chan struct{}) {
	close(done)

	p.mu.Lock()
	l.refs--
	if l.refs == 0 && p.lanes[key] == l {
		delete(p.lanes, key)
	}
	p.mu.Unlock()
	p.wg.Done()
}

// Pending reports the number of queued or running jobs for key.
func (p *Pool) Pending(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.lanes[key]; ok {
		return l.refs
	}
	return 0
}

// Stop rejects new jobs and waits for queued and running ones to finish.
func (p *Pool) Stop() {
	p.logger.Info("Stopping worker pool...")
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
	p.wg.Wait()
	p.logger.Info("Worker pool stopped")
}
