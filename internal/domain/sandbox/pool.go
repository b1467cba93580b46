package sandbox

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/PatternLab/backend/internal/infrastructure/logging"
)

// Pool keeps a few fresh hosts warm. Hosts are single-use: Acquire hands
// out a realm that has never run anything, and a discarded host is never
// returned to the pool.
type Pool struct {
	config Config
	log    *logging.Logger
	ready  chan *Host
	refill chan struct{}
	size   int

	mu     sync.RWMutex
	closed bool
	stop   chan struct{}
	wg     sync.WaitGroup

	created  atomic.Int64
	acquired atomic.Int64
	cold     atomic.Int64

	onAvailable func(int)
}

// PoolOption configures a Pool
type PoolOption func(*Pool)

// WithAvailableHook reports the warm host count whenever it changes.
// fn is called from pool goroutines and must not block.
func WithAvailableHook(fn func(available int)) PoolOption {
	return func(p *Pool) { p.onAvailable = fn }
}

// PoolStats reports pool counters
type PoolStats struct {
	Size      int   `json:"size"`
	Available int   `json:"available"`
	Created   int64 `json:"created"`
	Acquired  int64 `json:"acquired"`
	ColdStart int64 `json:"cold_starts"`
	Closed    bool  `json:"closed"`
}

// NewPool creates a pool and starts prewarming size hosts
func NewPool(config Config, size int, log *logging.Logger, opts ...PoolOption) *Pool {
	if size <= 0 {
		size = 4
	}
	if log == nil {
		log = logging.Nop()
	}
	p := &Pool{
		config: config,
		log:    log.Named("sandbox-pool"),
		ready:  make(chan *Host, size),
		refill: make(chan struct{}, 1),
		size:   size,
		stop:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.wg.Add(1)
	go p.fill()
	p.kick()
	return p
}

func (p *Pool) kick() {
	select {
	case p.refill <- struct{}{}:
	default:
	}
}

func (p *Pool) fill() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			return
		case <-p.refill:
		}
		for len(p.ready) < p.size {
			h, err := p.create()
			if err != nil {
				p.log.Error("Failed to prewarm host", zap.Error(err))
				break
			}
			select {
			case p.ready <- h:
				p.report()
			case <-p.stop:
				h.Discard()
				return
			}
		}
	}
}

func (p *Pool) report() {
	if p.onAvailable != nil {
		p.onAvailable(len(p.ready))
	}
}

func (p *Pool) create() (*Host, error) {
	h, err := NewHost(p.config, p.log)
	if err != nil {
		return nil, err
	}
	p.created.Add(1)
	return h, nil
}

// Acquire returns a fresh host, creating one inline if none is warm
func (p *Pool) Acquire(ctx context.Context) (*Host, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrPoolClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	defer p.kick()
	select {
	case h := <-p.ready:
		p.acquired.Add(1)
		p.report()
		return h, nil
	default:
	}

	h, err := p.create()
	if err != nil {
		return nil, err
	}
	p.acquired.Add(1)
	p.cold.Add(1)
	return h, nil
}

// Close stops prewarming and discards every idle host
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.stop)
	p.mu.Unlock()

	p.wg.Wait()
	defer p.report()
	for {
		select {
		case h := <-p.ready:
			h.Discard()
		default:
			return nil
		}
	}
}

// Stats returns pool statistics
func (p *Pool) Stats() PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return PoolStats{
		Size:      p.size,
		Available: len(p.ready),
		Created:   p.created.Load(),
		Acquired:  p.acquired.Load(),
		ColdStart: p.cold.Load(),
		Closed:    p.closed,
	}
}
