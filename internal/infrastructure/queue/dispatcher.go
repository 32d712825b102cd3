package queue

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vlessbot/provisioner/internal/pkg/metrics"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// ErrStopped is returned for work submitted after the workers have exited.
var ErrStopped = errors.New("dispatcher stopped")

type job struct {
	ctx  context.Context
	fn   func(ctx context.Context) error
	done chan error
}

// Dispatcher routes work to a fixed set of workers using consistent hashing
// on the user id. All work for one user runs on the same worker, so it is
// strictly ordered; different users proceed in parallel across workers.
type Dispatcher struct {
	workers []chan job
	stopped chan struct{}
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan job, numWorkers),
		stopped: make(chan struct{}),
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan job, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled,
// after finishing the job in hand.
func (d *Dispatcher) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for i, ch := range d.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.runWorker(ctx, i, ch)
		}()
	}
	go func() {
		wg.Wait()
		close(d.stopped)
	}()
}

// Do runs fn on the worker that owns userID and returns its error. Once
// queued, fn runs with ctx; if ctx is already done by then, fn is skipped and
// ctx.Err() returned.
func (d *Dispatcher) Do(ctx context.Context, userID int64, fn func(ctx context.Context) error) error {
	j := job{ctx: ctx, fn: fn, done: make(chan error, 1)}
	shard := d.shardIndex(userID)

	select {
	case d.workers[shard] <- j:
		metrics.SerializerQueueDepth.WithLabelValues(strconv.Itoa(shard)).Inc()
	case <-ctx.Done():
		return ctx.Err()
	case <-d.stopped:
		return ErrStopped
	}

	select {
	case err := <-j.done:
		return err
	case <-d.stopped:
		// every worker has exited; a job that ran has already reported
		select {
		case err := <-j.done:
			return err
		default:
			return ErrStopped
		}
	}
}

// shardIndex maps a user id deterministically to a worker index.
func (d *Dispatcher) shardIndex(userID int64) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.FormatInt(userID, 10)))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan job) {
	depth := metrics.SerializerQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-ch:
			depth.Dec()
			j.done <- d.run(id, j)
		}
	}
}

func (d *Dispatcher) run(id int, j job) (err error) {
	if err := j.ctx.Err(); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Int("worker_id", id).Interface("panic", r).Msg("job panicked")
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return j.fn(j.ctx)
}
