// Package dispatch moves command invocations off the transport and UI
// goroutines onto a bounded pool of workers.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/vk/deskshell/internal/ctxlog"
	"golang.org/x/sync/errgroup"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("dispatcher is closed")

// Invoker is the dispatch target, normally a *registry.Registry.
type Invoker interface {
	Invoke(ctx context.Context, name string, args []byte) (json.RawMessage, error)
}

// Request is one UI-initiated invocation.
type Request struct {
	// ID correlates the reply with the request. Generated when empty.
	ID string
	// Caller identifies the issuing connection or window, for logs.
	Caller  string
	Command string
	Args    []byte
}

// Response is the outcome of a Request; exactly one of Value and Err is set.
type Response struct {
	ID    string
	Value json.RawMessage
	Err   error
}

// ReplyFunc receives the Response on a worker goroutine.
type ReplyFunc func(Response)

type job struct {
	ctx   context.Context
	req   Request
	reply ReplyFunc
}

// Dispatcher runs invocations on a fixed set of workers fed by a FIFO
// queue. Jobs leave the queue in submission order; they may finish in any
// order.
type Dispatcher struct {
	inv   Invoker
	jobs  chan job
	group *errgroup.Group

	mu     sync.RWMutex
	closed bool
}

// New starts a dispatcher with the given number of workers and queue
// capacity. The context supplies the logger for the workers.
func New(ctx context.Context, inv Invoker, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	d := &Dispatcher{
		inv:   inv,
		jobs:  make(chan job, queueSize),
		group: &errgroup.Group{},
	}
	for i := 0; i < workers; i++ {
		workerID := i
		d.group.Go(func() error {
			d.worker(ctx, workerID)
			return nil
		})
	}
	ctxlog.FromContext(ctx).Debug("Dispatcher started.", "workers", workers, "queue_size", queueSize)
	return d
}

// Submit enqueues req and returns once it is queued. reply is called exactly
// once, from a worker, when the invocation completes. Submit blocks while the
// queue is full, until ctx is done.
func (d *Dispatcher) Submit(ctx context.Context, req Request, reply ReplyFunc) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	select {
	case d.jobs <- job{ctx: ctx, req: req, reply: reply}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do submits req and waits for its response.
func (d *Dispatcher) Do(ctx context.Context, req Request) (Response, error) {
	done := make(chan Response, 1)
	if err := d.Submit(ctx, req, func(resp Response) { done <- resp }); err != nil {
		return Response{}, err
	}
	select {
	case resp := <-done:
		return resp, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// Close stops accepting requests, lets the workers drain the queue, and
// waits for them to exit.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()
	return d.group.Wait()
}
