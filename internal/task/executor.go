package task

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Executor performs the work for one job type.
type Executor interface {
	// Type is the job type this executor handles.
	Type() Type

	// FollowUps lists the job types Execute may enqueue.
	FollowUps() []Type

	// Execute runs the job. Any returned error is treated as transient and
	// subject to backoff. Execute must tolerate being called more than once
	// for the same job.
	Execute(ctx context.Context, job *Job, chain Chainer) (Result, error)
}

// Chainer builds follow-up jobs for one executor, refusing types the
// executor did not declare.
type Chainer struct {
	from    Type
	allowed map[Type]bool
}

// FollowUp returns the params for a follow-up job of type t, or
// ErrUndeclaredFollowUp.
func (c Chainer) FollowUp(owner uuid.UUID, t Type, p Payload) (EnqueueParams, error) {
	if !c.allowed[t] {
		return EnqueueParams{}, fmt.Errorf("%w: %s -> %s", ErrUndeclaredFollowUp, c.from, t)
	}
	params := EnqueueParams{Owner: owner, Type: t, Payload: p}
	if err := CheckPayload(t, p); err != nil {
		return EnqueueParams{}, err
	}
	return params, nil
}

// Registry is the dispatch table from job type to executor.
type Registry struct {
	executors map[Type]Executor
	chainers  map[Type]Chainer
}

// NewRegistry builds a registry. Registering two executors for one type, or
// declaring a follow-up of an unknown type, is an error.
func NewRegistry(executors ...Executor) (*Registry, error) {
	r := &Registry{
		executors: make(map[Type]Executor, len(executors)),
		chainers:  make(map[Type]Chainer, len(executors)),
	}
	for _, e := range executors {
		t := e.Type()
		if !t.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
		}
		if _, dup := r.executors[t]; dup {
			return nil, fmt.Errorf("executor for %s registered twice", t)
		}
		allowed := make(map[Type]bool)
		for _, f := range e.FollowUps() {
			if !f.Valid() {
				return nil, fmt.Errorf("%w: %s declares follow-up %q", ErrUnknownType, t, f)
			}
			allowed[f] = true
		}
		r.executors[t] = e
		r.chainers[t] = Chainer{from: t, allowed: allowed}
	}
	return r, nil
}

// Lookup returns the executor for t.
func (r *Registry) Lookup(t Type) (Executor, bool) {
	e, ok := r.executors[t]
	return e, ok
}

// Chainer returns the follow-up builder for executor type t. Types with no
// registered executor get a Chainer that refuses every follow-up.
func (r *Registry) Chainer(t Type) Chainer {
	if c, ok := r.chainers[t]; ok {
		return c
	}
	return Chainer{from: t}
}

// Dispatch runs job through its executor.
func (r *Registry) Dispatch(ctx context.Context, job *Job) (Result, error) {
	e, ok := r.executors[job.Type]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownType, job.Type)
	}
	return e.Execute(ctx, job, r.chainers[job.Type])
}

// Graph returns the declared chaining graph, follow-ups sorted by name.
func (r *Registry) Graph() map[Type][]Type {
	g := make(map[Type][]Type, len(r.executors))
	for t, c := range r.chainers {
		next := make([]Type, 0, len(c.allowed))
		for f := range c.allowed {
			next = append(next, f)
		}
		sort.Slice(next, func(i, j int) bool { return next[i] < next[j] })
		g[t] = next
	}
	return g
}
