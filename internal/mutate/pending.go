package mutate

import "context"

// Pending is the deferred half of an optimistic mutation: the local change is
// already applied when a Pending is handed out, and the remote call plus its
// reconciliation or rollback are still to come.
//
// A nil *Pending means the operation was entirely local (or a no-op) and
// there is nothing to run.
type Pending struct {
	// Action names the mutation for logs and status lines ("rename lesson").
	Action string

	run func(ctx context.Context) Result
}

// Run executes the remote call and may be called off the event loop; it must
// not touch the cache or UI state. The returned Result must be resolved on
// the goroutine that owns them.
func (p *Pending) Run(ctx context.Context) Result {
	if p == nil || p.run == nil {
		return Result{}
	}
	res := p.run(ctx)
	res.Action = p.Action
	return res
}

// Result is the outcome of a Pending's remote call.
type Result struct {
	Action string

	err     error
	resolve func() error
}

// Failed reports whether the remote call returned an error. Resolve still has
// to run either way.
func (r Result) Failed() bool { return r.err != nil }

// Resolve applies the outcome: id reconciliation on success, revision-checked
// rollback on failure. It must run on the goroutine that owns the cache and
// UI state. The returned error is the user-visible failure, nil when the
// mutation stuck.
func (r Result) Resolve() error {
	if r.resolve == nil {
		return r.err
	}
	return r.resolve()
}
