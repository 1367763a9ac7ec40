// Package batch runs a list of independent sub-operations under one request
// and aggregates their outcomes.
package batch

import "context"

// Outcome records what happened to one item.
type Outcome[T any] struct {
	Item T
	Err  error
}

// Succeeded reports whether the item's operation returned no error.
func (o Outcome[T]) Succeeded() bool {
	return o.Err == nil
}

// Result aggregates the outcomes of a batch. Items that were never attempted
// have no outcome.
type Result[T any] struct {
	Outcomes []Outcome[T]
}

// Attempted is the number of items the operation was called for.
func (r Result[T]) Attempted() int {
	return len(r.Outcomes)
}

// SuccessCount is the number of attempted items that succeeded.
func (r Result[T]) SuccessCount() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Succeeded() {
			n++
		}
	}
	return n
}

// FailureCount is the number of attempted items that failed.
func (r Result[T]) FailureCount() int {
	return r.Attempted() - r.SuccessCount()
}

// AnySucceeded reports whether at least one item succeeded.
func (r Result[T]) AnySucceeded() bool {
	return r.SuccessCount() > 0
}

// FirstFailure returns the first failed outcome, if any.
func (r Result[T]) FirstFailure() (Outcome[T], bool) {
	for _, o := range r.Outcomes {
		if !o.Succeeded() {
			return o, true
		}
	}
	return Outcome[T]{}, false
}

// RunAll calls fn for every item in order. A failing item is recorded and
// processing continues with the next one.
func RunAll[T any](ctx context.Context, items []T, fn func(context.Context, T) error) Result[T] {
	res := Result[T]{Outcomes: make([]Outcome[T], 0, len(items))}
	for _, item := range items {
		res.Outcomes = append(res.Outcomes, Outcome[T]{Item: item, Err: fn(ctx, item)})
	}
	return res
}

// RunUntilFailure calls fn for items in order and stops after the first
// failure. Items after the failing one are not attempted.
func RunUntilFailure[T any](ctx context.Context, items []T, fn func(context.Context, T) error) Result[T] {
	res := Result[T]{Outcomes: make([]Outcome[T], 0, len(items))}
	for _, item := range items {
		err := fn(ctx, item)
		res.Outcomes = append(res.Outcomes, Outcome[T]{Item: item, Err: err})
		if err != nil {
			break
		}
	}
	return res
}
