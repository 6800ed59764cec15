package stage

import (
	"context"

	"mediatool/internal/mediaitem"
)

// Handler describes the contract the pipeline needs from each stage.
//
// Execute receives the item by value and returns the next state. Item-level
// problems are recorded on the returned item; a non-nil error aborts the run.
// Handlers must return the item unchanged when it has already failed.
type Handler interface {
	Name() string
	Execute(context.Context, mediaitem.Item) (mediaitem.Item, error)
	HealthCheck(context.Context) Health
}

// Func adapts a plain function into a Handler that is always healthy.
type Func struct {
	StageName string
	Fn        func(context.Context, mediaitem.Item) (mediaitem.Item, error)
}

// Name implements Handler.
func (f Func) Name() string { return f.StageName }

// Execute implements Handler.
func (f Func) Execute(ctx context.Context, item mediaitem.Item) (mediaitem.Item, error) {
	if f.Fn == nil || item.Failed() {
		return item, nil
	}
	return f.Fn(ctx, item)
}

// HealthCheck implements Handler.
func (f Func) HealthCheck(context.Context) Health { return Healthy(f.StageName) }

// Health is a stage's readiness as shown by `mediatool doctor`.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy reports name as ready.
func Healthy(name string) Health { return Health{Name: name, Ready: true} }

// Unhealthy reports name as not ready because of detail.
func Unhealthy(name, detail string) Health { return Health{Name: name, Detail: detail} }
