// Package packaging holds the CreateArchive stage. It is the last state of
// the pipeline and currently performs no work.
package packaging

import (
	"context"
	"log/slog"

	"mediatool/internal/logging"
	"mediatool/internal/mediaitem"
	"mediatool/internal/stage"
)

// Name identifies the stage in logs and the journal.
const Name = "create-archive"

// Packager is the reserved CreateArchive stage.
type Packager struct {
	logger *slog.Logger
}

// New constructs the stage handler.
func New(logger *slog.Logger) *Packager {
	return &Packager{logger: logging.NewComponentLogger(logger, "packaging")}
}

// Name implements stage.Handler.
func (p *Packager) Name() string { return Name }

// Execute returns item unchanged.
func (p *Packager) Execute(_ context.Context, item mediaitem.Item) (mediaitem.Item, error) {
	return item, nil
}

// HealthCheck always reports ready.
func (p *Packager) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(Name)
}
