package workflow

import (
	"context"
	"fmt"
	"strings"

	"mediatool/internal/stage"
)

// Action selects which stages a run executes.
type Action string

const (
	ActionConvert Action = "convert"
	ActionExtract Action = "extract"
	ActionRename  Action = "rename"
	ActionMerge   Action = "merge"
)

// ParseAction validates a CLI action token.
func ParseAction(value string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(value))); a {
	case ActionConvert, ActionExtract, ActionRename, ActionMerge:
		return a, nil
	}
	return "", fmt.Errorf("unknown action %q", value)
}

// StageSet bundles the concrete stage handlers the pipeline orchestrates.
type StageSet struct {
	Unpacker       stage.Handler
	Organizer      stage.Handler
	MediaExtractor stage.Handler
	Packager       stage.Handler
	Merger         stage.Handler
}

// For returns the ordered stages for action.
func (s StageSet) For(action Action) ([]stage.Handler, error) {
	var handlers []stage.Handler
	switch action {
	case ActionConvert:
		handlers = []stage.Handler{s.Unpacker, s.Organizer, s.MediaExtractor, s.Packager}
	case ActionExtract:
		handlers = []stage.Handler{s.Unpacker}
	case ActionRename:
		handlers = []stage.Handler{s.Organizer}
	case ActionMerge:
		handlers = []stage.Handler{s.Merger}
	default:
		return nil, fmt.Errorf("unknown action %q", action)
	}
	for i, h := range handlers {
		if h == nil {
			return nil, fmt.Errorf("%s: stage %d not configured", action, i+1)
		}
	}
	return handlers, nil
}

// Health collects HealthCheck results from every configured stage.
func (s StageSet) Health(ctx context.Context) []stage.Health {
	var out []stage.Health
	for _, h := range []stage.Handler{s.Unpacker, s.Organizer, s.MediaExtractor, s.Packager, s.Merger} {
		if h == nil {
			continue
		}
		out = append(out, h.HealthCheck(ctx))
	}
	return out
}
