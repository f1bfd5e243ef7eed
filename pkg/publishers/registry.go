package publishers

import (
	"context"
	"fmt"
	"strings"
)

// Builder creates a Publisher for a target.
type Builder func(ctx context.Context, t Target, log Logger) (Publisher, error)

// Builders maps publisher types to their constructors.
type Builders map[string]Builder

// DefaultBuilders covers every supported publisher type.
func DefaultBuilders() Builders {
	return Builders{
		TypeHTTP:   newHTTPPublisher,
		TypeSQS:    newSQSPublisher,
		TypeSNS:    newSNSPublisher,
		TypePubSub: newPubSubPublisher,
	}
}

// PublisherFor builds the publisher for t.
func (b Builders) PublisherFor(ctx context.Context, t Target, log Logger) (Publisher, error) {
	if t.Type == "" {
		return nil, fmt.Errorf("publisher %q has no type configured", t.ID)
	}
	build := b[strings.ToLower(t.Type)]
	if build == nil {
		return nil, fmt.Errorf("no publisher registered for type %q", t.Type)
	}
	return build(ctx, t, log)
}

// Build constructs a fanout over targets. Publishers built before a failure are closed.
func Build(ctx context.Context, b Builders, targets Targets, log Logger) (*Fanout, error) {
	f := &Fanout{}
	for _, t := range targets {
		pub, err := b.PublisherFor(ctx, t, log)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("publisher %q: %w", t.ID, err)
		}
		f.routes = append(f.routes, route{Publisher: pub, accepts: t.Accepts})
	}
	return f, nil
}

// FromFile builds a fanout over the enabled targets declared in path.
// An empty path yields an empty fanout.
func FromFile(ctx context.Context, path string, log Logger) (*Fanout, error) {
	log = ensureLogger(log)
	if strings.TrimSpace(path) == "" {
		return NewFanout(nil), nil
	}

	targets, err := LoadTargets(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers file: %w", err)
	}
	enabled := targets.Enabled()
	f, err := Build(ctx, DefaultBuilders(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]any, 0, len(enabled))
	for _, t := range enabled {
		summaries = append(summaries, map[string]any{"id": t.ID, "type": t.Type, "outcomes": t.Outcomes})
	}
	log.InfoObj("outcome publishers loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return f, nil
}
