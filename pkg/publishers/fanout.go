package publishers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"
)

// maxParallelPublishes bounds concurrent deliveries of one event.
const maxParallelPublishes = 4

// route pairs a publisher with the outcome statuses it wants. A nil accepts takes everything.
type route struct {
	Publisher
	accepts func(status string) bool
}

// Fanout delivers each outcome event to every publisher whose target accepts it.
type Fanout struct {
	routes []route
}

// NewFanout builds a fanout that sends every outcome to each of pubs.
func NewFanout(pubs []Publisher) *Fanout {
	f := &Fanout{}
	for _, p := range pubs {
		if p != nil {
			f.routes = append(f.routes, route{Publisher: p})
		}
	}
	return f
}

// Publish delivers evt and returns how many publishers accepted it without error.
// Publishers filtered out by outcome are neither counted nor reported.
func (f *Fanout) Publish(ctx context.Context, evt OutcomeEvent) (int, error) {
	if f == nil || len(f.routes) == 0 {
		return 0, nil
	}

	status := evt.Status()
	var (
		mu        sync.Mutex
		delivered int
		errs      []error
		g         errgroup.Group
	)
	g.SetLimit(maxParallelPublishes)
	for _, r := range f.routes {
		if r.accepts != nil && !r.accepts(status) {
			continue
		}
		g.Go(func() error {
			err := r.Publish(ctx, evt)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s publisher[%s]: %w", r.Type(), r.ID(), err))
			} else {
				delivered++
			}
			return nil
		})
	}
	_ = g.Wait()
	return delivered, errors.Join(errs...)
}

// Size returns the number of publishers.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.routes)
}

// Close releases publishers that hold client connections.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, r := range f.routes {
		if c, ok := r.Publisher.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s publisher[%s]: %w", r.Type(), r.ID(), err))
			}
		}
	}
	return errors.Join(errs...)
}
