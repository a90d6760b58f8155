package events

import (
	"context"

	"github.com/saransh1220/notification-service/internal/modules/notification/domain"
	"golang.org/x/sync/errgroup"
)

// FanOut publishes to every sink concurrently and returns the first error.
// A failing sink does not stop the others.
type FanOut struct {
	sinks []domain.EventSink
}

var _ domain.EventSink = (*FanOut)(nil)

func NewFanOut(sinks ...domain.EventSink) *FanOut {
	live := make([]domain.EventSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	return &FanOut{sinks: live}
}

func (f *FanOut) Len() int { return len(f.sinks) }

func (f *FanOut) Publish(ctx context.Context, topic string, event domain.Event) error {
	var g errgroup.Group
	for _, sink := range f.sinks {
		g.Go(func() error {
			return sink.Publish(ctx, topic, event)
		})
	}
	return g.Wait()
}
