package evcore

import (
	"context"
	"errors"
	"sync"

	"github.com/open-control-systems/ping-monitor/components/ping"
)

// FanoutPublisher delivers each event to multiple publishers.
type FanoutPublisher struct {
	mu         sync.RWMutex
	publishers []ping.Publisher
}

// Add adds the publisher to be used for event delivery.
func (p *FanoutPublisher) Add(publisher ping.Publisher) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.publishers = append(p.publishers, publisher)
}

// Len returns the number of registered publishers.
func (p *FanoutPublisher) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.publishers)
}

// Publish delivers the event to every publisher.
//
// Remarks:
//   - A failed publisher doesn't prevent delivery to the others, all errors are joined.
func (p *FanoutPublisher) Publish(ctx context.Context, event ping.Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var errs []error

	for _, publisher := range p.publishers {
		if err := publisher.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
