package publisher

import (
	"context"
	"errors"

	"github.com/retaildemo/feedsync/pkg/contracts"
	"github.com/retaildemo/feedsync/pkg/models"
)

// Fanout forwards every message to each of its publishers. A failing
// publisher does not stop delivery to the rest.
type Fanout []contracts.Publisher

var _ contracts.Publisher = Fanout(nil)

// NewFanout drops nil publishers
func NewFanout(pubs ...contracts.Publisher) Fanout {
	out := make(Fanout, 0, len(pubs))
	for _, p := range pubs {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (f Fanout) PublishCycle(ctx context.Context, report models.CycleReport) error {
	var errs []error
	for _, p := range f {
		if err := p.PublishCycle(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) PublishResult(ctx context.Context, result models.GameResult) error {
	var errs []error
	for _, p := range f {
		if err := p.PublishResult(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
