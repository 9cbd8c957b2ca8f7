package event

import (
	"context"

	"golang.org/x/sync/errgroup"

	"timelessmusic/entity"
)

// NotifyBatch processes a whole delivery batch. A failing message never
// stops the others; the outcomes are returned in input order.
func (h Handler) NotifyBatch(ctx context.Context, envelopes []entity.Envelope) []entity.Outcome {
	outcomes := make([]entity.Outcome, len(envelopes))

	var g errgroup.Group
	g.SetLimit(h.config.BatchConcurrency)

	for i, envelope := range envelopes {
		i, envelope := i, envelope
		g.Go(func() error {
			outcomes[i] = h.Notify(ctx, envelope)
			return nil
		})
	}

	_ = g.Wait()

	return outcomes
}
