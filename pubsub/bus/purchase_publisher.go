package bus

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"timelessmusic/entity"
)

type PurchasePublisher struct {
	eventBus *cqrs.EventBus
}

func NewPurchasePublisher(eventBus *cqrs.EventBus) PurchasePublisher {
	if eventBus == nil {
		panic("missing eventBus")
	}

	return PurchasePublisher{eventBus: eventBus}
}

func (p PurchasePublisher) PublishPurchase(ctx context.Context, record entity.PurchaseRecord) error {
	return p.eventBus.Publish(ctx, record)
}
