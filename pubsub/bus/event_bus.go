package bus

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"

	"timelessmusic/entity"
)

func NewEventBus(pub message.Publisher, purchasesTopic string) (*cqrs.EventBus, error) {
	return cqrs.NewEventBusWithConfig(pub, cqrs.EventBusConfig{
		GeneratePublishTopic: func(params cqrs.GenerateEventPublishTopicParams) (string, error) {
			switch params.Event.(type) {
			case entity.PurchaseRecord, *entity.PurchaseRecord:
				return purchasesTopic, nil
			default:
				return "", fmt.Errorf("no topic for event %s (%T)", params.EventName, params.Event)
			}
		},
		Marshaler: cqrs.JSONMarshaler{
			GenerateName: cqrs.StructName,
		},
	})
}
