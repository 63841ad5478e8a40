package announceservice

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Black-And-White-Club/award-rotation/app/eventbus"
	rotationdomain "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/domain"
	"github.com/Black-And-White-Club/award-rotation/app/shared/tenantctx"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// Bus is the subset of the event bus the publisher needs.
type Bus interface {
	Publish(ctx context.Context, topic string, msg *message.Message) error
}

// BusPublisher turns committed award notices into domain events.
type BusPublisher struct {
	bus Bus
}

func NewBusPublisher(bus Bus) *BusPublisher {
	return &BusPublisher{bus: bus}
}

// Publish emits notice on its topic.
func (p *BusPublisher) Publish(ctx context.Context, notice rotationdomain.AwardNotice) error {
	if notice.Topic == "" {
		return fmt.Errorf("award notice has no topic")
	}
	payload, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("marshal award notice: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set(eventbus.TenantMetadataKey, notice.TenantID)
	if id := tenantctx.CorrelationID(ctx); id != "" {
		msg.Metadata.Set(eventbus.CorrelationMetadataKey, id)
	}
	return p.bus.Publish(ctx, notice.Topic, msg)
}
