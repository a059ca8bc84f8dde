package bus

import (
	"context"
	"encoding/json"

	"table-service/internal/common/logger"
	"table-service/internal/common/mq"
	"table-service/internal/domain"
)

// NotifyBus carries one-shot cues on its own fanout exchange, independent of
// the sync bus. There is no ordering guarantee between the two buses.
type NotifyBus struct {
	mq     *mq.Client
	origin string
	lg     *logger.Logger
}

func NewNotifyBus(client *mq.Client, origin string, lg *logger.Logger) *NotifyBus {
	return &NotifyBus{mq: client, origin: origin, lg: lg}
}

func (b *NotifyBus) PublishNotify(ctx context.Context, msg domain.NotifyMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.mq.Publish(ctx, mq.NotifyExchange, b.origin, body)
}

// Subscribe invokes handler for every foreign cue. Cues drive transient
// effects only; state never flows through this bus.
func (b *NotifyBus) Subscribe(ctx context.Context, handler func(domain.NotifyMessage)) error {
	msgs, err := b.mq.SubscribeFanout(mq.NotifyExchange, b.origin+".notify")
	if err != nil {
		return err
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					return
				}
				if origin, _ := d.Headers[mq.OriginHeader].(string); origin == b.origin {
					continue
				}
				var msg domain.NotifyMessage
				if err := json.Unmarshal(d.Body, &msg); err != nil {
					b.lg.Error("notify_decode_failed", err, nil)
					continue
				}
				handler(msg)
			}
		}
	}()
	return nil
}
