package bus

import (
	"context"
	"encoding/json"

	"table-service/internal/common/logger"
	"table-service/internal/common/mq"
	"table-service/internal/domain"
)

// SyncBus carries whole-map snapshots between clients over the sync fanout
// exchange. origin identifies this client so it can skip its own echoes.
type SyncBus struct {
	mq     *mq.Client
	origin string
	lg     *logger.Logger
}

func NewSyncBus(client *mq.Client, origin string, lg *logger.Logger) *SyncBus {
	return &SyncBus{mq: client, origin: origin, lg: lg}
}

func (b *SyncBus) PublishSync(ctx context.Context, msg domain.SyncMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.mq.Publish(ctx, mq.SyncExchange, b.origin, body)
}

// Subscribe starts a consumer goroutine that invokes handler for every
// foreign snapshot until ctx is cancelled. Undecodable bodies are logged
// and dropped; the next snapshot supersedes whatever was missed.
func (b *SyncBus) Subscribe(ctx context.Context, handler func(domain.SyncMessage)) error {
	msgs, err := b.mq.SubscribeFanout(mq.SyncExchange, b.origin+".sync")
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
				var msg domain.SyncMessage
				if err := json.Unmarshal(d.Body, &msg); err != nil {
					b.lg.Error("sync_decode_failed", err, nil)
					continue
				}
				handler(msg)
			}
		}
	}()
	return nil
}
