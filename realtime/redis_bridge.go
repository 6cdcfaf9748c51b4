package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/yeremiapane/restaurant-booking/models"
	"github.com/yeremiapane/restaurant-booking/utils"
)

const ChangesChannel = "restaurant:changes"

// RedisBridge fans change-feed entries out to every instance so each hub
// can push to its own clients.
type RedisBridge struct {
	rdb     *redis.Client
	channel string
}

func NewRedisBridge(rdb *redis.Client) *RedisBridge {
	return &RedisBridge{rdb: rdb, channel: ChangesChannel}
}

// Dispatch publishes change to the channel.
func (b *RedisBridge) Dispatch(ctx context.Context, change models.DBChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, payload).Err()
}

// Subscribe returns once the subscription is confirmed, so nothing
// published afterwards is missed.
func (b *RedisBridge) Subscribe(ctx context.Context) (*redis.PubSub, error) {
	ps := b.rdb.Subscribe(ctx, b.channel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, err
	}
	return ps, nil
}

// Serve hands every received change to handle until ctx is done or the
// subscription is closed.
func (b *RedisBridge) Serve(ctx context.Context, ps *redis.PubSub, handle func(context.Context, models.DBChange) error) {
	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			ps.Close()
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var change models.DBChange
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				utils.ErrorLogger.Errorf("Dropping malformed change payload: %v", err)
				continue
			}
			if err := handle(ctx, change); err != nil {
				utils.ErrorLogger.Errorf("Handling change %s/%d failed: %v", change.Entity, change.RecordID, err)
			}
		}
	}
}
