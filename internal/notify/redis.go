package notify

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisPublisher puts alerts on a pub/sub channel so every API instance can
// relay them to its own websocket clients.
type RedisPublisher struct {
	Client  *redis.Client
	Channel string
}

func NewRedisPublisher(opt *redis.Options, channel string) *RedisPublisher {
	return &RedisPublisher{Client: redis.NewClient(opt), Channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, alert Alert) error {
	if p == nil || p.Client == nil {
		return nil
	}
	payload, err := Encode(alert)
	if err != nil {
		return err
	}
	return p.Client.Publish(ctx, p.Channel, payload).Err()
}

func (p *RedisPublisher) Close() error {
	if p == nil || p.Client == nil {
		return nil
	}
	return p.Client.Close()
}

// Relay subscribes to the channel and republishes every alert into the hub
// until ctx is done.
func (p *RedisPublisher) Relay(ctx context.Context, hub *Hub, logger *zap.Logger) error {
	if p == nil || p.Client == nil || hub == nil {
		return nil
	}
	sub := p.Client.Subscribe(ctx, p.Channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return errors.New("redis subscription closed")
			}
			alert, err := Decode([]byte(msg.Payload))
			if err != nil {
				if logger != nil {
					logger.Warn("bad breach alert payload", zap.String("channel", msg.Channel), zap.Error(err))
				}
				continue
			}
			_ = hub.Publish(ctx, alert)
		}
	}
}

func Encode(alert Alert) ([]byte, error) {
	return json.Marshal(alert)
}

func Decode(raw []byte) (Alert, error) {
	var alert Alert
	err := json.Unmarshal(raw, &alert)
	return alert, err
}
