package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/NotYourBr0/GTD-backend/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	DefaultChannel = "gtd:rooms"
	roomKeyTTL     = 24 * time.Hour
)

// redisClient is the part of *redis.Client the publisher uses.
type redisClient interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisPublisher fans room lifecycle events out on a pub/sub channel and
// keeps a room:<id> key per live room. Publish never blocks; events are
// written by Run.
type RedisPublisher struct {
	client  redisClient
	channel string
	events  chan domain.RoomEvent
}

func NewRedisPublisher(client redisClient, channel string, buffer int) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{
		client:  client,
		channel: channel,
		events:  make(chan domain.RoomEvent, buffer),
	}
}

func (p *RedisPublisher) Publish(ev domain.RoomEvent) {
	select {
	case p.events <- ev:
	default:
		log.Warn().Str("room", ev.RoomID).Str("type", string(ev.Type)).Msg("room event dropped, publisher backlog full")
	}
}

func (p *RedisPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-p.events:
			if err := p.write(ctx, ev); err != nil {
				log.Warn().Err(err).Str("room", ev.RoomID).Str("type", string(ev.Type)).Msg("failed to publish room event")
			}
		}
	}
}

func roomKey(id string) string {
	return fmt.Sprintf("room:%s", id)
}

func (p *RedisPublisher) write(ctx context.Context, ev domain.RoomEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	switch ev.Type {
	case domain.RoomCreated, domain.RoomUpdated:
		if err := p.client.Set(ctx, roomKey(ev.RoomID), data, roomKeyTTL).Err(); err != nil {
			return err
		}
	case domain.RoomDestroyed:
		if err := p.client.Del(ctx, roomKey(ev.RoomID)).Err(); err != nil {
			return err
		}
	}

	return p.client.Publish(ctx, p.channel, data).Err()
}
