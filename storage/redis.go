package storage

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/redis/go-redis/v9"

	"order-events/domain"
)

// ParseRedisOptions accepts either a redis:// URL or the
// "host:port,password=...,ssl=true" form used by Azure Cache for Redis.
func ParseRedisOptions(conn string) *redis.Options {
	opts, err := redis.ParseURL(conn)
	if err == nil {
		return opts
	}
	parts := strings.Split(conn, ",")
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}

// RedisPublisher publishes each event of a batch to a pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Name() string {
	return "redis:" + p.channel
}

// Publish sends the batch in a single pipeline, one message per event.
func (p *RedisPublisher) Publish(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	pipe := p.client.Pipeline()
	for _, ev := range events {
		data, err := encodeEvent(ev)
		if err != nil {
			return err
		}
		pipe.Publish(ctx, p.channel, data)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
