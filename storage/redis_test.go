package storage

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisPublisherPublishesBatchInOrder(t *testing.T) {
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer m.Close()
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	ctx := context.Background()

	pubsub := rc.Subscribe(ctx, "orders")
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	ch := pubsub.Channel()

	events := sampleEvents(4)
	p := NewRedisPublisher(rc, "orders")
	if err := p.Publish(ctx, events); err != nil {
		t.Fatalf("publish: %v", err)
	}

	for i := range events {
		select {
		case msg := <-ch:
			ev, err := decodeEvent([]byte(msg.Payload))
			if err != nil {
				t.Fatalf("decode %d: %v", i, err)
			}
			if ev != events[i] {
				t.Fatalf("message %d: expected %#v, got %#v", i, events[i], ev)
			}
		case <-time.After(time.Second):
			t.Fatalf("message %d not received", i)
		}
	}
}

func TestRedisPublisherEmptyBatchIsNoop(t *testing.T) {
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	m.Close()

	p := NewRedisPublisher(rc, "orders")
	if err := p.Publish(context.Background(), nil); err != nil {
		t.Fatalf("expected no error for empty batch, got %v", err)
	}
}

func TestParseRedisOptions(t *testing.T) {
	opts := ParseRedisOptions("redis://:secret@localhost:6380/2")
	if opts.Addr != "localhost:6380" || opts.Password != "secret" || opts.DB != 2 {
		t.Fatalf("unexpected url options: %+v", opts)
	}

	opts = ParseRedisOptions("cache.example.net:6380,password=pw,ssl=True,abortConnect=False")
	if opts.Addr != "cache.example.net:6380" {
		t.Fatalf("unexpected addr %s", opts.Addr)
	}
	if opts.Password != "pw" {
		t.Fatalf("unexpected password %s", opts.Password)
	}
	if opts.TLSConfig == nil {
		t.Fatal("expected TLS config")
	}
}
