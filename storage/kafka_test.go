package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	calls  int
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisherKeysByOrderID(t *testing.T) {
	fw := &fakeWriter{}
	p := &KafkaPublisher{topic: "orders", writer: fw}
	events := sampleEvents(4)

	if err := p.Publish(context.Background(), events); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if fw.calls != 1 {
		t.Fatalf("expected single produce call, got %d", fw.calls)
	}
	if len(fw.msgs) != len(events) {
		t.Fatalf("expected %d messages, got %d", len(events), len(fw.msgs))
	}
	for i, msg := range fw.msgs {
		if string(msg.Key) != events[i].Data.OrderID {
			t.Fatalf("message %d: expected key %s, got %s", i, events[i].Data.OrderID, msg.Key)
		}
		if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != events[i].Type {
			t.Fatalf("message %d: unexpected headers %#v", i, msg.Headers)
		}
		ev, err := decodeEvent(msg.Value)
		if err != nil {
			t.Fatalf("decode %d: %v", i, err)
		}
		if ev != events[i] {
			t.Fatalf("message %d: expected %#v, got %#v", i, events[i], ev)
		}
	}

	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !fw.closed {
		t.Fatal("expected writer to be closed")
	}
}

func TestKafkaPublisherPropagatesErrors(t *testing.T) {
	fw := &fakeWriter{err: errors.New("broker down")}
	p := &KafkaPublisher{topic: "orders", writer: fw}
	if err := p.Publish(context.Background(), sampleEvents(2)); err == nil {
		t.Fatal("expected error")
	}
}

func TestKafkaPublisherSkipsEmptyBatch(t *testing.T) {
	fw := &fakeWriter{}
	p := &KafkaPublisher{topic: "orders", writer: fw}
	if err := p.Publish(context.Background(), nil); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if fw.calls != 0 {
		t.Fatalf("expected no produce calls, got %d", fw.calls)
	}
}
