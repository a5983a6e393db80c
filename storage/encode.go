package storage

import (
	"github.com/bytedance/sonic"

	"order-events/domain"
)

func encodeEvent(ev domain.Event) ([]byte, error) {
	return sonic.Marshal(ev)
}

func decodeEvent(data []byte) (domain.Event, error) {
	var ev domain.Event
	err := sonic.Unmarshal(data, &ev)
	return ev, err
}
