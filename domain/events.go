package domain

import "time"

const (
	OrderPlaced    = "OrderPlaced"
	OrderDelivered = "OrderDelivered"
	OrderCancelled = "OrderCancelled"
)

// TimestampLayout is the wire format of OrderData.TimestampUTC.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// cancelEvery makes one order in five end in cancellation.
const cancelEvery = 5

// Event is a single order lifecycle event as written to the output files.
type Event struct {
	Type string    `json:"Type"`
	Data OrderData `json:"Data"`
}

// OrderData is the payload shared by both events of an order.
type OrderData struct {
	OrderID      string `json:"OrderId"`
	TimestampUTC string `json:"TimestampUtc"`
}

// NewPair builds the placed and terminal events for the order at index i.
// Both events carry the same order id and timestamp.
func NewPair(i int, orderID string, at time.Time) [2]Event {
	data := OrderData{
		OrderID:      orderID,
		TimestampUTC: at.UTC().Format(TimestampLayout),
	}
	return [2]Event{
		{Type: OrderPlaced, Data: data},
		{Type: TerminalType(i), Data: data},
	}
}

// TerminalType reports how the order at index i ends.
func TerminalType(i int) string {
	if i%cancelEvery == 0 {
		return OrderCancelled
	}
	return OrderDelivered
}

// IsTerminal reports whether t closes an order's lifecycle.
func IsTerminal(t string) bool {
	return t == OrderDelivered || t == OrderCancelled
}
