package messaging

import (
	"context"
)

// Broker publishes and consumes events on named channels. The dispatch
// pipeline publishes best-effort; a broker failure never fails a dispatch.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Message is the envelope written to a channel.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
