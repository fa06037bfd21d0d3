// Package channel implements the transports that carry conversations:
// WhatsApp through a Baileys bridge, and a built-in web chat. Adapters
// produce inbound events and deliver replies; everything between those two
// points belongs to the agent.
package channel

import (
	"context"
	"fmt"

	"supportagent/model"
)

// Inbound is one raw event from a transport, already reduced to the fields
// the agent cares about. Voice payloads carry audio bytes that must be
// transcribed before the text reaches the agent.
type Inbound struct {
	Identity   model.Identity
	SenderName string
	Text       string
	Voice      []byte // set instead of Text for voice messages
	MimeHint   string
}

// IsVoice reports whether the event carries an audio payload.
func (in Inbound) IsVoice() bool {
	return len(in.Voice) > 0
}

// Adapter is the contract every transport implements.
//
// Connect establishes the transport session. Listen returns a channel of
// inbound events that closes when the session drops; callers reconnect and
// listen again. Send delivers one reply and fails with DeliveryError when
// the session is down. Undelivered replies are not queued.
type Adapter interface {
	Name() string
	Connect(ctx context.Context) error
	Listen(ctx context.Context) (<-chan Inbound, error)
	Send(ctx context.Context, identity model.Identity, text string) error
	Close() error
}

// DeliveryError reports a reply that could not be handed to the transport.
type DeliveryError struct {
	Channel string
	Cause   error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to deliver on %s: %v", e.Channel, e.Cause)
}

func (e *DeliveryError) Unwrap() error {
	return e.Cause
}
