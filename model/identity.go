package model

import "fmt"

// Identity uniquely identifies a conversation partner on one channel.
// Identities are never merged across channels: the same phone number on
// WhatsApp and on the web UI are two different conversations.
type Identity struct {
	Channel string // channel name: "whatsapp", "web"
	UserID  string // channel-scoped user identifier (JID, session ID, ...)
}

// Key returns the identity as a single map key.
func (id Identity) Key() string {
	return id.Channel + ":" + id.UserID
}

func (id Identity) String() string {
	return fmt.Sprintf("%s:%s", id.Channel, id.UserID)
}
