// Package security implements the authorization gate for inbound messages.
//
// Every inbound message passes the whitelist check before it reaches the
// conversation store or the LLM. Unauthorized messages are dropped outright:
// no reply, no history entry, no provider call.
package security

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"supportagent/config"
)

// ChannelPolicy is the whitelist for a single channel.
type ChannelPolicy struct {
	AllowAll bool     `toml:"allow_all"`
	Contacts []string `toml:"contacts"`
}

type whitelistFile struct {
	Channels map[string]ChannelPolicy `toml:"channels"`
}

// Whitelist holds per-channel contact whitelists. It is loaded once at
// startup and read-only afterwards, so it is safe to share across all
// concurrent turns without locking.
type Whitelist struct {
	channels map[string]channelSet
}

type channelSet struct {
	allowAll bool
	contacts map[string]struct{}
}

// LoadWhitelist reads the contacts file. A missing file yields an empty
// whitelist (everything unauthorized except allow_all channels, of which
// there are none).
func LoadWhitelist(path string) (*Whitelist, error) {
	wl := &Whitelist{channels: make(map[string]channelSet)}

	if !config.FileExists(path) {
		return wl, nil
	}

	var file whitelistFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("failed to parse contacts file: %w", err)
	}

	for channel, policy := range file.Channels {
		set := channelSet{
			allowAll: policy.AllowAll,
			contacts: make(map[string]struct{}, len(policy.Contacts)),
		}
		for _, contact := range policy.Contacts {
			set.contacts[strings.TrimSpace(contact)] = struct{}{}
		}
		wl.channels[channel] = set
	}

	return wl, nil
}

// NewWhitelist builds a whitelist directly from per-channel policies.
// Used by tests and by callers that manage contacts themselves.
func NewWhitelist(policies map[string]ChannelPolicy) *Whitelist {
	wl := &Whitelist{channels: make(map[string]channelSet, len(policies))}
	for channel, policy := range policies {
		set := channelSet{
			allowAll: policy.AllowAll,
			contacts: make(map[string]struct{}, len(policy.Contacts)),
		}
		for _, contact := range policy.Contacts {
			set.contacts[strings.TrimSpace(contact)] = struct{}{}
		}
		wl.channels[channel] = set
	}
	return wl
}

// IsAuthorized reports whether the given channel-scoped user may talk to the
// agent. Phone-shaped identifiers are matched with and without a leading "+";
// opaque identifiers (WhatsApp LIDs, web session IDs) are matched exactly.
func (w *Whitelist) IsAuthorized(channel, userID string) bool {
	set, ok := w.channels[channel]
	if !ok {
		return false
	}
	if set.allowAll {
		return true
	}

	normalized := strings.TrimSpace(userID)
	if _, ok := set.contacts[normalized]; ok {
		return true
	}

	// Phone numbers may be stored with or without the + prefix.
	if strings.HasPrefix(normalized, "+") {
		if _, ok := set.contacts[normalized[1:]]; ok {
			return true
		}
	} else if normalized != "" && normalized[0] >= '0' && normalized[0] <= '9' {
		if _, ok := set.contacts["+"+normalized]; ok {
			return true
		}
	}

	return false
}

// Size returns the total number of whitelisted contacts across channels.
func (w *Whitelist) Size() int {
	n := 0
	for _, set := range w.channels {
		n += len(set.contacts)
	}
	return n
}
