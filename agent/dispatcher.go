package agent

import (
	"context"
	"errors"
	"time"

	"supportagent/channel"
	"supportagent/config"
	"supportagent/security"
	"supportagent/voice"
)

const (
	voiceUnsupportedReply = "Voice messages are not supported."
	transcribeFailedReply = "Sorry, I could not transcribe your voice message. Please send it as text."
)

// Dispatcher connects channel adapters to the agent: it authorizes inbound
// events, transcribes voice, hands the text to the agent and delivers the
// reply. Each adapter gets its own listen loop with reconnect.
type Dispatcher struct {
	agent       *Agent
	whitelist   *security.Whitelist
	transcriber voice.Transcriber // nil disables voice
	adapters    []channel.Adapter
}

func NewDispatcher(agent *Agent, whitelist *security.Whitelist, transcriber voice.Transcriber, adapters []channel.Adapter) *Dispatcher {
	return &Dispatcher{
		agent:       agent,
		whitelist:   whitelist,
		transcriber: transcriber,
		adapters:    adapters,
	}
}

// Run serves all adapters until the context is canceled.
func (d *Dispatcher) Run(ctx context.Context) {
	for _, adapter := range d.adapters {
		go d.serveAdapter(ctx, adapter)
	}
	<-ctx.Done()

	for _, adapter := range d.adapters {
		adapter.Close()
	}
}

// serveAdapter keeps one adapter connected and listening, reconnecting
// with backoff when the transport session drops.
func (d *Dispatcher) serveAdapter(ctx context.Context, adapter channel.Adapter) {
	backoff := time.Second

	for {
		if ctx.Err() != nil {
			return
		}

		if err := adapter.Connect(ctx); err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[dispatcher] %s connect failed: %v, retrying in %s",
					adapter.Name(), err, backoff)
			}
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = time.Second

		events, err := adapter.Listen(ctx)
		if err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[dispatcher] %s listen failed: %v", adapter.Name(), err)
			}
			if !sleepCtx(ctx, backoff) {
				return
			}
			continue
		}

		// Drain until the session drops (channel closes) or shutdown.
		for {
			select {
			case <-ctx.Done():
				return
			case inbound, ok := <-events:
				if !ok {
					if config.DebugLog != nil {
						config.DebugLog.Printf("[dispatcher] %s session dropped, reconnecting", adapter.Name())
					}
					goto reconnect
				}
				go d.handleEvent(ctx, adapter, inbound)
			}
		}

	reconnect:
		if !sleepCtx(ctx, backoff) {
			return
		}
	}
}

// handleEvent processes one inbound event end to end. Turns for distinct
// identities run concurrently; the agent serializes per identity.
func (d *Dispatcher) handleEvent(ctx context.Context, adapter channel.Adapter, inbound channel.Inbound) {
	identity := inbound.Identity

	// Unauthorized senders are dropped before anything else sees the
	// message: no reply, no history entry, no LLM call.
	if !d.whitelist.IsAuthorized(identity.Channel, identity.UserID) {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[dispatcher] dropping message from unauthorized %s", identity)
		}
		return
	}

	text := inbound.Text
	if inbound.IsVoice() {
		if d.transcriber == nil {
			d.send(ctx, adapter, inbound, voiceUnsupportedReply)
			return
		}

		transcribed, err := d.transcriber.Transcribe(ctx, inbound.Voice, inbound.MimeHint)
		if err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[dispatcher] transcription failed for %s: %v", identity, err)
			}
			d.send(ctx, adapter, inbound, transcribeFailedReply)
			return
		}
		text = transcribed
	}

	if text == "" {
		return
	}

	reply := d.agent.HandleInbound(ctx, identity, text)
	d.send(ctx, adapter, inbound, reply)
}

// send delivers a reply. Failed deliveries are logged and dropped; nothing
// queues undelivered replies.
func (d *Dispatcher) send(ctx context.Context, adapter channel.Adapter, inbound channel.Inbound, text string) {
	if err := adapter.Send(ctx, inbound.Identity, text); err != nil {
		var deliveryErr *channel.DeliveryError
		if errors.As(err, &deliveryErr) && config.DebugLog != nil {
			config.DebugLog.Printf("[dispatcher] dropped reply for %s: %v", inbound.Identity, err)
		} else if config.DebugLog != nil {
			config.DebugLog.Printf("[dispatcher] send failed for %s: %v", inbound.Identity, err)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > 30*time.Second {
		next = 30 * time.Second
	}
	return next
}
