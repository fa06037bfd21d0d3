package channel

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"supportagent/config"
	"supportagent/model"
)

// WhatsAppAdapter talks to a Baileys bridge server: a WebSocket for inbound
// messages and HTTP endpoints for sending, status and QR linking.
type WhatsAppAdapter struct {
	bridgeURL  string
	httpClient *http.Client

	mu   sync.Mutex
	conn *websocket.Conn
}

// bridgeEnvelope is the outer frame on the bridge WebSocket.
type bridgeEnvelope struct {
	Type string          `json:"type"` // "message" or "status"
	Data json.RawMessage `json:"data"`
}

// bridgeMessage is one inbound WhatsApp message as the bridge delivers it.
type bridgeMessage struct {
	ID          string `json:"id"`
	From        string `json:"from"`
	FromName    string `json:"fromName"`
	Body        string `json:"body"`
	Timestamp   int64  `json:"timestamp"`
	IsGroup     bool   `json:"isGroup"`
	MessageType string `json:"messageType"` // "text", "voice", "image", ...
	VoiceData   string `json:"voiceData"`   // base64, voice messages only
}

func NewWhatsAppAdapter(cfg config.WhatsAppConfig) *WhatsAppAdapter {
	return &WhatsAppAdapter{
		bridgeURL:  strings.TrimRight(cfg.BridgeURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *WhatsAppAdapter) Name() string {
	return "whatsapp"
}

// Connect dials the bridge WebSocket.
func (a *WhatsAppAdapter) Connect(ctx context.Context) error {
	wsURL := strings.Replace(a.bridgeURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)
	wsURL += "/ws/messages"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to WhatsApp bridge at %s: %w", wsURL, err)
	}

	a.mu.Lock()
	a.conn = conn
	a.mu.Unlock()

	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[whatsapp] connected to bridge at %s", wsURL)
	}

	a.reportLinkState(ctx)
	return nil
}

// reportLinkState checks whether the bridge is linked to a WhatsApp account
// and prints the linking QR code when it is not. Bridge hiccups here are
// logged and ignored: the WebSocket is already up.
func (a *WhatsAppAdapter) reportLinkState(ctx context.Context) {
	status, err := a.Status(ctx)
	if err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[whatsapp] status check failed: %v", err)
		}
		return
	}

	if connected, _ := status["connected"].(bool); connected {
		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[whatsapp] bridge linked: %v", status)
		}
		return
	}

	qr, err := a.QRCode(ctx)
	if err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[whatsapp] QR fetch failed: %v", err)
		}
		return
	}
	if qr != "" {
		fmt.Printf("WhatsApp bridge is not linked. Scan this QR code with your phone:\n%s\n", qr)
	}
}

// Listen reads bridge frames and emits inbound events. The returned channel
// closes when the WebSocket drops; the caller reconnects and calls Listen
// again.
func (a *WhatsAppAdapter) Listen(ctx context.Context) (<-chan Inbound, error) {
	a.mu.Lock()
	conn := a.conn
	a.mu.Unlock()

	if conn == nil {
		return nil, fmt.Errorf("not connected to WhatsApp bridge")
	}

	events := make(chan Inbound)

	go func() {
		defer close(events)

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				if config.Debug && config.DebugLog != nil {
					config.DebugLog.Printf("[whatsapp] read error: %v", err)
				}
				return
			}

			var envelope bridgeEnvelope
			if err := json.Unmarshal(raw, &envelope); err != nil {
				continue
			}

			switch envelope.Type {
			case "message":
				var msg bridgeMessage
				if err := json.Unmarshal(envelope.Data, &msg); err != nil {
					continue
				}
				if msg.From == "" {
					continue
				}

				inbound, err := a.toInbound(msg)
				if err != nil {
					if config.Debug && config.DebugLog != nil {
						config.DebugLog.Printf("[whatsapp] dropping message %s: %v", msg.ID, err)
					}
					continue
				}

				select {
				case events <- inbound:
				case <-ctx.Done():
					return
				}

			case "status":
				if config.Debug && config.DebugLog != nil {
					config.DebugLog.Printf("[whatsapp] bridge status: %s", string(envelope.Data))
				}
			}
		}
	}()

	return events, nil
}

func (a *WhatsAppAdapter) toInbound(msg bridgeMessage) (Inbound, error) {
	inbound := Inbound{
		Identity:   model.Identity{Channel: "whatsapp", UserID: msg.From},
		SenderName: msg.FromName,
		Text:       msg.Body,
	}

	if msg.MessageType == "voice" {
		if msg.VoiceData == "" {
			return Inbound{}, fmt.Errorf("voice message without audio data")
		}
		audio, err := base64.StdEncoding.DecodeString(msg.VoiceData)
		if err != nil {
			return Inbound{}, fmt.Errorf("failed to decode voice data: %w", err)
		}
		inbound.Text = ""
		inbound.Voice = audio
		inbound.MimeHint = "audio/ogg"
	}

	return inbound, nil
}

// Send delivers a reply through the bridge's HTTP send endpoint.
func (a *WhatsAppAdapter) Send(ctx context.Context, identity model.Identity, text string) error {
	payload, err := json.Marshal(map[string]string{
		"to":   identity.UserID,
		"text": text,
	})
	if err != nil {
		return fmt.Errorf("failed to encode send payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.bridgeURL+"/api/send", bytes.NewReader(payload))
	if err != nil {
		return &DeliveryError{Channel: "whatsapp", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return &DeliveryError{Channel: "whatsapp", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &DeliveryError{
			Channel: "whatsapp",
			Cause:   fmt.Errorf("bridge returned %d: %s", resp.StatusCode, string(body)),
		}
	}

	return nil
}

// Status fetches the bridge connection status.
func (a *WhatsAppAdapter) Status(ctx context.Context) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.bridgeURL+"/api/status", nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bridge status: %w", err)
	}
	defer resp.Body.Close()

	var status map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode bridge status: %w", err)
	}
	return status, nil
}

// QRCode fetches the current linking QR code, empty when already linked.
func (a *WhatsAppAdapter) QRCode(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.bridgeURL+"/api/qr", nil)
	if err != nil {
		return "", err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch QR code: %w", err)
	}
	defer resp.Body.Close()

	var data struct {
		QR string `json:"qr"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("failed to decode QR response: %w", err)
	}
	return data.QR, nil
}

func (a *WhatsAppAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn != nil {
		err := a.conn.Close()
		a.conn = nil
		return err
	}
	return nil
}
