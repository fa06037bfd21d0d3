package channel

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"supportagent/config"
	"supportagent/model"
)

// fakeBridge mimics the Baileys bridge server: a WebSocket endpoint for
// inbound frames plus the HTTP status, QR and send endpoints.
type fakeBridge struct {
	server   *httptest.Server
	linked   bool
	qr       string
	failSend bool

	mu          sync.Mutex
	statusCalls int
	qrCalls     int
	sends       []map[string]string

	conns chan *websocket.Conn
}

func newFakeBridge(t *testing.T, linked bool, qr string) *fakeBridge {
	t.Helper()

	b := &fakeBridge{linked: linked, qr: qr, conns: make(chan *websocket.Conn, 1)}
	upgrader := websocket.Upgrader{}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/messages", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("websocket upgrade failed: %v", err)
			return
		}
		b.conns <- conn
	})
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.statusCalls++
		b.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"connected": b.linked})
	})
	mux.HandleFunc("/api/qr", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.qrCalls++
		b.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"qr": b.qr})
	})
	mux.HandleFunc("/api/send", func(w http.ResponseWriter, r *http.Request) {
		if b.failSend {
			http.Error(w, "session closed", http.StatusInternalServerError)
			return
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		b.sends = append(b.sends, payload)
		b.mu.Unlock()
	})

	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBridge) adapter(t *testing.T) *WhatsAppAdapter {
	t.Helper()

	a := NewWhatsAppAdapter(config.WhatsAppConfig{BridgeURL: b.server.URL})
	t.Cleanup(func() { a.Close() })
	return a
}

func (b *fakeBridge) calls(t *testing.T) (status, qr int) {
	t.Helper()

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.statusCalls, b.qrCalls
}

func TestConnectPrintsQRWhenUnlinked(t *testing.T) {
	bridge := newFakeBridge(t, false, "2@abcdef==")
	a := bridge.adapter(t)

	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	status, qr := bridge.calls(t)
	if status != 1 {
		t.Errorf("status calls: got %d, want 1", status)
	}
	if qr != 1 {
		t.Errorf("qr calls: got %d, want 1", qr)
	}
}

func TestConnectSkipsQRWhenLinked(t *testing.T) {
	bridge := newFakeBridge(t, true, "")
	a := bridge.adapter(t)

	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	status, qr := bridge.calls(t)
	if status != 1 {
		t.Errorf("status calls: got %d, want 1", status)
	}
	if qr != 0 {
		t.Errorf("qr calls: got %d, want 0", qr)
	}
}

func TestListenDeliversMessages(t *testing.T) {
	voiceBytes := []byte("OggS fake audio")

	tests := []struct {
		name     string
		msg      bridgeMessage
		validate func(t *testing.T, in Inbound)
	}{
		{
			name: "text message",
			msg: bridgeMessage{
				From:        "4915550001@s.whatsapp.net",
				FromName:    "Alice",
				Body:        "is db1 up?",
				MessageType: "text",
			},
			validate: func(t *testing.T, in Inbound) {
				if in.Identity.Channel != "whatsapp" || in.Identity.UserID != "4915550001@s.whatsapp.net" {
					t.Errorf("identity: got %+v", in.Identity)
				}
				if in.Text != "is db1 up?" {
					t.Errorf("text: got %q", in.Text)
				}
				if in.SenderName != "Alice" {
					t.Errorf("sender name: got %q", in.SenderName)
				}
			},
		},
		{
			name: "voice message",
			msg: bridgeMessage{
				From:        "4915550002@s.whatsapp.net",
				MessageType: "voice",
				VoiceData:   base64.StdEncoding.EncodeToString(voiceBytes),
			},
			validate: func(t *testing.T, in Inbound) {
				if in.Text != "" {
					t.Errorf("text should be empty for voice, got %q", in.Text)
				}
				if string(in.Voice) != string(voiceBytes) {
					t.Errorf("voice payload: got %q", in.Voice)
				}
				if in.MimeHint != "audio/ogg" {
					t.Errorf("mime hint: got %q", in.MimeHint)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bridge := newFakeBridge(t, true, "")
			a := bridge.adapter(t)

			if err := a.Connect(context.Background()); err != nil {
				t.Fatalf("Connect failed: %v", err)
			}

			events, err := a.Listen(context.Background())
			if err != nil {
				t.Fatalf("Listen failed: %v", err)
			}

			serverConn := <-bridge.conns
			defer serverConn.Close()

			data, err := json.Marshal(tt.msg)
			if err != nil {
				t.Fatalf("marshal failed: %v", err)
			}
			if err := serverConn.WriteJSON(bridgeEnvelope{Type: "message", Data: data}); err != nil {
				t.Fatalf("WriteJSON failed: %v", err)
			}

			select {
			case in := <-events:
				tt.validate(t, in)
			case <-time.After(2 * time.Second):
				t.Fatal("no inbound event delivered")
			}
		})
	}
}

func TestSendDeliversReply(t *testing.T) {
	bridge := newFakeBridge(t, true, "")
	a := bridge.adapter(t)

	identity := model.Identity{Channel: "whatsapp", UserID: "4915550001@s.whatsapp.net"}
	if err := a.Send(context.Background(), identity, "all good"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	bridge.mu.Lock()
	defer bridge.mu.Unlock()
	if len(bridge.sends) != 1 {
		t.Fatalf("sends: got %d, want 1", len(bridge.sends))
	}
	if bridge.sends[0]["to"] != identity.UserID {
		t.Errorf("to: got %q", bridge.sends[0]["to"])
	}
	if bridge.sends[0]["text"] != "all good" {
		t.Errorf("text: got %q", bridge.sends[0]["text"])
	}
}

func TestSendBridgeFailureIsDeliveryError(t *testing.T) {
	bridge := newFakeBridge(t, true, "")
	bridge.failSend = true
	a := bridge.adapter(t)

	identity := model.Identity{Channel: "whatsapp", UserID: "4915550001@s.whatsapp.net"}
	err := a.Send(context.Background(), identity, "all good")
	if err == nil {
		t.Fatal("expected an error")
	}

	var deliveryErr *DeliveryError
	if !errors.As(err, &deliveryErr) {
		t.Fatalf("err: got %T, want *DeliveryError", err)
	}
	if deliveryErr.Channel != "whatsapp" {
		t.Errorf("channel: got %q", deliveryErr.Channel)
	}
}
