package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"supportagent/config"
	"supportagent/model"
)

// WebAdapter serves a browser chat over WebSocket. Every connection gets a
// fresh session-scoped user ID, so a page refresh starts a clean
// conversation.
type WebAdapter struct {
	listenAddr string
	server     *http.Server
	upgrader   websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*webClient // user ID -> connection

	events chan Inbound
}

type webClient struct {
	mu   sync.Mutex // serializes writes on the shared conn
	conn *websocket.Conn
}

func (c *webClient) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

type webInbound struct {
	Message  string `json:"message"`
	Username string `json:"username"`
}

type webOutbound struct {
	Type      string `json:"type"` // "system" or "message"
	Message   string `json:"message"`
	Sender    string `json:"sender,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

func NewWebAdapter(cfg config.WebConfig) *WebAdapter {
	return &WebAdapter{
		listenAddr: cfg.ListenAddr,
		upgrader: websocket.Upgrader{
			// The chat page is served from this same process.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*webClient),
		events:  make(chan Inbound),
	}
}

func (a *WebAdapter) Name() string {
	return "web"
}

// Connect starts the HTTP server for the chat page and its WebSocket.
func (a *WebAdapter) Connect(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", a.handleIndex)
	mux.HandleFunc("/ws", a.handleWebSocket)

	a.server = &http.Server{
		Addr:              a.listenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			if config.Debug && config.DebugLog != nil {
				config.DebugLog.Printf("[web] server error: %v", err)
			}
		}
	}()

	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[web] listening on %s", a.listenAddr)
	}
	return nil
}

func (a *WebAdapter) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, webChatPage)
}

func (a *WebAdapter) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	// A new ID per connection: refreshing the page starts a new
	// conversation rather than resuming a stale one.
	sessionID := uuid.New().String()
	userID := "web_" + sessionID[:8]

	client := &webClient{conn: conn}

	a.mu.Lock()
	a.clients[userID] = client
	a.mu.Unlock()

	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[web] client connected: %s", userID)
	}

	client.writeJSON(webOutbound{
		Type:    "system",
		Message: "Connected to the support agent. How can I help you?",
		UserID:  userID,
	})

	defer func() {
		a.mu.Lock()
		delete(a.clients, userID)
		a.mu.Unlock()
		conn.Close()

		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[web] client disconnected: %s", userID)
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var inbound webInbound
		if err := json.Unmarshal(raw, &inbound); err != nil {
			continue
		}
		if inbound.Message == "" {
			continue
		}

		a.events <- Inbound{
			Identity:   model.Identity{Channel: "web", UserID: userID},
			SenderName: inbound.Username,
			Text:       inbound.Message,
		}
	}
}

// Listen returns the shared stream of events from all web clients.
func (a *WebAdapter) Listen(ctx context.Context) (<-chan Inbound, error) {
	return a.events, nil
}

// Send delivers a reply to the client behind the identity. Fails with
// DeliveryError when that client has disconnected.
func (a *WebAdapter) Send(ctx context.Context, identity model.Identity, text string) error {
	a.mu.Lock()
	client, ok := a.clients[identity.UserID]
	a.mu.Unlock()

	if !ok {
		return &DeliveryError{
			Channel: "web",
			Cause:   fmt.Errorf("client %s is no longer connected", identity.UserID),
		}
	}

	err := client.writeJSON(webOutbound{
		Type:      "message",
		Message:   text,
		Sender:    "agent",
		Timestamp: time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return &DeliveryError{Channel: "web", Cause: err}
	}
	return nil
}

func (a *WebAdapter) Close() error {
	a.mu.Lock()
	for _, client := range a.clients {
		client.conn.Close()
	}
	a.clients = make(map[string]*webClient)
	a.mu.Unlock()

	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.server.Shutdown(ctx)
	}
	return nil
}

const webChatPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Support Agent</title>
<style>
body { font-family: sans-serif; max-width: 640px; margin: 2em auto; }
#log { border: 1px solid #ccc; height: 400px; overflow-y: scroll; padding: 8px; }
.agent { color: #05445e; }
.user { color: #333; }
.system { color: #888; font-style: italic; }
#form { display: flex; margin-top: 8px; }
#input { flex: 1; padding: 6px; }
</style>
</head>
<body>
<h2>Support Agent</h2>
<div id="log"></div>
<form id="form"><input id="input" autocomplete="off" placeholder="Type a message"><button>Send</button></form>
<script>
const log = document.getElementById("log");
const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
function add(cls, text) {
  const div = document.createElement("div");
  div.className = cls;
  div.textContent = text;
  log.appendChild(div);
  log.scrollTop = log.scrollHeight;
}
ws.onmessage = (ev) => {
  const data = JSON.parse(ev.data);
  add(data.type === "system" ? "system" : "agent", data.message);
};
ws.onclose = () => add("system", "Disconnected.");
document.getElementById("form").onsubmit = (ev) => {
  ev.preventDefault();
  const input = document.getElementById("input");
  if (!input.value) return;
  add("user", input.value);
  ws.send(JSON.stringify({message: input.value}));
  input.value = "";
};
</script>
</body>
</html>
`
