package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ayusman/signbridge/internal/display"
	"github.com/ayusman/signbridge/internal/voice"
)

// Message types exchanged with browsers.
const (
	MessageState       = "state"
	MessageListen      = "listen"
	MessageSpeak       = "speak"
	MessageTranscript  = "transcript"
	MessageSpeechError = "speech_error"
	// MessageCapabilities is sent by a browser on connect to report which
	// speech APIs it has.
	MessageCapabilities = "capabilities"
)

const (
	sendBuffer = 16
	writeWait  = 5 * time.Second
)

var (
	// ErrNoClients is returned by Send when no browser is connected.
	ErrNoClients = errors.New("no connected clients")
	// ErrClientBusy is returned by Send when the chosen browser is not
	// keeping up.
	ErrClientBusy = errors.New("client too slow")
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// ClientMessage is a message sent by a browser.
type ClientMessage struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`

	// Set on capabilities messages.
	Recognition bool `json:"recognition,omitempty"`
	Synthesis   bool `json:"synthesis,omitempty"`
}

type stateMessage struct {
	Type  string           `json:"type"`
	State display.Snapshot `json:"state"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte

	// Guarded by Hub.mu.
	reported    bool
	recognition bool
	synthesis   bool
	active      uint64
}

// can reports whether the client may run cmd. Clients that have not
// reported capabilities are assumed able.
func (c *client) can(cmd string) bool {
	if !c.reported {
		return true
	}
	switch cmd {
	case voice.CommandListen:
		return c.recognition
	case voice.CommandSpeak:
		return c.synthesis
	}
	return true
}

// Hub keeps browsers in sync with the display surface and relays speech
// commands to them. Messages from browsers are passed to the handler set
// with OnMessage.
type Hub struct {
	logger zerolog.Logger
	state  func() display.Snapshot

	mu             sync.RWMutex
	clients        map[*client]bool
	onMessage      func(ClientMessage)
	onCapabilities func(recognition bool)
	seq            uint64
	closed         bool
}

// NewHub creates a Hub. state, if non-nil, provides the snapshot sent to
// each browser when it connects.
func NewHub(state func() display.Snapshot, logger zerolog.Logger) *Hub {
	return &Hub{
		logger:  logger.With().Str("component", "hub").Logger(),
		state:   state,
		clients: make(map[*client]bool),
	}
}

// OnMessage sets the handler for browser messages.
func (h *Hub) OnMessage(fn func(ClientMessage)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onMessage = fn
}

// OnCapabilities sets the handler told whether any connected browser can
// recognize speech. It runs after each capabilities report and after a
// reporting browser disconnects. With no browsers connected it is told true.
func (h *Hub) OnCapabilities(fn func(recognition bool)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onCapabilities = fn
}

// Clients returns the number of connected browsers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PublishState pushes a surface snapshot to every browser. It never blocks.
func (h *Hub) PublishState(snap display.Snapshot) {
	msg, err := json.Marshal(stateMessage{Type: MessageState, State: snap})
	if err != nil {
		return
	}
	h.broadcast(msg)
}

// Send relays a speech command to one browser: the most recently active
// one able to run it. It returns ErrNoClients when no browser is connected
// and voice.ErrUnsupported when none of them has the needed speech API.
func (h *Hub) Send(cmd voice.Command) error {
	msg, err := json.Marshal(cmd)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.clients) == 0 {
		return ErrNoClients
	}

	var target *client
	for c := range h.clients {
		if c.can(cmd.Type) && (target == nil || c.active > target.active) {
			target = c
		}
	}
	if target == nil {
		return voice.ErrUnsupported
	}

	select {
	case target.send <- msg:
		return nil
	default:
		return ErrClientBusy
	}
}

// Close disconnects every browser.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *Hub) broadcast(msg []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.clients {
		select {
		case c.send <- msg:
			delivered++
		default:
			h.logger.Warn().Msg("client too slow, dropping message")
		}
	}
	return delivered
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade error")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if h.state != nil {
		if msg, err := json.Marshal(stateMessage{Type: MessageState, State: h.state()}); err == nil {
			c.send <- msg
		}
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.seq++
	c.active = h.seq
	h.clients[c] = true
	h.mu.Unlock()

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	notify, recognition, reported := h.onCapabilities, h.canRecognize(), c.reported
	h.mu.Unlock()

	if reported && notify != nil {
		notify(recognition)
	}
}

// canRecognize reports whether any connected browser can run a listen
// command. The caller holds h.mu.
func (h *Hub) canRecognize() bool {
	if len(h.clients) == 0 {
		return true
	}
	for c := range h.clients {
		if c.can(voice.CommandListen) {
			return true
		}
	}
	return false
}

// touch records activity from c and applies a capabilities report.
func (h *Hub) touch(c *client, msg ClientMessage) (notify func(bool), recognition bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	c.active = h.seq
	if msg.Type != MessageCapabilities {
		return nil, false
	}
	c.reported = true
	c.recognition = msg.Recognition
	c.synthesis = msg.Synthesis
	return h.onCapabilities, h.canRecognize()
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				h.logger.Debug().Err(err).Msg("ignoring malformed client message")
				continue
			}
			return
		}

		if msg.Type == MessageCapabilities {
			if notify, recognition := h.touch(c, msg); notify != nil {
				notify(recognition)
			}
			continue
		}
		h.touch(c, msg)

		h.mu.RLock()
		fn := h.onMessage
		h.mu.RUnlock()
		if fn != nil {
			fn(msg)
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// TranscriptSink receives recognition results reported by a browser.
type TranscriptSink interface {
	Deliver(text string)
	Fail(reason string)
}

// VoiceMessages returns a message handler that routes browser messages to
// the voice bridge. sink may be nil when recognition does not run in the
// browser.
func VoiceMessages(ctx context.Context, v VoiceControl, sink TranscriptSink, logger zerolog.Logger) func(ClientMessage) {
	return func(msg ClientMessage) {
		switch msg.Type {
		case MessageListen:
			if err := v.StartListening(ctx); err != nil {
				logger.Debug().Err(err).Msg("listen request not started")
			}
		case MessageSpeak:
			v.SpeakPrediction(ctx)
		case MessageTranscript:
			if sink != nil {
				sink.Deliver(msg.Text)
			}
		case MessageSpeechError:
			if sink != nil {
				sink.Fail(msg.Error)
			}
		default:
			logger.Debug().Str("type", msg.Type).Msg("unknown client message")
		}
	}
}
