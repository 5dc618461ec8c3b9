package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/magefree/mage-engine-go/internal/chat"
	"github.com/magefree/mage-engine-go/internal/config"
	"github.com/magefree/mage-engine-go/internal/game"
	"github.com/magefree/mage-engine-go/internal/game/rules"
	"github.com/magefree/mage-engine-go/internal/table"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed for a request to reach the table goroutine.
	submitWait = 5 * time.Second

	// forward, readPump and writePump.
	connGoroutines = 3
)

// Message types exchanged over the websocket.
const (
	MsgAction   = "action"
	MsgChat     = "chat"
	MsgView     = "view"
	MsgGameView = "game_view"
	MsgError    = "error"
)

// WSMessage is the envelope of every websocket frame.
type WSMessage struct {
	Type     string `json:"type"`
	TableID  string `json:"table_id,omitempty"`
	PlayerID string `json:"player_id,omitempty"`
	Data     any    `json:"data,omitempty"`
}

// ErrorData is the payload of an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ViewData is the payload of a game_view message.
type ViewData struct {
	View   game.GameView `json:"view"`
	Halted bool          `json:"halted,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// TableSource finds running tables.
type TableSource interface {
	Get(tableID string) (*table.Table, bool)
}

// Client is one websocket connection, bound to a table and, unless it is a
// spectator, to a seated player.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	playerID string
	tableID  string

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// trySend queues data without blocking. It reports false when the client
// is gone or its queue is full.
func (c *Client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) sendMessage(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.logger.Error("failed to encode websocket message",
			zap.String("type", msg.Type),
			zap.Error(err))
		return
	}
	if !c.trySend(data) {
		c.hub.logger.Debug("dropping websocket message",
			zap.String("type", msg.Type),
			zap.String("player_id", c.playerID))
	}
}

func (c *Client) sendError(err error) {
	c.sendMessage(WSMessage{
		Type:     MsgError,
		TableID:  c.tableID,
		PlayerID: c.playerID,
		Data:     ErrorData{Code: errorCode(err), Message: err.Error()},
	})
}

// Hub keeps the set of connected clients. It is the chat sink: chat lines
// for a user go to every connection of that user.
type Hub struct {
	logger     *zap.Logger
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	exited     chan struct{}
	stopOnce   sync.Once
	stopped    bool
	pumps      sync.WaitGroup
	mu         sync.RWMutex
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:     logger,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		exited:     make(chan struct{}),
	}
}

// Run is the hub's main loop. It returns after Stop.
func (h *Hub) Run() {
	defer close(h.exited)
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			h.stopped = true
			for client := range h.clients {
				delete(h.clients, client)
				client.closeSend()
			}
			h.mu.Unlock()
			h.logger.Info("websocket hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client registered",
				zap.String("table_id", client.tableID),
				zap.String("player_id", client.playerID),
				zap.Int("clients", n))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered",
				zap.String("player_id", client.playerID))
		}
	}
}

// Stop closes every connection and waits until Run and every connection
// goroutine have returned. Run must have been started. Safe to call more
// than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
	<-h.exited
	h.pumps.Wait()
}

// acquire reserves the goroutines of one connection. It fails once the hub
// has stopped.
func (h *Hub) acquire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return false
	}
	h.pumps.Add(connGoroutines)
	return true
}

func (h *Hub) release() {
	h.pumps.Add(-connGoroutines)
}

// spawn runs fn as one of a connection's goroutines.
func (h *Hub) spawn(fn func()) {
	go func() {
		defer h.pumps.Done()
		fn()
	}()
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Deliver sends a chat message to every connection of userID.
func (h *Hub) Deliver(userID string, msg chat.Message) error {
	data, err := json.Marshal(WSMessage{Type: MsgChat, PlayerID: userID, Data: msg})
	if err != nil {
		return fmt.Errorf("failed to encode chat message: %w", err)
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := false
	for c := range h.clients {
		if c.playerID == userID && c.trySend(data) {
			delivered = true
		}
	}
	if !delivered {
		return fmt.Errorf("user %s is not connected", userID)
	}
	return nil
}

var _ chat.Sink = (*Hub)(nil)

// WebSocketServer serves /ws?table=<id>&player=<id>. Without a player the
// connection spectates.
type WebSocketServer struct {
	cfg      config.WebSocketConfig
	hub      *Hub
	tables   TableSource
	chat     *chat.Manager
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWebSocketServer(cfg config.WebSocketConfig, hub *Hub, tables TableSource, chatMgr *chat.Manager, logger *zap.Logger) *WebSocketServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 64 * 1024
	}
	return &WebSocketServer{
		cfg:    cfg,
		hub:    hub,
		tables: tables,
		chat:   chatMgr,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP routes of the websocket server.
func (s *WebSocketServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.ServeWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *WebSocketServer) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting WebSocket server", zap.String("address", s.cfg.Address))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("websocket server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		s.hub.Stop()
		return srv.Shutdown(shutdownCtx)
	}
}

// ServeWS upgrades a request and attaches the connection to its table.
func (s *WebSocketServer) ServeWS(w http.ResponseWriter, r *http.Request) {
	tableID := r.URL.Query().Get("table")
	playerID := r.URL.Query().Get("player")
	tbl, ok := s.tables.Get(tableID)
	if !ok {
		http.Error(w, "table not found", http.StatusNotFound)
		return
	}
	if playerID != "" && !tbl.Seated(playerID) {
		http.Error(w, "player is not seated at this table", http.StatusForbidden)
		return
	}

	if !s.hub.acquire() {
		http.Error(w, "websocket hub is not running", http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.hub.release()
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	client := &Client{
		hub:      s.hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		playerID: playerID,
		tableID:  tableID,
	}

	ctx, cancel := context.WithTimeout(context.Background(), submitWait)
	updates, unsubscribe, err := tbl.Subscribe(ctx, playerID)
	cancel()
	if err != nil {
		s.logger.Warn("failed to subscribe to table",
			zap.String("table_id", tableID),
			zap.Error(err))
		_ = conn.Close()
		s.hub.release()
		return
	}

	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		unsubscribe()
		_ = conn.Close()
		s.hub.release()
		return
	}

	s.hub.spawn(func() { s.forward(client, updates) })
	s.hub.spawn(func() { s.writePump(client) })
	s.hub.spawn(func() { s.readPump(client, tbl, unsubscribe) })
}

// forward turns table updates into game_view messages.
func (s *WebSocketServer) forward(c *Client, updates <-chan table.Update) {
	for u := range updates {
		c.sendMessage(WSMessage{
			Type:     MsgGameView,
			TableID:  u.TableID,
			PlayerID: c.playerID,
			Data:     ViewData{View: u.View, Halted: u.Halted, Error: u.Error},
		})
	}
}

func (s *WebSocketServer) readPump(c *Client, tbl *table.Table, unsubscribe func()) {
	defer func() {
		unsubscribe()
		select {
		case s.hub.unregister <- c:
		case <-s.hub.done:
		}
		_ = c.conn.Close()
	}()

	pongWait := s.cfg.PingInterval * 10 / 9
	c.conn.SetReadLimit(s.cfg.MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError(fmt.Errorf("%w: %v", errBadRequest, err))
			continue
		}
		s.handleMessage(c, tbl, msg)
	}
}

func (s *WebSocketServer) writePump(c *Client) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var (
	errBadRequest = errors.New("bad request")
	errSpectator  = errors.New("spectators cannot act")
)

func (s *WebSocketServer) handleMessage(c *Client, tbl *table.Table, msg WSMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), submitWait)
	defer cancel()

	switch msg.Type {
	case MsgAction:
		if c.playerID == "" {
			c.sendError(errSpectator)
			return
		}
		a, err := decodeAction(msg.Data)
		if err != nil {
			c.sendError(err)
			return
		}
		a.PlayerID = c.playerID
		if err := tbl.Submit(ctx, a); err != nil {
			s.logger.Debug("action rejected",
				zap.String("table_id", c.tableID),
				zap.String("player_id", c.playerID),
				zap.String("action", string(a.ActionType)),
				zap.Error(err))
			c.sendError(err)
		}

	case MsgChat:
		if c.playerID == "" {
			c.sendError(errSpectator)
			return
		}
		if s.chat == nil || tbl.ChatID == "" {
			c.sendError(fmt.Errorf("%w: chat is disabled", errBadRequest))
			return
		}
		var payload struct {
			Text string `mapstructure:"text"`
		}
		if err := mapstructure.Decode(msg.Data, &payload); err != nil {
			c.sendError(fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		if err := s.chat.Talk(ctx, tbl.ChatID, c.playerID, payload.Text); err != nil {
			c.sendError(err)
		}

	case MsgView:
		v, err := tbl.View(ctx, c.playerID)
		if err != nil {
			c.sendError(err)
			return
		}
		c.sendMessage(WSMessage{Type: MsgGameView, TableID: c.tableID, PlayerID: c.playerID, Data: ViewData{View: v}})

	default:
		c.sendError(fmt.Errorf("%w: unknown message type %q", errBadRequest, msg.Type))
	}
}

// decodeAction reads a player action from a decoded JSON object.
func decodeAction(data any) (game.PlayerAction, error) {
	var a game.PlayerAction
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &a,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return a, err
	}
	if err := dec.Decode(data); err != nil {
		return a, fmt.Errorf("%w: invalid action: %v", errBadRequest, err)
	}
	if a.ActionType == "" {
		return a, fmt.Errorf("%w: action_type is required", errBadRequest)
	}
	return a, nil
}

// errorCode classifies an error for clients. Internal errors that halted a
// game are reported distinctly from rejected actions.
func errorCode(err error) string {
	switch {
	case errors.Is(err, rules.ErrIllegalAction):
		return "illegal_action"
	case errors.Is(err, rules.ErrInvariantViolation):
		return "game_halted"
	case errors.Is(err, table.ErrTableClosed):
		return "table_closed"
	case errors.Is(err, chat.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, errSpectator):
		return "forbidden"
	case errors.Is(err, errBadRequest):
		return "bad_request"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
