package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/magefree/mage-engine-go/internal/chat"
	"github.com/magefree/mage-engine-go/internal/config"
	"github.com/magefree/mage-engine-go/internal/game"
	"github.com/magefree/mage-engine-go/internal/game/rules"
	"github.com/magefree/mage-engine-go/internal/table"
)

type inbound struct {
	Type     string          `json:"type"`
	TableID  string          `json:"table_id"`
	PlayerID string          `json:"player_id"`
	Data     json.RawMessage `json:"data"`
}

type wsFixture struct {
	hub    *Hub
	tables *table.Manager
	table  *table.Table
	url    string
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	hub := NewHub(zaptest.NewLogger(t))
	go hub.Run()
	t.Cleanup(hub.Stop)

	chats := chat.NewManager(zaptest.NewLogger(t), hub)
	tables := newTables(t, table.WithChat(chats))
	tbl, err := tables.Create(context.Background(), duelConfig())
	require.NoError(t, err)

	ws := NewWebSocketServer(config.WebSocketConfig{}, hub, tables, chats, zaptest.NewLogger(t))
	srv := httptest.NewServer(ws.Handler())
	t.Cleanup(srv.Close)

	return &wsFixture{
		hub:    hub,
		tables: tables,
		table:  tbl,
		url:    "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
	}
}

func (f *wsFixture) dial(t *testing.T, tableID, player string) *websocket.Conn {
	t.Helper()
	url := f.url + "?table=" + tableID
	if player != "" {
		url += "&player=" + player
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readType reads frames until one of type want arrives.
func readType(t *testing.T, conn *websocket.Conn, want string) inbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg inbound
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == want {
			return msg
		}
	}
}

func readView(t *testing.T, conn *websocket.Conn) ViewData {
	t.Helper()
	msg := readType(t, conn, MsgGameView)
	var v ViewData
	require.NoError(t, json.Unmarshal(msg.Data, &v))
	return v
}

func readError(t *testing.T, conn *websocket.Conn) ErrorData {
	t.Helper()
	msg := readType(t, conn, MsgError)
	var e ErrorData
	require.NoError(t, json.Unmarshal(msg.Data, &e))
	return e
}

func TestWebSocketPlaysActions(t *testing.T) {
	f := newWSFixture(t)
	alice := f.dial(t, f.table.ID, "p1")
	bob := f.dial(t, f.table.ID, "p2")

	first := readView(t, alice)
	assert.Equal(t, "p1", first.View.PriorityPlayer)
	assert.Len(t, first.View.Players[0].Hand, 7)
	readView(t, bob)

	// The player id in the payload is ignored in favour of the connection's.
	require.NoError(t, alice.WriteJSON(WSMessage{Type: MsgAction, Data: map[string]any{
		"player_id":   "p2",
		"action_type": "PASS",
	}}))
	assert.Equal(t, "p2", readView(t, alice).View.PriorityPlayer)
	assert.Equal(t, "p2", readView(t, bob).View.PriorityPlayer)

	require.NoError(t, alice.WriteJSON(WSMessage{Type: MsgAction, Data: map[string]any{"action_type": "PASS"}}))
	e := readError(t, alice)
	assert.Equal(t, "illegal_action", e.Code)

	require.NoError(t, bob.WriteJSON(WSMessage{Type: MsgView}))
	v := readView(t, bob)
	assert.Len(t, v.View.Players[1].Hand, 7)
	assert.Empty(t, v.View.Players[0].Hand)
}

func TestWebSocketChat(t *testing.T) {
	f := newWSFixture(t)
	alice := f.dial(t, f.table.ID, "p1")
	bob := f.dial(t, f.table.ID, "p2")
	readView(t, alice)
	readView(t, bob)

	require.NoError(t, alice.WriteJSON(WSMessage{Type: MsgChat, Data: map[string]any{"text": "good luck"}}))
	for _, conn := range []*websocket.Conn{alice, bob} {
		msg := readType(t, conn, MsgChat)
		var line chat.Message
		require.NoError(t, json.Unmarshal(msg.Data, &line))
		assert.Equal(t, "good luck", line.Text)
		assert.Equal(t, "Alice", line.From)
	}

	require.NoError(t, bob.WriteJSON(WSMessage{Type: MsgChat, Data: map[string]any{"text": `\w Alice psst`}}))
	msg := readType(t, alice, MsgChat)
	assert.Contains(t, string(msg.Data), "psst")
}

func TestWebSocketSpectator(t *testing.T) {
	f := newWSFixture(t)
	watcher := f.dial(t, f.table.ID, "")
	v := readView(t, watcher)
	for _, p := range v.View.Players {
		assert.Empty(t, p.Hand)
	}

	require.NoError(t, watcher.WriteJSON(WSMessage{Type: MsgAction, Data: map[string]any{"action_type": "PASS"}}))
	assert.Equal(t, "forbidden", readError(t, watcher).Code)

	require.NoError(t, watcher.WriteJSON(WSMessage{Type: "dance"}))
	assert.Equal(t, "bad_request", readError(t, watcher).Code)
}

func TestWebSocketRejectsUnknownTableAndPlayer(t *testing.T) {
	f := newWSFixture(t)

	_, resp, err := websocket.DefaultDialer.Dial(f.url+"?table=missing", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(f.url+"?table="+f.table.ID+"&player=p9", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHubStopClosesClients(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, f.table.ID, "p1")
	readView(t, conn)
	require.Eventually(t, func() bool { return f.hub.ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	err := f.hub.Deliver("p1", chat.Message{Text: "hi"})
	require.NoError(t, err)
	assert.Error(t, f.hub.Deliver("p2", chat.Message{Text: "hi"}), "p2 is not connected")

	f.hub.Stop()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	assert.Equal(t, 0, f.hub.ClientCount())
}

func TestHubStopWaitsForRunAndConnections(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	hub := NewHub(zap.New(core))
	go hub.Run()

	chats := chat.NewManager(nil, hub)
	tables := newTables(t, table.WithChat(chats))
	tbl, err := tables.Create(context.Background(), duelConfig())
	require.NoError(t, err)
	srv := httptest.NewServer(NewWebSocketServer(config.WebSocketConfig{}, hub, tables, chats, nil).Handler())
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?table=" + tbl.ID

	conn, _, err := websocket.DefaultDialer.Dial(url+"&player=p1", nil)
	require.NoError(t, err)
	defer conn.Close()
	readView(t, conn)

	hub.Stop()
	assert.Equal(t, 1, logs.FilterMessage("websocket hub stopped").Len(), "Run has returned")
	assert.Equal(t, 0, hub.ClientCount())
	hub.Stop()

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestDecodeAction(t *testing.T) {
	tests := []struct {
		name    string
		data    any
		want    game.PlayerAction
		wantErr bool
	}{
		{
			name: "pass",
			data: map[string]any{"action_type": "PASS"},
			want: game.PlayerAction{ActionType: game.ActionPass},
		},
		{
			name: "cast with targets and x",
			data: map[string]any{
				"action_type": "CAST_SPELL",
				"object_id":   "c1",
				"targets":     []any{[]any{"t1"}, []any{"t2", "t3"}},
				"x":           float64(3),
			},
			want: game.PlayerAction{
				ActionType: game.ActionCastSpell,
				ObjectID:   "c1",
				Targets:    [][]string{{"t1"}, {"t2", "t3"}},
				X:          3,
			},
		},
		{
			name: "x as string",
			data: map[string]any{"action_type": "ACTIVATE_ABILITY", "x": "2"},
			want: game.PlayerAction{ActionType: game.ActionActivateAbility, X: 2},
		},
		{name: "missing type", data: map[string]any{"object_id": "c1"}, wantErr: true},
		{name: "unknown field", data: map[string]any{"action_type": "PASS", "mana": 3}, wantErr: true},
		{name: "not an object", data: "PASS", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeAction(tt.data)
			if tt.wantErr {
				assert.ErrorIs(t, err, errBadRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: &rules.IllegalActionError{Reason: "no priority"}, want: "illegal_action"},
		{err: table.ErrTableClosed, want: "table_closed"},
		{err: chat.ErrRateLimited, want: "rate_limited"},
		{err: errSpectator, want: "forbidden"},
		{err: context.DeadlineExceeded, want: "timeout"},
		{err: assert.AnError, want: "error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorCode(tt.err), tt.err.Error())
	}
}
