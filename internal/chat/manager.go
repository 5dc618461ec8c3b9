package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	ErrChatNotFound = errors.New("chat not found")
	ErrNotMember    = errors.New("user is not in this chat")
	ErrRateLimited  = errors.New("talking too fast")
)

// MessageType classifies a chat message for the client.
type MessageType string

const (
	MessageTalk     MessageType = "TALK"
	MessageStatus   MessageType = "STATUS"
	MessageWhisper  MessageType = "WHISPER"
	MessageUserInfo MessageType = "USER_INFO"
)

// Message is one delivered chat line.
type Message struct {
	ChatID   string      `json:"chat_id"`
	From     string      `json:"from,omitempty"`
	Text     string      `json:"text"`
	Type     MessageType `json:"type"`
	Time     time.Time   `json:"time"`
	Receiver string      `json:"receiver,omitempty"`
}

// Sink delivers a message to one connected user. Delivery is best-effort;
// errors are logged and dropped.
type Sink interface {
	Deliver(userID string, msg Message) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(userID string, msg Message) error

func (f SinkFunc) Deliver(userID string, msg Message) error { return f(userID, msg) }

// Publisher receives a copy of every delivered message, e.g. for fan-out
// to other server instances.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Session is one chat room.
type Session struct {
	ID         string
	Info       string
	CreateTime time.Time

	mu    sync.RWMutex
	users map[string]string // user id -> name
}

// SessionInfo is a snapshot of a chat session.
type SessionInfo struct {
	ID         string
	Info       string
	Users      []string
	CreateTime time.Time
}

func (s *Session) snapshot() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.users))
	for _, name := range s.users {
		names = append(names, name)
	}
	sort.Strings(names)
	return SessionInfo{ID: s.ID, Info: s.Info, Users: names, CreateTime: s.CreateTime}
}

func (s *Session) hasUser(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[userID]
	return ok
}

func (s *Session) userName(userID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[userID]
}

func (s *Session) findByName(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, n := range s.users {
		if strings.EqualFold(n, name) {
			return id, true
		}
	}
	return "", false
}

// Option configures a Manager.
type Option func(*Manager)

// WithRateLimit limits how fast a single user may talk.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(m *Manager) {
		m.limit = limit
		m.burst = burst
	}
}

// WithPublisher mirrors every delivered message to p.
func WithPublisher(p Publisher) Option {
	return func(m *Manager) { m.publisher = p }
}

// Manager is the registry of chat sessions.
type Manager struct {
	logger    *zap.Logger
	sink      Sink
	publisher Publisher

	mu       sync.RWMutex
	sessions map[string]*Session

	limitMu  sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int

	infoMu sync.RWMutex
	infos  map[string]string
}

// NewManager creates a chat registry delivering through sink.
func NewManager(logger *zap.Logger, sink Sink, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		logger:   logger,
		sink:     sink,
		sessions: make(map[string]*Session),
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Inf,
		burst:    1,
		infos:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateChatSession creates a chat room and returns its id.
func (m *Manager) CreateChatSession(info string) string {
	s := &Session{
		ID:         uuid.New().String(),
		Info:       info,
		CreateTime: time.Now(),
		users:      make(map[string]string),
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.logger.Debug("chat created",
		zap.String("chat_id", s.ID),
		zap.String("info", info))
	return s.ID
}

func (m *Manager) session(chatID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[chatID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChatNotFound, chatID)
	}
	return s, nil
}

// JoinChat adds a user to a chat room.
func (m *Manager) JoinChat(chatID, userID, name string) error {
	s, err := m.session(chatID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.users[userID] = name
	s.mu.Unlock()

	m.logger.Debug("user joined chat",
		zap.String("chat_id", chatID),
		zap.String("user_id", userID))
	return nil
}

// LeaveChat removes a user from a chat room. Leaving an unknown chat is a
// no-op.
func (m *Manager) LeaveChat(chatID, userID string) {
	s, err := m.session(chatID)
	if err != nil {
		return
	}
	s.mu.Lock()
	delete(s.users, userID)
	s.mu.Unlock()
}

// DestroyChatSession removes a chat room.
func (m *Manager) DestroyChatSession(chatID string) {
	m.mu.Lock()
	_, ok := m.sessions[chatID]
	delete(m.sessions, chatID)
	m.mu.Unlock()

	if ok {
		m.logger.Debug("chat removed", zap.String("chat_id", chatID))
	}
}

// Broadcast sends a status line to every user of the chat room audience.
func (m *Manager) Broadcast(audience, message string) error {
	s, err := m.session(audience)
	if err != nil {
		return err
	}
	m.deliverAll(s, Message{ChatID: s.ID, Text: message, Type: MessageStatus, Time: time.Now()})
	return nil
}

// Talk posts a user's message to a chat room. Messages starting with a
// backslash are user commands.
func (m *Manager) Talk(ctx context.Context, chatID, userID, text string) error {
	s, err := m.session(chatID)
	if err != nil {
		return err
	}
	if !s.hasUser(userID) {
		return ErrNotMember
	}
	if !m.limiter(userID).Allow() {
		return ErrRateLimited
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if strings.HasPrefix(text, `\`) || strings.HasPrefix(text, "/") {
		if m.performCommand(ctx, s, userID, text) {
			return nil
		}
	}
	m.deliverAll(s, Message{ChatID: s.ID, From: s.userName(userID), Text: text, Type: MessageTalk, Time: time.Now()})
	return nil
}

const commandList = "List of commands:" +
	"\n\\info <text> - set a info text to your player" +
	"\n\\list - Show a list of commands" +
	"\n\\whisper <player name> <text> - whisper to the player with the given name"

func (m *Manager) performCommand(ctx context.Context, s *Session, userID, text string) bool {
	name, rest, _ := strings.Cut(text, " ")
	switch strings.ToLower(name) {
	case `\i`, `\info`:
		info := strings.TrimSpace(rest)
		m.infoMu.Lock()
		m.infos[userID] = info
		m.infoMu.Unlock()
		m.deliverTo(ctx, userID, Message{ChatID: s.ID, Text: text, Type: MessageUserInfo, Time: time.Now()})
		return true
	case `\l`, `\list`:
		if rest != "" {
			return false
		}
		m.deliverTo(ctx, userID, Message{ChatID: s.ID, Text: text + "\n" + commandList, Type: MessageUserInfo, Time: time.Now()})
		return true
	case `\w`, `\whisper`, `/w`, `/whisper`:
		to, body, ok := strings.Cut(strings.TrimSpace(rest), " ")
		if !ok || to == "" {
			return false
		}
		receiver, found := s.findByName(to)
		if !found {
			m.deliverTo(ctx, userID, Message{ChatID: s.ID, Text: text + "\nUser " + to + " not found", Type: MessageUserInfo, Time: time.Now()})
			return true
		}
		msg := Message{ChatID: s.ID, From: s.userName(userID), Text: strings.TrimSpace(body), Type: MessageWhisper, Time: time.Now()}
		m.deliverTo(ctx, receiver, msg)
		if receiver != userID {
			m.deliverTo(ctx, userID, msg)
		}
		return true
	}
	return false
}

// BroadcastToUser posts a status line about a user, such as a lost
// connection, to every chat room the user is in.
func (m *Manager) BroadcastToUser(userID, message string) {
	for _, s := range m.sessionList() {
		if !s.hasUser(userID) {
			continue
		}
		m.deliverAll(s, Message{ChatID: s.ID, From: s.userName(userID), Text: message, Type: MessageStatus, Time: time.Now()})
	}
}

// RemoveUser takes a user out of every chat room.
func (m *Manager) RemoveUser(userID string) {
	for _, s := range m.sessionList() {
		s.mu.Lock()
		delete(s.users, userID)
		s.mu.Unlock()
	}
	m.limitMu.Lock()
	delete(m.limiters, userID)
	m.limitMu.Unlock()
	m.infoMu.Lock()
	delete(m.infos, userID)
	m.infoMu.Unlock()
}

// UserInfo returns the info text a user set with \info.
func (m *Manager) UserInfo(userID string) string {
	m.infoMu.RLock()
	defer m.infoMu.RUnlock()
	return m.infos[userID]
}

// Sessions returns a snapshot of all chat rooms ordered by creation.
func (m *Manager) Sessions() []SessionInfo {
	list := m.sessionList()
	out := make([]SessionInfo, 0, len(list))
	for _, s := range list {
		out = append(out, s.snapshot())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreateTime.Before(out[j].CreateTime) })
	return out
}

func (m *Manager) sessionList() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	return list
}

func (m *Manager) limiter(userID string) *rate.Limiter {
	m.limitMu.Lock()
	defer m.limitMu.Unlock()
	l, ok := m.limiters[userID]
	if !ok {
		l = rate.NewLimiter(m.limit, m.burst)
		m.limiters[userID] = l
	}
	return l
}

func (m *Manager) deliverAll(s *Session, msg Message) {
	s.mu.RLock()
	receivers := make([]string, 0, len(s.users))
	for id := range s.users {
		receivers = append(receivers, id)
	}
	s.mu.RUnlock()

	for _, id := range receivers {
		m.send(id, msg)
	}
	m.publish(context.Background(), msg)
}

func (m *Manager) deliverTo(ctx context.Context, userID string, msg Message) {
	msg.Receiver = userID
	m.send(userID, msg)
	m.publish(ctx, msg)
}

func (m *Manager) send(userID string, msg Message) {
	if m.sink == nil {
		return
	}
	if err := m.sink.Deliver(userID, msg); err != nil {
		m.logger.Debug("chat delivery failed",
			zap.String("chat_id", msg.ChatID),
			zap.String("user_id", userID),
			zap.Error(err))
	}
}

func (m *Manager) publish(ctx context.Context, msg Message) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(ctx, msg); err != nil {
		m.logger.Warn("chat publish failed",
			zap.String("chat_id", msg.ChatID),
			zap.Error(err))
	}
}
