package model

import (
	"context"
	"sync"

	"go.mau.fi/whatsmeow/types"
)

type SessionState string

const (
	StateUninitialized SessionState = "uninitialized"
	StateAwaitingQR    SessionState = "awaiting_qr"
	StateReady         SessionState = "ready"
	StateDisconnected  SessionState = "disconnected"
)

// Client is a live messaging connection bound to one session identity.
type Client interface {
	// Start connects in the background. Failures arrive as DisconnectedEvent.
	Start()
	// Events yields the client's lifecycle and message events in order.
	// The channel is closed by Close.
	Events() <-chan Event
	SendText(ctx context.Context, to types.JID, text string) error
	// OwnNumber is the bound phone number, empty until paired.
	OwnNumber() string
	Close()
}

type Session struct {
	ID     string
	Client Client

	mu    sync.RWMutex
	state SessionState
	jid   string
}

func NewSession(id string, client Client) *Session {
	return &Session{ID: id, Client: client, state: StateUninitialized}
}

func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) SetState(state SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) JID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jid
}

func (s *Session) SetJID(jid string) {
	s.mu.Lock()
	s.jid = jid
	s.mu.Unlock()
}
