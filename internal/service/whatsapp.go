package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"wacrm-bridge/internal/helper"
	"wacrm-bridge/internal/model"
	"wacrm-bridge/internal/ws"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrManagerClosed   = errors.New("session manager closed")
)

// ClientFactory builds a messaging client bound to sessionID. The same
// id must yield the same account identity across restarts.
type ClientFactory func(ctx context.Context, sessionID string) (model.Client, error)

// SessionRecords is the single-slot store of the last ready session.
type SessionRecords interface {
	Save(sessionID string) error
	Load() (string, bool)
	Clear() error
}

type QRRenderer interface {
	DataURL(code string) (string, error)
}

type ManagerConfig struct {
	Registry       *Registry
	Records        SessionRecords
	Classifier     *Classifier
	Notifier       Notifier
	Factory        ClientFactory
	QR             QRRenderer
	Realtime       ws.RealtimePublisher // optional
	Channel        string
	ReconnectDelay time.Duration
	Logger         zerolog.Logger
}

// Manager owns the session lifecycle: creation, event dispatch, record
// persistence and reconnection.
type Manager struct {
	registry       *Registry
	records        SessionRecords
	classifier     *Classifier
	notifier       Notifier
	factory        ClientFactory
	qr             QRRenderer
	realtime       ws.RealtimePublisher
	channel        string
	reconnectDelay time.Duration
	log            zerolog.Logger

	// replaced in tests
	afterFunc func(d time.Duration, f func()) *time.Timer

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
	wg     sync.WaitGroup
}

func NewManager(cfg ManagerConfig) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	channel := cfg.Channel
	if channel == "" {
		channel = model.ChannelWhatsApp
	}
	delay := cfg.ReconnectDelay
	if delay <= 0 {
		delay = 3 * time.Second
	}

	return &Manager{
		registry:       cfg.Registry,
		records:        cfg.Records,
		classifier:     cfg.Classifier,
		notifier:       cfg.Notifier,
		factory:        cfg.Factory,
		qr:             cfg.QR,
		realtime:       cfg.Realtime,
		channel:        channel,
		reconnectDelay: delay,
		log:            cfg.Logger,
		afterFunc:      time.AfterFunc,
		ctx:            ctx,
		cancel:         cancel,
		timers:         make(map[string]*time.Timer),
	}
}

// Start returns the live session for sessionID, creating, wiring and
// connecting a new client when none exists.
func (m *Manager) Start(ctx context.Context, sessionID string) (*model.Session, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return nil, ErrManagerClosed
	}

	if sess, ok := m.registry.Get(sessionID); ok {
		m.log.Info().Str("session", sessionID).Msg("session already active")
		return sess, nil
	}

	sess, created, err := m.registry.GetOrCreate(sessionID, func() (*model.Session, error) {
		client, err := m.factory(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("create client for %s: %w", sessionID, err)
		}
		return model.NewSession(sessionID, client), nil
	})
	if err != nil {
		return nil, err
	}
	if !created {
		return sess, nil
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.registry.Remove(sessionID, sess)
		sess.Client.Close()
		return nil, ErrManagerClosed
	}
	m.wg.Add(1)
	m.mu.Unlock()

	go m.consume(sess)
	sess.Client.Start()

	m.log.Info().Str("session", sessionID).Msg("session client started")
	return sess, nil
}

// Restore starts the persisted active session if there is one, otherwise
// requestedID. It returns the session actually started.
func (m *Manager) Restore(ctx context.Context, requestedID string) (*model.Session, error) {
	sessionID := requestedID
	if stored, ok := m.records.Load(); ok {
		if stored != requestedID {
			m.log.Info().Str("requested", requestedID).Str("stored", stored).Msg("restoring stored session")
		}
		sessionID = stored
	}
	return m.Start(ctx, sessionID)
}

// Send delivers text from the given session to number.
func (m *Manager) Send(ctx context.Context, sessionID, number, text string) error {
	sess, ok := m.registry.Get(sessionID)
	if !ok {
		return ErrSessionNotFound
	}

	to, err := helper.FormatRecipient(number)
	if err != nil {
		return err
	}

	if err := sess.Client.SendText(ctx, to, text); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (m *Manager) Session(sessionID string) (*model.Session, bool) {
	return m.registry.Get(sessionID)
}

func (m *Manager) QR(sessionID string) (string, bool) {
	return m.registry.GetQR(sessionID)
}

// Close cancels pending reconnects and disconnects every client.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
	m.mu.Unlock()

	m.cancel()
	for _, sess := range m.registry.All() {
		sess.Client.Close()
	}
	m.wg.Wait()
}

func (m *Manager) consume(sess *model.Session) {
	defer m.wg.Done()

	for evt := range sess.Client.Events() {
		switch e := evt.(type) {
		case model.QREvent:
			m.handleQR(sess, e)
		case model.ReadyEvent:
			m.handleReady(sess)
		case model.InboundMessageEvent:
			m.handleInbound(sess, e)
		case model.OutboundEchoEvent:
			m.handleOutbound(sess, e)
		case model.DisconnectedEvent:
			m.handleDisconnected(sess, e)
			return
		default:
			m.log.Debug().Str("session", sess.ID).Msgf("unhandled event %T", evt)
		}
	}
}

func (m *Manager) handleQR(sess *model.Session, e model.QREvent) {
	img, err := m.qr.DataURL(e.Code)
	if err != nil {
		m.log.Error().Err(err).Str("session", sess.ID).Msg("cannot render qr")
		return
	}

	m.registry.SetQR(sess.ID, img)
	sess.SetState(model.StateAwaitingQR)
	m.log.Info().Str("session", sess.ID).Msg("qr code updated")

	m.publish(ws.EventSessionQR, ws.QRGeneratedData{SessionID: sess.ID, Image: img})
}

func (m *Manager) handleReady(sess *model.Session) {
	if err := m.records.Save(sess.ID); err != nil {
		m.log.Error().Err(err).Str("session", sess.ID).Msg("cannot persist session record")
	}

	phone := sess.Client.OwnNumber()
	sess.SetJID(phone)
	sess.SetState(model.StateReady)
	m.registry.ClearQR(sess.ID)
	m.log.Info().Str("session", sess.ID).Str("phone", phone).Msg("session ready")

	m.publish(ws.EventSessionReady, ws.SessionStatusData{
		SessionID: sess.ID,
		State:     string(model.StateReady),
		Phone:     phone,
	})
}

func (m *Manager) handleInbound(sess *model.Session, e model.InboundMessageEvent) {
	if !m.classifier.IsGreeting(e.Body) {
		return
	}
	m.notify(sess, e.From, model.InteractionConversationStart)
}

func (m *Manager) handleOutbound(sess *model.Session, e model.OutboundEchoEvent) {
	typ, ok := m.classifier.Classify(helper.Normalize(e.Body))
	if !ok {
		return
	}
	m.notify(sess, e.To, typ)
}

func (m *Manager) notify(sess *model.Session, address string, typ model.InteractionType) {
	in := model.Interaction{
		Phone:   helper.ExtractPhoneFromJID(address),
		Type:    typ,
		Origin:  sess.Client.OwnNumber(),
		Channel: m.channel,
	}
	m.notifier.Notify(in)

	m.publish(ws.EventCRMInteraction, ws.InteractionData{
		SessionID: sess.ID,
		Phone:     in.Phone,
		Type:      string(typ),
	})
}

func (m *Manager) handleDisconnected(sess *model.Session, e model.DisconnectedEvent) {
	m.log.Warn().Str("session", sess.ID).Str("reason", e.Reason).Msg("session disconnected, scheduling reconnect")

	if err := m.records.Clear(); err != nil {
		m.log.Error().Err(err).Str("session", sess.ID).Msg("cannot clear session record")
	}

	sess.SetState(model.StateDisconnected)
	if m.registry.Remove(sess.ID, sess) {
		m.registry.ClearQR(sess.ID)
	}
	sess.Client.Close()

	m.publish(ws.EventSessionDisconnected, ws.SessionStatusData{
		SessionID: sess.ID,
		State:     string(model.StateDisconnected),
		Reason:    e.Reason,
	})

	m.scheduleReconnect(sess.ID)
}

// scheduleReconnect arms the single reconnect timer for sessionID,
// replacing any pending one.
func (m *Manager) scheduleReconnect(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	if t, ok := m.timers[sessionID]; ok {
		t.Stop()
	}
	m.timers[sessionID] = m.afterFunc(m.reconnectDelay, func() {
		m.reconnect(sessionID)
	})
}

func (m *Manager) reconnect(sessionID string) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	delete(m.timers, sessionID)
	m.mu.Unlock()

	m.log.Info().Str("session", sessionID).Msg("reconnecting session")
	if _, err := m.Start(m.ctx, sessionID); err != nil {
		if errors.Is(err, ErrManagerClosed) {
			return
		}
		m.log.Error().Err(err).Str("session", sessionID).Msg("reconnect failed")
		m.scheduleReconnect(sessionID)
	}
}

func (m *Manager) publish(event string, data interface{}) {
	if m.realtime == nil {
		return
	}
	m.realtime.Publish(ws.WsEvent{
		Event:     event,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
}
