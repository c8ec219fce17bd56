package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"wacrm-bridge/internal/model"
)

const eventBuffer = 256

// DeviceBindings maps session ids to the whatsmeow device they paired.
type DeviceBindings interface {
	GetJID(ctx context.Context, sessionID string) (string, error)
	Bind(ctx context.Context, sessionID, jid string) error
	Unbind(ctx context.Context, sessionID string) error
}

type WhatsmeowFactory struct {
	container *sqlstore.Container
	bindings  DeviceBindings
	log       zerolog.Logger
}

func NewWhatsmeowFactory(container *sqlstore.Container, bindings DeviceBindings, log zerolog.Logger) *WhatsmeowFactory {
	return &WhatsmeowFactory{container: container, bindings: bindings, log: log}
}

// NewClient loads the device bound to sessionID, or a fresh one that
// will pair by QR.
func (f *WhatsmeowFactory) NewClient(ctx context.Context, sessionID string) (model.Client, error) {
	device, err := f.device(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	log := f.log.With().Str("session", sessionID).Logger()
	wc := whatsmeow.NewClient(device, waLog.Zerolog(log.With().Str("module", "whatsmeow").Logger()))
	wc.EnableAutoReconnect = false

	c := newWhatsmeowClient(sessionID, wc, f.bindings, log)
	wc.AddEventHandler(c.handle)
	return c, nil
}

func (f *WhatsmeowFactory) device(ctx context.Context, sessionID string) (*store.Device, error) {
	bound, err := f.bindings.GetJID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if bound == "" {
		return f.container.NewDevice(), nil
	}

	jid, err := types.ParseJID(bound)
	if err != nil {
		return nil, fmt.Errorf("parse bound jid %q: %w", bound, err)
	}
	device, err := f.container.GetDevice(ctx, jid)
	if err != nil {
		return nil, fmt.Errorf("load device %s: %w", jid, err)
	}
	if device == nil {
		f.log.Warn().Str("session", sessionID).Str("jid", bound).Msg("bound device missing, pairing again")
		if err := f.bindings.Unbind(ctx, sessionID); err != nil {
			return nil, err
		}
		return f.container.NewDevice(), nil
	}
	return device, nil
}

type whatsmeowClient struct {
	sessionID string
	client    *whatsmeow.Client
	bindings  DeviceBindings
	log       zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	events       chan model.Event
	closed       bool
	disconnected bool

	closeOnce sync.Once
}

func newWhatsmeowClient(sessionID string, client *whatsmeow.Client, bindings DeviceBindings, log zerolog.Logger) *whatsmeowClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &whatsmeowClient{
		sessionID: sessionID,
		client:    client,
		bindings:  bindings,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
		events:    make(chan model.Event, eventBuffer),
	}
}

func (c *whatsmeowClient) Events() <-chan model.Event {
	return c.events
}

func (c *whatsmeowClient) Start() {
	go func() {
		if c.client.Store.ID == nil {
			qrChan, err := c.client.GetQRChannel(c.ctx)
			if err != nil {
				c.emitDisconnected("qr channel: " + err.Error())
				return
			}
			go c.forwardQR(qrChan)
		}

		if err := c.client.Connect(); err != nil {
			c.emitDisconnected("connect: " + err.Error())
		}
	}()
}

func (c *whatsmeowClient) forwardQR(qrChan <-chan whatsmeow.QRChannelItem) {
	for item := range qrChan {
		switch item.Event {
		case whatsmeow.QRChannelEventCode:
			c.emit(model.QREvent{Code: item.Code})
		case whatsmeow.QRChannelSuccess.Event:
			// Connected follows
		case whatsmeow.QRChannelTimeout.Event:
			c.emitDisconnected("qr timeout")
		default:
			reason := item.Event
			if item.Error != nil {
				reason = item.Error.Error()
			}
			c.emitDisconnected("pairing: " + reason)
		}
	}
}

func (c *whatsmeowClient) handle(evt interface{}) {
	switch e := evt.(type) {
	case *events.Connected:
		if id := c.client.Store.ID; id != nil {
			ctx, cancel := context.WithTimeout(c.ctx, 5*time.Second)
			if err := c.bindings.Bind(ctx, c.sessionID, id.String()); err != nil {
				c.log.Error().Err(err).Msg("cannot bind device")
			}
			cancel()
		}
		c.emit(model.ReadyEvent{})

	case *events.PairSuccess:
		c.log.Info().Str("jid", e.ID.String()).Msg("pair success")

	case *events.Message:
		c.handleMessage(e)

	case *events.LoggedOut:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := c.bindings.Unbind(ctx, c.sessionID); err != nil {
			c.log.Error().Err(err).Msg("cannot unbind device")
		}
		cancel()
		c.emitDisconnected(fmt.Sprintf("logged out: %v", e.Reason))

	case *events.StreamReplaced:
		c.emitDisconnected("stream replaced")

	case *events.ConnectFailure:
		c.emitDisconnected(fmt.Sprintf("connect failure: %v %s", e.Reason, e.Message))

	case *events.Disconnected:
		c.emitDisconnected("connection lost")
	}
}

func (c *whatsmeowClient) handleMessage(e *events.Message) {
	if e.Info.IsGroup || e.Info.Chat.Server == types.BroadcastServer {
		return
	}

	body := messageText(e.Message)
	if body == "" {
		return
	}

	if e.Info.IsFromMe {
		to, ok := c.phoneJID(e.Info.Chat, e.Info.RecipientAlt)
		if !ok {
			c.log.Warn().Str("chat", e.Info.Chat.String()).Msg("no phone number for outgoing chat, skipping")
			return
		}
		c.emit(model.OutboundEchoEvent{To: to.String(), Body: body})
		return
	}

	from, ok := c.phoneJID(e.Info.Sender, e.Info.SenderAlt)
	if !ok {
		c.log.Warn().Str("sender", e.Info.Sender.String()).Msg("no phone number for sender, skipping")
		return
	}
	c.emit(model.InboundMessageEvent{From: from.String(), Body: body})
}

// phoneJID resolves jid to its phone-number form. Hidden (LID) addresses
// use alt when the message carried one, then the device's LID map.
func (c *whatsmeowClient) phoneJID(jid, alt types.JID) (types.JID, bool) {
	if jid.Server == types.DefaultUserServer {
		return jid.ToNonAD(), true
	}
	if jid.Server != types.HiddenUserServer {
		return types.JID{}, false
	}

	if alt.Server == types.DefaultUserServer {
		return alt.ToNonAD(), true
	}
	if c.client == nil || c.client.Store == nil || c.client.Store.LIDs == nil {
		return types.JID{}, false
	}

	ctx, cancel := context.WithTimeout(c.ctx, 5*time.Second)
	defer cancel()
	pn, err := c.client.Store.LIDs.GetPNForLID(ctx, jid.ToNonAD())
	if err != nil {
		c.log.Error().Err(err).Str("lid", jid.String()).Msg("cannot look up phone number for lid")
		return types.JID{}, false
	}
	if pn.Server != types.DefaultUserServer {
		return types.JID{}, false
	}
	return pn.ToNonAD(), true
}

func messageText(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	if text := msg.GetConversation(); text != "" {
		return text
	}
	if text := msg.GetExtendedTextMessage().GetText(); text != "" {
		return text
	}
	if text := msg.GetImageMessage().GetCaption(); text != "" {
		return text
	}
	if text := msg.GetVideoMessage().GetCaption(); text != "" {
		return text
	}
	return msg.GetDocumentMessage().GetCaption()
}

// SendText sends a plain text message. whatsmeow does not deliver our own
// sends back as events, so the echo is emitted here.
func (c *whatsmeowClient) SendText(ctx context.Context, to types.JID, text string) error {
	if !c.client.IsConnected() {
		return errors.New("client not connected")
	}

	if _, err := c.client.SendMessage(ctx, to, &waE2E.Message{
		Conversation: proto.String(text),
	}); err != nil {
		return err
	}

	c.emit(model.OutboundEchoEvent{To: to.String(), Body: text})
	return nil
}

func (c *whatsmeowClient) OwnNumber() string {
	if id := c.client.Store.ID; id != nil {
		return id.User
	}
	return ""
}

func (c *whatsmeowClient) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.events)
		c.mu.Unlock()

		c.cancel()
		c.client.Disconnect()
	})
}

func (c *whatsmeowClient) emitDisconnected(reason string) {
	c.mu.Lock()
	if c.disconnected {
		c.mu.Unlock()
		return
	}
	c.disconnected = true
	c.mu.Unlock()

	c.emit(model.DisconnectedEvent{Reason: reason})
}

func (c *whatsmeowClient) emit(evt model.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	select {
	case c.events <- evt:
	default:
		c.log.Warn().Msgf("event buffer full, dropping %T", evt)
	}
}
