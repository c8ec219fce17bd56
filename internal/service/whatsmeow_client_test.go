package service

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"wacrm-bridge/internal/model"
)

type fakeBindings struct {
	mu      sync.Mutex
	jids    map[string]string
	unbinds int
}

func (b *fakeBindings) GetJID(ctx context.Context, sessionID string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.jids[sessionID], nil
}

func (b *fakeBindings) Bind(ctx context.Context, sessionID, jid string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.jids == nil {
		b.jids = make(map[string]string)
	}
	b.jids[sessionID] = jid
	return nil
}

func (b *fakeBindings) Unbind(ctx context.Context, sessionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.jids, sessionID)
	b.unbinds++
	return nil
}

// newDetachedClient builds an adapter with no live whatsmeow connection,
// enough for events that never touch the underlying client.
func newDetachedClient(bindings DeviceBindings) *whatsmeowClient {
	return newWhatsmeowClient("s1", nil, bindings, zerolog.Nop())
}

func textMessage(chat, sender types.JID, fromMe bool, text string) *events.Message {
	return &events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{
				Chat:     chat,
				Sender:   sender,
				IsFromMe: fromMe,
				IsGroup:  chat.Server == types.GroupServer,
			},
		},
		Message: &waE2E.Message{Conversation: proto.String(text)},
	}
}

func drain(c *whatsmeowClient) []model.Event {
	var out []model.Event
	for {
		select {
		case evt := <-c.events:
			out = append(out, evt)
		default:
			return out
		}
	}
}

func TestWhatsmeowClientMessages(t *testing.T) {
	c := newDetachedClient(&fakeBindings{})

	peer := types.NewJID("573009998877", types.DefaultUserServer)
	peerDevice := types.JID{User: "573009998877", Device: 3, Server: types.DefaultUserServer}
	me := types.NewJID("573001112233", types.DefaultUserServer)
	group := types.NewJID("120363000000000000", types.GroupServer)

	c.handle(textMessage(peer, peerDevice, false, "hola"))
	c.handle(textMessage(peer, me, true, "Muchas gracias por tu pago"))
	c.handle(textMessage(group, peer, false, "hola grupo"))
	c.handle(textMessage(types.StatusBroadcastJID, peer, false, "estado"))
	c.handle(&events.Message{Info: types.MessageInfo{MessageSource: types.MessageSource{Chat: peer, Sender: peer}}})

	got := drain(c)
	if len(got) != 2 {
		t.Fatalf("Expected 2 events, got %d: %+v", len(got), got)
	}

	in, ok := got[0].(model.InboundMessageEvent)
	if !ok || in.From != "573009998877@s.whatsapp.net" || in.Body != "hola" {
		t.Errorf("Unexpected inbound event %+v", got[0])
	}
	out, ok := got[1].(model.OutboundEchoEvent)
	if !ok || out.To != "573009998877@s.whatsapp.net" || out.Body != "Muchas gracias por tu pago" {
		t.Errorf("Unexpected outbound event %+v", got[1])
	}
}

func TestWhatsmeowClientHiddenUserAddresses(t *testing.T) {
	c := newDetachedClient(&fakeBindings{})

	lid := types.NewJID("128637265838196", types.HiddenUserServer)
	pn := types.NewJID("573001234567", types.DefaultUserServer)

	in := textMessage(lid, lid, false, "Hola buenas")
	in.Info.SenderAlt = pn
	in.Info.AddressingMode = types.AddressingModeLID
	c.handle(in)

	out := textMessage(lid, types.NewJID("573001112233", types.DefaultUserServer), true, "Muchas gracias por tu pago")
	out.Info.RecipientAlt = types.JID{User: pn.User, Device: 2, Server: types.DefaultUserServer}
	c.handle(out)

	// no alternate address and no device store to look it up in
	c.handle(textMessage(lid, lid, false, "hola sin numero"))
	c.handle(textMessage(lid, lid, true, "Muchas gracias por tu pago"))

	got := drain(c)
	if len(got) != 2 {
		t.Fatalf("Expected 2 events, got %d: %+v", len(got), got)
	}

	inbound, ok := got[0].(model.InboundMessageEvent)
	if !ok || inbound.From != "573001234567@s.whatsapp.net" || inbound.Body != "Hola buenas" {
		t.Errorf("Unexpected inbound event %+v", got[0])
	}
	echo, ok := got[1].(model.OutboundEchoEvent)
	if !ok || echo.To != "573001234567@s.whatsapp.net" {
		t.Errorf("Unexpected outbound event %+v", got[1])
	}
}

func TestWhatsmeowClientMessageText(t *testing.T) {
	tests := []struct {
		name string
		msg  *waE2E.Message
		want string
	}{
		{"nil", nil, ""},
		{"conversation", &waE2E.Message{Conversation: proto.String("hola")}, "hola"},
		{"extended text", &waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: proto.String("hola con enlace")}}, "hola con enlace"},
		{"image caption", &waE2E.Message{ImageMessage: &waE2E.ImageMessage{Caption: proto.String("Buenas tardes, precio?")}}, "Buenas tardes, precio?"},
		{"video caption", &waE2E.Message{VideoMessage: &waE2E.VideoMessage{Caption: proto.String("hola, este modelo")}}, "hola, este modelo"},
		{"document caption", &waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{Caption: proto.String("Hola, te envío la cotización")}}, "Hola, te envío la cotización"},
		{"image without caption", &waE2E.Message{ImageMessage: &waE2E.ImageMessage{}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := messageText(tt.msg); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestWhatsmeowClientImageCaptionGreeting(t *testing.T) {
	c := newDetachedClient(&fakeBindings{})
	peer := types.NewJID("573009998877", types.DefaultUserServer)

	msg := textMessage(peer, peer, false, "")
	msg.Message = &waE2E.Message{ImageMessage: &waE2E.ImageMessage{Caption: proto.String("Hola, cuánto cuesta?")}}
	c.handle(msg)

	got := drain(c)
	if len(got) != 1 {
		t.Fatalf("Expected 1 event, got %+v", got)
	}
	if in, ok := got[0].(model.InboundMessageEvent); !ok || in.Body != "Hola, cuánto cuesta?" {
		t.Errorf("Unexpected event %+v", got[0])
	}
}

func TestWhatsmeowClientDisconnectOnce(t *testing.T) {
	bindings := &fakeBindings{jids: map[string]string{"s1": "573001112233:4@s.whatsapp.net"}}
	c := newDetachedClient(bindings)

	c.handle(&events.LoggedOut{})
	c.handle(&events.Disconnected{})
	c.handle(&events.StreamReplaced{})

	got := drain(c)
	if len(got) != 1 {
		t.Fatalf("Expected a single disconnect, got %+v", got)
	}
	if _, ok := got[0].(model.DisconnectedEvent); !ok {
		t.Errorf("Expected DisconnectedEvent, got %T", got[0])
	}
	if bindings.unbinds != 1 {
		t.Errorf("Expected logout to drop the binding, got %d unbinds", bindings.unbinds)
	}
	if jid, _ := bindings.GetJID(context.Background(), "s1"); jid != "" {
		t.Errorf("Expected binding removed, got %s", jid)
	}
}

func TestWhatsmeowClientEmitAfterCloseIgnored(t *testing.T) {
	c := newDetachedClient(&fakeBindings{})

	c.mu.Lock()
	c.closed = true
	close(c.events)
	c.mu.Unlock()

	// must not panic on the closed channel
	c.emit(model.ReadyEvent{})
	c.emitDisconnected("late")
}
