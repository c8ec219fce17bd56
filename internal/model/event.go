package model

// Event is one of QREvent, ReadyEvent, InboundMessageEvent,
// OutboundEchoEvent or DisconnectedEvent.
type Event interface {
	isEvent()
}

// QREvent carries a fresh raw pairing challenge.
type QREvent struct {
	Code string
}

// ReadyEvent fires once the client is paired and connected.
type ReadyEvent struct{}

// InboundMessageEvent is a message received from someone else.
// From is the sender address, e.g. "573001234567@s.whatsapp.net".
type InboundMessageEvent struct {
	From string
	Body string
}

// OutboundEchoEvent is a message sent by the session's own identity,
// from the phone or through SendText.
type OutboundEchoEvent struct {
	To   string
	Body string
}

type DisconnectedEvent struct {
	Reason string
}

func (QREvent) isEvent()             {}
func (ReadyEvent) isEvent()          {}
func (InboundMessageEvent) isEvent() {}
func (OutboundEchoEvent) isEvent()   {}
func (DisconnectedEvent) isEvent()   {}
