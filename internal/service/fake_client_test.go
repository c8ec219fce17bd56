package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.mau.fi/whatsmeow/types"

	"wacrm-bridge/internal/model"
	"wacrm-bridge/internal/ws"
)

type sentMessage struct {
	To   types.JID
	Text string
}

type fakeClient struct {
	own    string
	events chan model.Event

	mu      sync.Mutex
	started int
	sent    []sentMessage
	sendErr error
	closed  bool
}

func newFakeClient(own string) *fakeClient {
	return &fakeClient{own: own, events: make(chan model.Event, 64)}
}

func (c *fakeClient) Start() {
	c.mu.Lock()
	c.started++
	c.mu.Unlock()
}

func (c *fakeClient) Events() <-chan model.Event { return c.events }

func (c *fakeClient) SendText(ctx context.Context, to types.JID, text string) error {
	c.mu.Lock()
	err := c.sendErr
	if err == nil {
		c.sent = append(c.sent, sentMessage{To: to, Text: text})
	}
	c.mu.Unlock()

	if err != nil {
		return err
	}
	c.emit(model.OutboundEchoEvent{To: to.String(), Body: text})
	return nil
}

func (c *fakeClient) OwnNumber() string { return c.own }

func (c *fakeClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.events)
}

func (c *fakeClient) emit(evt model.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.events <- evt
	}
}

func (c *fakeClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeClient) startCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

type fakeRecords struct {
	mu     sync.Mutex
	id     string
	saves  int
	clears int
}

func (r *fakeRecords) Save(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.id = id
	r.saves++
	return nil
}

func (r *fakeRecords) Load() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.id, r.id != ""
}

func (r *fakeRecords) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.id = ""
	r.clears++
	return nil
}

func (r *fakeRecords) stored() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.id
}

type fakeNotifier struct {
	ch chan model.Interaction
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{ch: make(chan model.Interaction, 16)}
}

func (n *fakeNotifier) Notify(in model.Interaction) { n.ch <- in }

type fakeQR struct{}

func (fakeQR) DataURL(code string) (string, error) {
	return "data:image/png;base64," + code, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []ws.WsEvent
}

func (p *fakePublisher) Publish(evt ws.WsEvent) {
	p.mu.Lock()
	p.events = append(p.events, evt)
	p.mu.Unlock()
}

func (p *fakePublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Event)
	}
	return out
}

// fakeClock captures reconnect callbacks instead of running them.
type fakeClock struct {
	mu      sync.Mutex
	pending []func()
	delays  []time.Duration
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) *time.Timer {
	c.mu.Lock()
	c.pending = append(c.pending, f)
	c.delays = append(c.delays, d)
	c.mu.Unlock()
	return time.NewTimer(time.Hour)
}

func (c *fakeClock) pendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// fire runs the oldest captured callback.
func (c *fakeClock) fire(t *testing.T) {
	t.Helper()
	c.mu.Lock()
	if len(c.pending) == 0 {
		c.mu.Unlock()
		t.Fatal("no reconnect scheduled")
	}
	f := c.pending[0]
	c.pending = c.pending[1:]
	c.mu.Unlock()
	f()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
