package slack

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/skiffbot/skiff/internal/bridge"
	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

// mockClient implements slackClient for testing.
type mockClient struct {
	mu       sync.Mutex
	posted   []string // channel IDs
	updated  []string // timestamps
	deleted  []string
	postErrs []error // popped per PostMessage call
	nextTS   int
}

func (m *mockClient) AuthTest() (*slackapi.AuthTestResponse, error) {
	return &slackapi.AuthTestResponse{UserID: "BOT123"}, nil
}

func (m *mockClient) PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.postErrs) > 0 {
		err := m.postErrs[0]
		m.postErrs = m.postErrs[1:]
		if err != nil {
			return "", "", err
		}
	}
	m.nextTS++
	m.posted = append(m.posted, channelID)
	return channelID, "1700000000.00000" + string(rune('0'+m.nextTS)), nil
}

func (m *mockClient) UpdateMessage(channelID, timestamp string, options ...slackapi.MsgOption) (string, string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updated = append(m.updated, timestamp)
	return channelID, timestamp, "", nil
}

func (m *mockClient) DeleteMessage(channelID, timestamp string) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, timestamp)
	return channelID, timestamp, nil
}

// mockSocket implements socketClient for testing.
type mockSocket struct {
	events chan socketmode.Event
	acked  int
	mu     sync.Mutex
}

func newMockSocket() *mockSocket {
	return &mockSocket{events: make(chan socketmode.Event, 10)}
}

func (m *mockSocket) Run() error                        { select {} }
func (m *mockSocket) EventsChan() chan socketmode.Event { return m.events }
func (m *mockSocket) Ack(req socketmode.Request, payload ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked++
}

func connectedAdapter(t *testing.T) (*Adapter, *mockClient, *mockSocket) {
	t.Helper()
	client := &mockClient{}
	socket := newMockSocket()
	a, err := New(AdapterOpts{Client: client, Socket: socket, ChannelID: "C-DEFAULT"})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return a, client, socket
}

func TestNew_RequiresTokensOrMocks(t *testing.T) {
	if _, err := New(AdapterOpts{}); err == nil {
		t.Fatal("empty opts accepted")
	}
	if _, err := New(AdapterOpts{BotToken: "xoxb-x"}); err == nil {
		t.Fatal("missing app token accepted")
	}
	if _, err := New(AdapterOpts{BotToken: "xoxb-x", AppToken: "xapp-x"}); err != nil {
		t.Fatalf("full tokens rejected: %v", err)
	}
}

func TestConnect_CapturesBotUserID(t *testing.T) {
	a, _, _ := connectedAdapter(t)
	if a.botUserID != "BOT123" {
		t.Errorf("bot user id = %q", a.botUserID)
	}
}

func TestSend_ReturnsTimestamp(t *testing.T) {
	a, client, _ := connectedAdapter(t)
	id, err := a.Send(context.Background(), bridge.OutboundMessage{ChannelID: "C1", Text: "hi"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if id == "" {
		t.Error("empty message id")
	}
	if len(client.posted) != 1 || client.posted[0] != "C1" {
		t.Errorf("posted = %v", client.posted)
	}
}

func TestSend_DefaultChannel(t *testing.T) {
	a, client, _ := connectedAdapter(t)
	if _, err := a.Send(context.Background(), bridge.OutboundMessage{Text: "hi"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if client.posted[0] != "C-DEFAULT" {
		t.Errorf("posted to %q", client.posted[0])
	}
}

func TestEditAndDelete(t *testing.T) {
	a, client, _ := connectedAdapter(t)
	ctx := context.Background()

	if err := a.Edit(ctx, "1700000000.000001", bridge.OutboundMessage{ChannelID: "C1", Text: "new"}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if len(client.updated) != 1 {
		t.Errorf("updated = %v", client.updated)
	}

	if err := a.Delete(ctx, "C1", "1700000000.000001"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(client.deleted) != 1 {
		t.Errorf("deleted = %v", client.deleted)
	}
}

func TestRetryOnRateLimit(t *testing.T) {
	a, client, _ := connectedAdapter(t)
	client.postErrs = []error{
		&slackapi.RateLimitedError{RetryAfter: time.Millisecond},
		nil,
	}
	if _, err := a.Send(context.Background(), bridge.OutboundMessage{ChannelID: "C1", Text: "x"}); err != nil {
		t.Fatalf("send after rate limit: %v", err)
	}
	if len(client.posted) != 1 {
		t.Errorf("posted = %d, want the retried message", len(client.posted))
	}
}

func TestPump_MessageEvent(t *testing.T) {
	a, _, socket := connectedAdapter(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	inbound, err := a.Listen(ctx)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	socket.events <- socketmode.Event{
		Type: socketmode.EventTypeEventsAPI,
		Data: slackevents.EventsAPIEvent{
			Type: slackevents.CallbackEvent,
			InnerEvent: slackevents.EventsAPIInnerEvent{
				Data: &slackevents.MessageEvent{
					Channel:   "C1",
					User:      "U1",
					Text:      "/start",
					TimeStamp: "1700000000.000001",
				},
			},
		},
	}

	select {
	case msg := <-inbound:
		if msg.Text != "/start" || msg.ChannelID != "C1" || msg.Platform != "slack" {
			t.Errorf("inbound = %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("message never delivered")
	}
}

func TestPump_FiltersSelfAndBots(t *testing.T) {
	a, _, socket := connectedAdapter(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	inbound, err := a.Listen(ctx)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	for _, ev := range []*slackevents.MessageEvent{
		{Channel: "C1", User: "BOT123", Text: "self"},
		{Channel: "C1", User: "U1", BotID: "B9", Text: "bot"},
		{Channel: "C1", User: "U1", SubType: "message_changed", Text: "edit"},
	} {
		socket.events <- socketmode.Event{
			Type: socketmode.EventTypeEventsAPI,
			Data: slackevents.EventsAPIEvent{
				Type:       slackevents.CallbackEvent,
				InnerEvent: slackevents.EventsAPIInnerEvent{Data: ev},
			},
		}
	}

	select {
	case msg := <-inbound:
		t.Fatalf("filtered message passed through: %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPump_BlockAction(t *testing.T) {
	a, _, socket := connectedAdapter(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	inbound, err := a.Listen(ctx)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	callback := slackapi.InteractionCallback{
		Type: slackapi.InteractionTypeBlockActions,
		User: slackapi.User{ID: "U1", Name: "op"},
		ActionCallback: slackapi.ActionCallbacks{
			BlockActions: []*slackapi.BlockAction{{ActionID: "btn-0-0", Value: "br:clk:0"}},
		},
	}
	callback.Channel.ID = "C1"
	callback.Message.Timestamp = "1700000000.000001"

	socket.events <- socketmode.Event{
		Type: socketmode.EventTypeInteractive,
		Data: callback,
	}

	select {
	case msg := <-inbound:
		if msg.CallbackData != "br:clk:0" || msg.MessageID != "1700000000.000001" {
			t.Errorf("inbound = %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("block action never delivered")
	}
}
