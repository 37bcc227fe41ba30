package discord

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/skiffbot/skiff/internal/bridge"
)

// mockSession implements session for testing.
type mockSession struct {
	mu         sync.Mutex
	opened     bool
	closed     bool
	handlers   []interface{}
	sent       []*discordgo.MessageSend
	edits      []*discordgo.MessageEdit
	deleted    []string
	sendErrs   []error // popped per ChannelMessageSendComplex call
	interacted int
}

func (m *mockSession) Open() error  { m.opened = true; return nil }
func (m *mockSession) Close() error { m.closed = true; return nil }
func (m *mockSession) AddHandler(handler interface{}) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler)
	return func() {}
}
func (m *mockSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sendErrs) > 0 {
		err := m.sendErrs[0]
		m.sendErrs = m.sendErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	m.sent = append(m.sent, data)
	return &discordgo.Message{ID: "m1", ChannelID: channelID}, nil
}
func (m *mockSession) ChannelMessageEditComplex(edit *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits = append(m.edits, edit)
	return &discordgo.Message{ID: edit.ID}, nil
}
func (m *mockSession) ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, messageID)
	return nil
}
func (m *mockSession) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interacted++
	return nil
}

func connectedAdapter(t *testing.T) (*Adapter, *mockSession) {
	t.Helper()
	sess := &mockSession{}
	a, err := New(AdapterOpts{Session: sess, ChannelID: "default-ch"})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return a, sess
}

func TestNew_RequiresTokenOrSession(t *testing.T) {
	if _, err := New(AdapterOpts{}); err == nil {
		t.Fatal("empty opts accepted")
	}
	if _, err := New(AdapterOpts{BotToken: "token"}); err != nil {
		t.Fatalf("token-only opts rejected: %v", err)
	}
}

func TestSend_ButtonsBecomeActionRows(t *testing.T) {
	a, sess := connectedAdapter(t)

	id, err := a.Send(context.Background(), bridge.OutboundMessage{
		ChannelID: "ch1",
		Text:      "pick one",
		Buttons: [][]bridge.Button{
			{{Label: "A", Data: "br:clk:0"}, {Label: "B", Data: "br:clk:1"}},
			{{Label: "Close", Data: "br:close"}},
		},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if id != "m1" {
		t.Errorf("message id = %q", id)
	}
	if len(sess.sent) != 1 {
		t.Fatalf("sent = %d", len(sess.sent))
	}
	data := sess.sent[0]
	if len(data.Components) != 2 {
		t.Fatalf("component rows = %d", len(data.Components))
	}
	row, ok := data.Components[0].(discordgo.ActionsRow)
	if !ok {
		t.Fatalf("row type = %T", data.Components[0])
	}
	btn, ok := row.Components[0].(discordgo.Button)
	if !ok || btn.CustomID != "br:clk:0" || btn.Label != "A" {
		t.Errorf("button = %+v", row.Components[0])
	}
}

func TestSend_DefaultChannel(t *testing.T) {
	a, sess := connectedAdapter(t)
	if _, err := a.Send(context.Background(), bridge.OutboundMessage{Text: "hi"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(sess.sent) != 1 {
		t.Errorf("sent = %d", len(sess.sent))
	}
}

func TestEdit(t *testing.T) {
	a, sess := connectedAdapter(t)
	err := a.Edit(context.Background(), "m1", bridge.OutboundMessage{ChannelID: "ch1", Text: "updated"})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if len(sess.edits) != 1 || sess.edits[0].ID != "m1" || *sess.edits[0].Content != "updated" {
		t.Errorf("edit = %+v", sess.edits)
	}
}

func TestHandleMessage_FiltersBots(t *testing.T) {
	a, _ := connectedAdapter(t)
	if _, err := a.Listen(context.Background()); err != nil {
		t.Fatalf("listen: %v", err)
	}

	a.handleMessage(&discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "x1",
		ChannelID: "ch1",
		Author:    &discordgo.User{ID: "bot", Bot: true},
		Content:   "beep",
	}})
	select {
	case msg := <-a.inbound:
		t.Fatalf("bot message passed through: %+v", msg)
	default:
	}

	a.handleMessage(&discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "x2",
		ChannelID: "ch1",
		Author:    &discordgo.User{ID: "u1", Username: "op"},
		Content:   "/start",
	}})
	select {
	case msg := <-a.inbound:
		if msg.Text != "/start" || msg.UserID != "u1" || msg.CallbackData != "" {
			t.Errorf("inbound = %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("user message dropped")
	}
}

func TestHandleInteraction(t *testing.T) {
	a, sess := connectedAdapter(t)

	a.handleInteraction(&discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:      discordgo.InteractionMessageComponent,
		ChannelID: "ch1",
		User:      &discordgo.User{ID: "u1", Username: "op"},
		Message:   &discordgo.Message{ID: "grid-1"},
		Data:      discordgo.MessageComponentInteractionData{CustomID: "br:pg:1"},
	}})

	select {
	case msg := <-a.inbound:
		if msg.CallbackData != "br:pg:1" || msg.MessageID != "grid-1" {
			t.Errorf("inbound = %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("interaction dropped")
	}
	if sess.interacted != 1 {
		t.Errorf("interaction not acknowledged")
	}
}

func TestRetryOnRateLimit(t *testing.T) {
	a, sess := connectedAdapter(t)
	a.baseBackoff = time.Millisecond
	sess.sendErrs = []error{
		&discordgo.RESTError{Response: &http.Response{StatusCode: 429}},
		nil,
	}

	if _, err := a.Send(context.Background(), bridge.OutboundMessage{ChannelID: "ch1", Text: "x"}); err != nil {
		t.Fatalf("send after rate limit: %v", err)
	}
	if len(sess.sent) != 1 {
		t.Errorf("sent = %d, want the retried message", len(sess.sent))
	}
}

func TestClose_Idempotent(t *testing.T) {
	a, sess := connectedAdapter(t)
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if !sess.closed {
		t.Error("session not closed")
	}
}
