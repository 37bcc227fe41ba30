// Package bridge connects the media-box controls to chat platforms
// (Discord, Slack).
package bridge

import (
	"context"
	"time"
)

// Adapter is the interface that platform-specific implementations must
// satisfy. Each adapter handles connection management, message delivery,
// and button interactions for a single chat platform.
type Adapter interface {
	// Connect establishes a connection to the chat platform.
	Connect(ctx context.Context) error

	// Listen returns a channel of inbound messages from the platform.
	// The channel is closed when the context is cancelled or the
	// adapter is closed. Listen must only be called after Connect.
	Listen(ctx context.Context) (<-chan InboundMessage, error)

	// Send delivers an outbound message and returns the platform
	// message ID, used later for Edit and Delete.
	Send(ctx context.Context, msg OutboundMessage) (string, error)

	// Edit replaces the text and buttons of a previously sent message.
	Edit(ctx context.Context, messageID string, msg OutboundMessage) error

	// Delete removes a previously sent message.
	Delete(ctx context.Context, channelID, messageID string) error

	// Close gracefully shuts down the adapter connection.
	Close() error
}

// InboundMessage represents a message or button press received from
// the chat platform. Exactly one of Text and CallbackData is set.
type InboundMessage struct {
	Platform     string // e.g. "discord", "slack"
	ChannelID    string // platform-specific channel identifier
	MessageID    string // the message the event belongs to
	UserID       string // platform-specific user identifier
	UserName     string // human-readable username
	Text         string // raw message text
	CallbackData string // button payload, empty for plain messages
	Timestamp    time.Time
}

// OutboundMessage represents a message to be sent to the chat platform.
type OutboundMessage struct {
	ChannelID string
	Text      string     // platform-native formatting
	Buttons   [][]Button // rows of inline buttons, nil for plain text
}

// Button is one inline button.
type Button struct {
	Label string
	Data  string // callback payload delivered back on press
}
