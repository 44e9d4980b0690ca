// Package chat holds the transport-neutral message types exchanged between
// the conversation core and the messaging adapter.
package chat

import "context"

// Contact is a shared phone contact.
type Contact struct {
	Phone  string
	UserID int64
}

// Inbound is one event from a caller: a message or a button press.
type Inbound struct {
	CallerID  int64
	ChatID    int64
	MessageID int

	Text    string
	Contact *Contact
	PhotoID string // largest size
	VideoID string
	Caption string

	CallbackID   string
	CallbackData string
}

// IsCallback reports whether the event is an inline button press.
func (in Inbound) IsCallback() bool { return in.CallbackID != "" }

// HasMedia reports whether the message carries a photo or video.
func (in Inbound) HasMedia() bool { return in.PhotoID != "" || in.VideoID != "" }

// ReplyButton is a button on the persistent reply keyboard.
type ReplyButton struct {
	Text           string
	RequestContact bool
}

// InlineButton is a button attached to a message.
type InlineButton struct {
	Text string
	Data string
}

// Outbound is one message to deliver to a chat.
//
// When PhotoID or VideoID is set the message is sent as that media with
// Text as its caption. EditMessageID replaces the text (and inline
// keyboard) of an earlier message instead of sending a new one.
type Outbound struct {
	ChatID int64
	Text   string
	HTML   bool

	PhotoID string
	VideoID string

	Reply          [][]ReplyButton
	Inline         [][]InlineButton
	RemoveKeyboard bool

	EditMessageID int
}

// Sender delivers outbound messages.
type Sender interface {
	Send(ctx context.Context, msg Outbound) error
}

// Messenger is a Sender that can also acknowledge button presses.
type Messenger interface {
	Sender
	AnswerCallback(ctx context.Context, callbackID, text string) error
}
