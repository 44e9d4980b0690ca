package testutil

import (
	"context"
	"sync"

	"github.com/dalemusser/filescout/internal/app/chat"
)

// Messenger records everything sent through it. FailChats makes Send fail
// for the listed chat ids.
type Messenger struct {
	mu        sync.Mutex
	Sent      []chat.Outbound
	Answers   []string
	FailChats map[int64]error
}

var _ chat.Messenger = (*Messenger)(nil)

func NewMessenger() *Messenger {
	return &Messenger{FailChats: map[int64]error{}}
}

func (m *Messenger) Send(ctx context.Context, msg chat.Outbound) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailChats[msg.ChatID]; err != nil {
		return err
	}
	m.Sent = append(m.Sent, msg)
	return nil
}

func (m *Messenger) AnswerCallback(ctx context.Context, callbackID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Answers = append(m.Answers, text)
	return nil
}

// Last returns the most recent message, or a zero Outbound.
func (m *Messenger) Last() chat.Outbound {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return chat.Outbound{}
	}
	return m.Sent[len(m.Sent)-1]
}

// To returns the messages delivered to chatID.
func (m *Messenger) To(chatID int64) []chat.Outbound {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []chat.Outbound
	for _, s := range m.Sent {
		if s.ChatID == chatID {
			out = append(out, s)
		}
	}
	return out
}

// Reset drops recorded messages.
func (m *Messenger) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = nil
	m.Answers = nil
}
