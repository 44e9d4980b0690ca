package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dalemusser/filescout/internal/app/chat"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// fakeBot records every request. It serves as API and UpdateSource.
type fakeBot struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	err      error

	updates chan tgbotapi.Update
	stopped bool
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBot) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeBot) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func TestClient_Send(t *testing.T) {
	bot := &fakeBot{}
	c := NewClient(bot, zap.NewNop())

	if err := c.Send(context.Background(), chat.Outbound{ChatID: 3, Text: "hi"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(bot.sent) != 1 {
		t.Fatalf("sent = %d", len(bot.sent))
	}
	if msg := bot.sent[0].(tgbotapi.MessageConfig); msg.ChatID != 3 || msg.Text != "hi" {
		t.Errorf("msg = %+v", msg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Send(ctx, chat.Outbound{ChatID: 3, Text: "late"}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if len(bot.sent) != 1 {
		t.Error("sent after cancellation")
	}

	bot.err = errors.New("Forbidden: bot was blocked by the user")
	if err := c.Send(context.Background(), chat.Outbound{ChatID: 3, Text: "x"}); !errors.Is(err, bot.err) {
		t.Errorf("err = %v, want wrapped API error", err)
	}
}

func TestClient_AnswerCallback(t *testing.T) {
	bot := &fakeBot{}
	c := NewClient(bot, zap.NewNop())
	if err := c.AnswerCallback(context.Background(), "cb-1", "done"); err != nil {
		t.Fatalf("AnswerCallback: %v", err)
	}
	cfg, ok := bot.requests[0].(tgbotapi.CallbackConfig)
	if !ok || cfg.CallbackQueryID != "cb-1" || cfg.Text != "done" {
		t.Errorf("request = %+v", bot.requests[0])
	}
}

func TestRegisterWebhook(t *testing.T) {
	bot := &fakeBot{}
	if err := RegisterWebhook(bot, "https://bot.example.com/telegram/s3cret"); err != nil {
		t.Fatalf("RegisterWebhook: %v", err)
	}
	if _, ok := bot.requests[0].(tgbotapi.WebhookConfig); !ok {
		t.Errorf("request = %T", bot.requests[0])
	}
	if err := RegisterWebhook(bot, "://bad"); err == nil {
		t.Error("expected error for malformed url")
	}
}
