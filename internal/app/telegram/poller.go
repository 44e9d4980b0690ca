package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// pollTimeout is the long-poll wait in seconds.
const pollTimeout = 30

// UpdateSource is the part of *tgbotapi.BotAPI used for long polling.
type UpdateSource interface {
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Poller receives updates by long polling and feeds the dispatcher.
type Poller struct {
	src UpdateSource
	d   *Dispatcher
	log *zap.Logger
}

func NewPoller(src UpdateSource, d *Dispatcher, logger *zap.Logger) *Poller {
	return &Poller{src: src, d: d, log: logger}
}

// Run polls until ctx is canceled. Any registered webhook is removed first
// because Telegram refuses getUpdates while one is set.
func (p *Poller) Run(ctx context.Context) error {
	if _, err := p.src.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("telegram: delete webhook: %w", err)
	}

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeout
	updates := p.src.GetUpdatesChan(cfg)
	p.log.Info("telegram polling started")

	for {
		select {
		case <-ctx.Done():
			p.src.StopReceivingUpdates()
			p.log.Info("telegram polling stopped")
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			p.dispatch(u)
		}
	}
}

func (p *Poller) dispatch(u tgbotapi.Update) {
	in, ok := Inbound(u)
	if !ok {
		p.log.Debug("ignoring update", zap.Int("update_id", u.UpdateID))
		return
	}
	if err := p.d.Dispatch(in); err != nil {
		p.log.Warn("update not dispatched", zap.Int("update_id", u.UpdateID), zap.Error(err))
	}
}
