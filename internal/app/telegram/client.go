// Package telegram adapts the Telegram Bot API to the gateway's chat
// types: outbound delivery, update conversion, per-caller dispatch and the
// polling and webhook receivers.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/filescout/internal/app/chat"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// API is the part of *tgbotapi.BotAPI used for delivery.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Client delivers chat.Outbound messages through the Bot API.
type Client struct {
	api API
	log *zap.Logger
}

var _ chat.Messenger = (*Client)(nil)

func NewClient(api API, logger *zap.Logger) *Client {
	return &Client{api: api, log: logger}
}

// Connect authenticates token against the Bot API and returns the bot.
// endpoint may be empty for the public API; otherwise it is a format
// string like tgbotapi.APIEndpoint. requestTimeout bounds every HTTP call
// since the library does not take a context.
func Connect(token, endpoint string, requestTimeout time.Duration, debug bool, logger *zap.Logger) (*tgbotapi.BotAPI, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if err := tgbotapi.SetLogger(zap.NewStdLog(logger.Named("tgbotapi"))); err != nil {
		return nil, err
	}
	// Long polling holds requests open; leave room beyond the poll timeout.
	client := &http.Client{Timeout: requestTimeout + pollTimeout*time.Second}
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect: %w", err)
	}
	bot.Debug = debug
	logger.Info("telegram bot authorized", zap.String("username", bot.Self.UserName))
	return bot, nil
}

// Send delivers out. The context is checked before the request; the HTTP
// call itself is bounded by the client timeout.
func (c *Client) Send(ctx context.Context, out chat.Outbound) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := Outgoing(out)
	if err != nil {
		return err
	}
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("telegram: send to chat %d: %w", out.ChatID, err)
	}
	return nil
}

// AnswerCallback stops the client's loading indicator on a pressed button,
// optionally showing text as a toast.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("telegram: answer callback: %w", err)
	}
	return nil
}
