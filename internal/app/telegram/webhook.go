package telegram

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dalemusser/filescout/internal/app/system/limits"
	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Webhook receives updates pushed by Telegram. It is mounted at a path
// containing a secret segment, which is compared before anything is read.
type Webhook struct {
	d      *Dispatcher
	secret string
	log    *zap.Logger
}

func NewWebhook(d *Dispatcher, secret string, logger *zap.Logger) *Webhook {
	return &Webhook{d: d, secret: secret, log: logger}
}

// Routes mounts the receiver under /{secret}.
func (wh *Webhook) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/{secret}", wh.Serve)
	return r
}

// Serve handles POST /telegram/{secret}. Telegram retries on non-2xx
// responses, so only malformed bodies are rejected; a full caller queue is
// still acknowledged.
func (wh *Webhook) Serve(w http.ResponseWriter, r *http.Request) {
	got := chi.URLParam(r, "secret")
	if wh.secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(wh.secret)) != 1 {
		http.NotFound(w, r)
		return
	}

	var u tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxUpdateBody)).Decode(&u); err != nil {
		wh.log.Warn("webhook: bad update body", zap.Error(err))
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if in, ok := Inbound(u); ok {
		if err := wh.d.Dispatch(in); err != nil {
			wh.log.Warn("webhook: update not dispatched", zap.Int("update_id", u.UpdateID), zap.Error(err))
		}
	}
	w.WriteHeader(http.StatusOK)
}

// RegisterWebhook points Telegram at url.
func RegisterWebhook(api API, url string) error {
	cfg, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("telegram: webhook url: %w", err)
	}
	if _, err := api.Request(cfg); err != nil {
		return fmt.Errorf("telegram: set webhook: %w", err)
	}
	return nil
}
