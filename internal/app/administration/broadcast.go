package administration

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/dalemusser/filescout/internal/app/chat"
	"github.com/dalemusser/filescout/internal/app/system/authz"
	"github.com/dalemusser/filescout/internal/app/system/limits"
	"github.com/dalemusser/filescout/internal/app/system/normalize"
	"github.com/dalemusser/filescout/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Message is broadcast content. Exactly one of PhotoID or VideoID may be
// set; Text is then the caption.
type Message struct {
	Text    string
	PhotoID string
	VideoID string
}

// Kind is "photo", "video" or "text".
func (m Message) Kind() string {
	switch {
	case m.PhotoID != "":
		return "photo"
	case m.VideoID != "":
		return "video"
	}
	return "text"
}

func (m Message) empty() bool {
	return m.Text == "" && m.PhotoID == "" && m.VideoID == ""
}

// tooLong reports whether Text exceeds the limit for its kind.
func (m Message) tooLong() bool {
	max := limits.MaxMessageText
	if m.Kind() != "text" {
		max = limits.MaxCaption
	}
	return utf8.RuneCountInString(m.Text) > max
}

// BroadcastResult tallies one fan-out. Skipped members have no chat
// binding; Failed members had one but delivery failed.
type BroadcastResult struct {
	Recipients int
	Sent       int
	Skipped    int
	Failed     int
}

// Broadcast delivers msg to every member of group that has a chat
// binding. Unbound members are skipped and per-recipient failures are
// counted, neither fails the batch.
func (s *Service) Broadcast(ctx context.Context, actor authz.Subject, group string, msg Message) (BroadcastResult, error) {
	if err := authz.Authorize(actor, authz.ActionBroadcast); err != nil {
		return BroadcastResult{}, err
	}
	if msg.empty() {
		return BroadcastResult{}, ErrEmptyMessage
	}
	if msg.tooLong() {
		return BroadcastResult{}, ErrMessageTooLong
	}
	group = normalize.GroupName(group)
	if err := s.requireGroup(ctx, group); err != nil {
		return BroadcastResult{}, err
	}

	members, err := s.repo.ListMembersByGroup(ctx, group)
	if err != nil {
		return BroadcastResult{}, fmt.Errorf("broadcast: list members: %w", err)
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Broadcast(), s.log, "administration.broadcast")
	defer cancel()

	res := BroadcastResult{Recipients: len(members)}
	for _, m := range members {
		if !m.Bound() {
			res.Skipped++
			continue
		}
		out := chat.Outbound{
			ChatID:  *m.ChatID,
			Text:    msg.Text,
			PhotoID: msg.PhotoID,
			VideoID: msg.VideoID,
		}
		if err := s.send(ctx, out); err != nil {
			res.Failed++
			s.log.Warn("broadcast delivery failed",
				zap.String("group", group),
				zap.String("phone", m.Phone),
				zap.Int64("chat_id", *m.ChatID),
				zap.Error(err))
			continue
		}
		res.Sent++
	}

	s.metrics.RecordBroadcast(res.Sent, res.Skipped, res.Failed)
	s.audit.BroadcastSent(ctx, actor.Phone, group, msg.Kind(), res.Sent, res.Skipped, res.Failed)
	return res, nil
}

func (s *Service) send(ctx context.Context, out chat.Outbound) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Send())
	defer cancel()
	return s.sender.Send(ctx, out)
}
