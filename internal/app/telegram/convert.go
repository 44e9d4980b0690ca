package telegram

import (
	"fmt"

	"github.com/dalemusser/filescout/internal/app/chat"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Inbound converts an update into a chat event. ok is false for update
// kinds the gateway ignores (edits, channel posts, inline queries).
func Inbound(u tgbotapi.Update) (in chat.Inbound, ok bool) {
	if cb := u.CallbackQuery; cb != nil {
		if cb.From == nil {
			return chat.Inbound{}, false
		}
		in = chat.Inbound{
			CallerID:     cb.From.ID,
			ChatID:       cb.From.ID,
			CallbackID:   cb.ID,
			CallbackData: cb.Data,
		}
		if cb.Message != nil {
			in.MessageID = cb.Message.MessageID
			if cb.Message.Chat != nil {
				in.ChatID = cb.Message.Chat.ID
			}
		}
		return in, true
	}

	m := u.Message
	if m == nil || m.From == nil || m.Chat == nil {
		return chat.Inbound{}, false
	}
	in = chat.Inbound{
		CallerID:  m.From.ID,
		ChatID:    m.Chat.ID,
		MessageID: m.MessageID,
		Text:      m.Text,
		Caption:   m.Caption,
	}
	if m.Contact != nil {
		in.Contact = &chat.Contact{Phone: m.Contact.PhoneNumber, UserID: m.Contact.UserID}
	}
	if p := largestPhoto(m.Photo); p != "" {
		in.PhotoID = p
	}
	if m.Video != nil {
		in.VideoID = m.Video.FileID
	}
	return in, true
}

// largestPhoto picks the biggest rendition of a photo.
func largestPhoto(sizes []tgbotapi.PhotoSize) string {
	best, area := "", -1
	for _, s := range sizes {
		if a := s.Width * s.Height; a > area {
			best, area = s.FileID, a
		}
	}
	return best
}

// Outgoing builds the Bot API request for out.
func Outgoing(out chat.Outbound) (tgbotapi.Chattable, error) {
	if out.ChatID == 0 {
		return nil, fmt.Errorf("outbound message without chat id")
	}
	parseMode := ""
	if out.HTML {
		parseMode = tgbotapi.ModeHTML
	}

	if out.EditMessageID != 0 {
		if len(out.Inline) > 0 {
			e := tgbotapi.NewEditMessageTextAndMarkup(out.ChatID, out.EditMessageID, out.Text, inlineMarkup(out.Inline))
			e.ParseMode = parseMode
			return e, nil
		}
		e := tgbotapi.NewEditMessageText(out.ChatID, out.EditMessageID, out.Text)
		e.ParseMode = parseMode
		return e, nil
	}

	markup := replyMarkup(out)
	switch {
	case out.PhotoID != "":
		p := tgbotapi.NewPhoto(out.ChatID, tgbotapi.FileID(out.PhotoID))
		p.Caption = out.Text
		p.ParseMode = parseMode
		p.ReplyMarkup = markup
		return p, nil
	case out.VideoID != "":
		v := tgbotapi.NewVideo(out.ChatID, tgbotapi.FileID(out.VideoID))
		v.Caption = out.Text
		v.ParseMode = parseMode
		v.ReplyMarkup = markup
		return v, nil
	}

	if out.Text == "" {
		return nil, fmt.Errorf("empty message to chat %d", out.ChatID)
	}
	msg := tgbotapi.NewMessage(out.ChatID, out.Text)
	msg.ParseMode = parseMode
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = markup
	return msg, nil
}

// replyMarkup returns nil when the message leaves the keyboard alone.
func replyMarkup(out chat.Outbound) interface{} {
	switch {
	case len(out.Inline) > 0:
		return inlineMarkup(out.Inline)
	case len(out.Reply) > 0:
		rows := make([][]tgbotapi.KeyboardButton, 0, len(out.Reply))
		for _, r := range out.Reply {
			row := make([]tgbotapi.KeyboardButton, 0, len(r))
			for _, b := range r {
				if b.RequestContact {
					row = append(row, tgbotapi.NewKeyboardButtonContact(b.Text))
				} else {
					row = append(row, tgbotapi.NewKeyboardButton(b.Text))
				}
			}
			rows = append(rows, row)
		}
		kb := tgbotapi.NewReplyKeyboard(rows...)
		kb.ResizeKeyboard = true
		return kb
	case out.RemoveKeyboard:
		return tgbotapi.NewRemoveKeyboard(true)
	}
	return nil
}

func inlineMarkup(rows [][]chat.InlineButton) tgbotapi.InlineKeyboardMarkup {
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, r := range rows {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		out = append(out, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...)
}
