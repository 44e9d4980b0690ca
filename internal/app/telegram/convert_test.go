package telegram

import (
	"testing"

	"github.com/dalemusser/filescout/internal/app/chat"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestInbound_Message(t *testing.T) {
	u := tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 5,
		From:      &tgbotapi.User{ID: 42},
		Chat:      &tgbotapi.Chat{ID: 4200},
		Text:      "hello",
	}}
	in, ok := Inbound(u)
	if !ok {
		t.Fatal("message update ignored")
	}
	want := chat.Inbound{CallerID: 42, ChatID: 4200, MessageID: 5, Text: "hello"}
	if in.CallerID != want.CallerID || in.ChatID != want.ChatID || in.MessageID != want.MessageID || in.Text != want.Text {
		t.Errorf("in = %+v, want %+v", in, want)
	}
	if in.IsCallback() || in.HasMedia() || in.Contact != nil {
		t.Errorf("unexpected extras: %+v", in)
	}
}

func TestInbound_ContactAndMedia(t *testing.T) {
	u := tgbotapi.Update{Message: &tgbotapi.Message{
		From:    &tgbotapi.User{ID: 1},
		Chat:    &tgbotapi.Chat{ID: 1},
		Contact: &tgbotapi.Contact{PhoneNumber: "+375291234567", UserID: 1},
		Photo: []tgbotapi.PhotoSize{
			{FileID: "small", Width: 90, Height: 90},
			{FileID: "large", Width: 1280, Height: 960},
			{FileID: "medium", Width: 320, Height: 240},
		},
		Video:   &tgbotapi.Video{FileID: "vid"},
		Caption: "cap",
	}}
	in, ok := Inbound(u)
	if !ok {
		t.Fatal("ignored")
	}
	if in.Contact == nil || in.Contact.Phone != "+375291234567" || in.Contact.UserID != 1 {
		t.Errorf("contact = %+v", in.Contact)
	}
	if in.PhotoID != "large" {
		t.Errorf("PhotoID = %q, want largest", in.PhotoID)
	}
	if in.VideoID != "vid" || in.Caption != "cap" {
		t.Errorf("video/caption = %q/%q", in.VideoID, in.Caption)
	}
}

func TestInbound_Callback(t *testing.T) {
	u := tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb",
		From: &tgbotapi.User{ID: 7},
		Data: "delete_user:375291234567",
		Message: &tgbotapi.Message{
			MessageID: 99,
			Chat:      &tgbotapi.Chat{ID: 700},
		},
	}}
	in, ok := Inbound(u)
	if !ok {
		t.Fatal("ignored")
	}
	if !in.IsCallback() || in.CallerID != 7 || in.ChatID != 700 || in.MessageID != 99 || in.CallbackData != "delete_user:375291234567" {
		t.Errorf("in = %+v", in)
	}
}

func TestInbound_Ignored(t *testing.T) {
	tests := []struct {
		name string
		u    tgbotapi.Update
	}{
		{"empty", tgbotapi.Update{}},
		{"edited", tgbotapi.Update{EditedMessage: &tgbotapi.Message{Text: "x"}}},
		{"channel post without sender", tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}}}},
		{"callback without sender", tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{ID: "x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := Inbound(tt.u); ok {
				t.Error("update should be ignored")
			}
		})
	}
}

func TestOutgoing(t *testing.T) {
	t.Run("text with contact keyboard", func(t *testing.T) {
		c, err := Outgoing(chat.Outbound{
			ChatID: 1,
			Text:   "<b>hi</b>",
			HTML:   true,
			Reply:  [][]chat.ReplyButton{{{Text: "login", RequestContact: true}, {Text: "plain"}}},
		})
		if err != nil {
			t.Fatalf("Outgoing: %v", err)
		}
		msg, ok := c.(tgbotapi.MessageConfig)
		if !ok {
			t.Fatalf("type = %T", c)
		}
		if msg.ParseMode != tgbotapi.ModeHTML || msg.Text != "<b>hi</b>" {
			t.Errorf("msg = %+v", msg)
		}
		kb, ok := msg.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
		if !ok {
			t.Fatalf("markup = %T", msg.ReplyMarkup)
		}
		if !kb.Keyboard[0][0].RequestContact || kb.Keyboard[0][1].RequestContact {
			t.Errorf("keyboard = %+v", kb.Keyboard)
		}
	})

	t.Run("remove keyboard", func(t *testing.T) {
		c, _ := Outgoing(chat.Outbound{ChatID: 1, Text: "x", RemoveKeyboard: true})
		msg := c.(tgbotapi.MessageConfig)
		if _, ok := msg.ReplyMarkup.(tgbotapi.ReplyKeyboardRemove); !ok {
			t.Errorf("markup = %T", msg.ReplyMarkup)
		}
		if msg.ParseMode != "" {
			t.Errorf("ParseMode = %q for plain text", msg.ParseMode)
		}
	})

	t.Run("photo with caption", func(t *testing.T) {
		c, _ := Outgoing(chat.Outbound{ChatID: 1, Text: "cap", PhotoID: "ph"})
		p, ok := c.(tgbotapi.PhotoConfig)
		if !ok {
			t.Fatalf("type = %T", c)
		}
		if p.Caption != "cap" || p.File != tgbotapi.FileID("ph") {
			t.Errorf("photo = %+v", p)
		}
	})

	t.Run("video", func(t *testing.T) {
		c, _ := Outgoing(chat.Outbound{ChatID: 1, VideoID: "v"})
		if _, ok := c.(tgbotapi.VideoConfig); !ok {
			t.Fatalf("type = %T", c)
		}
	})

	t.Run("edit with inline buttons", func(t *testing.T) {
		c, _ := Outgoing(chat.Outbound{
			ChatID:        1,
			Text:          "card",
			EditMessageID: 9,
			Inline:        [][]chat.InlineButton{{{Text: "del", Data: "delete_user:1"}}},
		})
		e, ok := c.(tgbotapi.EditMessageTextConfig)
		if !ok {
			t.Fatalf("type = %T", c)
		}
		if e.MessageID != 9 || e.ReplyMarkup == nil || e.ReplyMarkup.InlineKeyboard[0][0].CallbackData == nil ||
			*e.ReplyMarkup.InlineKeyboard[0][0].CallbackData != "delete_user:1" {
			t.Errorf("edit = %+v", e)
		}
	})

	t.Run("edit drops buttons", func(t *testing.T) {
		c, _ := Outgoing(chat.Outbound{ChatID: 1, Text: "done", EditMessageID: 9})
		if e := c.(tgbotapi.EditMessageTextConfig); e.ReplyMarkup != nil {
			t.Errorf("markup = %+v", e.ReplyMarkup)
		}
	})

	t.Run("errors", func(t *testing.T) {
		if _, err := Outgoing(chat.Outbound{Text: "x"}); err == nil {
			t.Error("expected error without chat id")
		}
		if _, err := Outgoing(chat.Outbound{ChatID: 1}); err == nil {
			t.Error("expected error for empty message")
		}
	})
}
