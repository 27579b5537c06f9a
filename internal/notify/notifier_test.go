package notify

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
	"signal_bot/internal/strategy"
)

type fakeSender struct {
	fail []bool // по одному на вызов
	sent []tgbot.MessageConfig
}

func (f *fakeSender) Send(c tgbot.Chattable) (tgbot.Message, error) {
	msg, ok := c.(tgbot.MessageConfig)
	if !ok {
		return tgbot.Message{}, errors.New("unexpected chattable")
	}
	f.sent = append(f.sent, msg)
	i := len(f.sent) - 1
	if i < len(f.fail) && f.fail[i] {
		return tgbot.Message{}, errors.New("Bad Request: can't parse entities")
	}
	return tgbot.Message{MessageID: i + 1}, nil
}

func longEvent() models.AlertEvent {
	v := func(s string) models.Value { return models.Available(decimal.RequireFromString(s)) }
	return strategy.ComposeAlert("BTC_USDT", models.DirectionLong, v("100.5"), v("2"), strategy.DefaultMultipliers(), 5, time.Now())
}

func testConfig(chat string) *config.Config {
	cfg := &config.Config{}
	cfg.Telegram.ChatID = chat
	return cfg
}

func TestEscapeMarkdown(t *testing.T) {
	got := EscapeMarkdown("*LONG* (BTC_USDT) 1.5-2 [x]")
	want := `\*LONG\* (BTC\_USDT) 1\.5\-2 \[x]`
	if got != want {
		t.Fatalf("expected %q got %q", want, got)
	}
	for _, r := range markdownSpecials {
		if EscapeMarkdown(string(r)) != `\`+string(r) {
			t.Fatalf("%q not escaped", r)
		}
	}
}

func TestTelegramMarkdownFirst(t *testing.T) {
	fs := &fakeSender{}
	tg := newTelegram(fs, testConfig("12345"), zap.NewNop())

	tg.Notify(context.Background(), longEvent())

	if len(fs.sent) != 1 {
		t.Fatalf("expected one send, got %d", len(fs.sent))
	}
	msg := fs.sent[0]
	if msg.ParseMode != tgbot.ModeMarkdown || !msg.DisableWebPagePreview {
		t.Fatalf("unexpected message options %+v", msg)
	}
	if msg.ChatID != 12345 {
		t.Fatalf("unexpected chat id %d", msg.ChatID)
	}
	if !strings.HasPrefix(msg.Text, "🟢 *LONG* (BTC_USDT)") {
		t.Fatalf("unexpected text %q", msg.Text)
	}
}

func TestTelegramFallbackToPlain(t *testing.T) {
	fs := &fakeSender{fail: []bool{true}}
	tg := newTelegram(fs, testConfig("@signals"), zap.NewNop())

	tg.Notify(context.Background(), longEvent())

	if len(fs.sent) != 2 {
		t.Fatalf("expected markdown + plain, got %d sends", len(fs.sent))
	}
	plain := fs.sent[1]
	if plain.ParseMode != "" {
		t.Fatalf("fallback must be plain text, got %q", plain.ParseMode)
	}
	if plain.ChannelUsername != "@signals" {
		t.Fatalf("unexpected channel %q", plain.ChannelUsername)
	}
	if plain.Text != EscapeMarkdown(fs.sent[0].Text) {
		t.Fatalf("fallback text must be escaped markdown, got %q", plain.Text)
	}
}

func TestTelegramBothFailLogged(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	fs := &fakeSender{fail: []bool{true, true}}
	tg := newTelegram(fs, testConfig("1"), zap.New(core))

	tg.Notify(context.Background(), longEvent())

	if n := logs.FilterMessage("alert send failed (plain text)").Len(); n != 1 {
		t.Fatalf("expected plain failure to be logged once, got %d", n)
	}
	if logs.FilterMessageSnippet("alert sent").Len() != 0 {
		t.Fatalf("did not expect success log")
	}
}

func TestStdout(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdout(&buf, zap.NewNop())

	ev := longEvent()
	s.Notify(context.Background(), ev)

	if !strings.Contains(buf.String(), strategy.FormatAlert(ev)) {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestNewSelectsNotifier(t *testing.T) {
	cfg := &config.Config{Notifier: config.NotifierStdout}
	n, err := New(cfg, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, ok := n.(*Stdout); !ok {
		t.Fatalf("expected stdout notifier, got %T", n)
	}

	if _, err := New(&config.Config{Notifier: "pager"}, nil, zap.NewNop()); err == nil {
		t.Fatalf("expected error for unknown notifier")
	}
}
