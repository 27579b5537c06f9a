package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
	"signal_bot/internal/strategy"
)

// Notifier доставляет сигнал. Ошибки доставки только логируются.
type Notifier interface {
	Notify(ctx context.Context, ev models.AlertEvent)
}

// символы, которые экранируем в текстовом фолбэке
const markdownSpecials = "*_`[~#+=<>!.-"

var markdownEscaper = func() *strings.Replacer {
	pairs := make([]string, 0, 2*len(markdownSpecials))
	for _, r := range markdownSpecials {
		pairs = append(pairs, string(r), `\`+string(r))
	}
	return strings.NewReplacer(pairs...)
}()

func EscapeMarkdown(s string) string { return markdownEscaper.Replace(s) }

type sender interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
}

// Telegram: сначала Markdown, при ошибке — экранированный plain text.
type Telegram struct {
	bot     sender
	chatID  int64
	channel string
	log     *zap.Logger
}

// NewBot — общий клиент Bot API для сигналов и команд. При NOTIFIER=stdout бота нет.
func NewBot(cfg *config.Config) (*tgbot.BotAPI, error) {
	if cfg.Notifier != config.NotifierTelegram {
		return nil, nil
	}
	b, err := tgbot.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, errors.Wrap(err, "telegram bot")
	}
	return b, nil
}

func newTelegram(bot sender, cfg *config.Config, log *zap.Logger) *Telegram {
	t := &Telegram{bot: bot, log: log.Named("telegram")}
	if id, ok := cfg.ChatIDInt(); ok {
		t.chatID = id
	} else {
		t.channel = cfg.Telegram.ChatID
	}
	return t
}

func (t *Telegram) message(text string) tgbot.MessageConfig {
	var msg tgbot.MessageConfig
	if t.channel != "" {
		msg = tgbot.NewMessageToChannel(t.channel, text)
	} else {
		msg = tgbot.NewMessage(t.chatID, text)
	}
	msg.DisableWebPagePreview = true
	return msg
}

func (t *Telegram) Notify(_ context.Context, ev models.AlertEvent) {
	text := strategy.FormatAlert(ev)
	log := t.log.With(zap.String("symbol", ev.Symbol), zap.String("direction", string(ev.Direction)))

	msg := t.message(text)
	msg.ParseMode = tgbot.ModeMarkdown
	_, err := t.bot.Send(msg)
	if err == nil {
		log.Info("alert sent")
		return
	}
	log.Error("alert send failed (markdown)", zap.Error(err))

	if _, err = t.bot.Send(t.message(EscapeMarkdown(text))); err != nil {
		log.Error("alert send failed (plain text)", zap.Error(err))
		return
	}
	log.Info("alert sent as plain text")
}

// Stdout пишет текст сигнала в w и дублирует в лог. Для NOTIFIER=stdout и команды check.
type Stdout struct {
	w   io.Writer
	log *zap.Logger
}

func NewStdout(w io.Writer, log *zap.Logger) *Stdout {
	if w == nil {
		w = os.Stdout
	}
	return &Stdout{w: w, log: log.Named("stdout")}
}

func (s *Stdout) Notify(_ context.Context, ev models.AlertEvent) {
	text := strategy.FormatAlert(ev)
	if _, err := fmt.Fprintf(s.w, "%s\n\n", text); err != nil {
		s.log.Error("alert write failed", zap.String("symbol", ev.Symbol), zap.Error(err))
		return
	}
	s.log.Info("alert",
		zap.String("symbol", ev.Symbol),
		zap.String("direction", string(ev.Direction)),
		zap.String("entry", ev.EntryPrice.String()),
		zap.String("stop", ev.StopLoss.String()),
	)
}

// New выбирает доставку по cfg.Notifier.
func New(cfg *config.Config, bot *tgbot.BotAPI, log *zap.Logger) (Notifier, error) {
	switch cfg.Notifier {
	case config.NotifierStdout:
		return NewStdout(os.Stdout, log), nil
	case config.NotifierTelegram:
		if bot == nil {
			return nil, errors.New("telegram notifier without bot")
		}
		return newTelegram(bot, cfg, log), nil
	}
	return nil, errors.Errorf("unknown notifier %q", cfg.Notifier)
}
