package service

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
	health "signal_bot/internal/modules/health/service"
	vd "signal_bot/internal/modules/volume_delta/service"
)

type botAPI interface {
	GetUpdatesChan(config tgbot.UpdateConfig) tgbot.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbot.Chattable) (tgbot.Message, error)
}

// Commands отвечает на /status и /delta, только в настроенном чате.
type Commands struct {
	api     botAPI
	cfg     *config.Config
	state   *health.State
	deltas  *vd.Registry
	symbols []string
	log     *zap.Logger

	wg sync.WaitGroup
}

func NewCommands(cfg *config.Config, bot *tgbot.BotAPI, state *health.State, deltas *vd.Registry, log *zap.Logger) *Commands {
	c := &Commands{
		cfg:     cfg,
		state:   state,
		deltas:  deltas,
		symbols: cfg.Symbols,
		log:     log.Named("telegram_commands"),
	}
	// без бота (NOTIFIER=stdout) команды выключены
	if bot != nil {
		c.api = bot
	}
	return c
}

func (c *Commands) Start() {
	if c.api == nil {
		return
	}
	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	updates := c.api.GetUpdatesChan(u)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for update := range updates {
			c.handleUpdate(update)
		}
	}()
	c.log.Info("telegram commands started")
}

func (c *Commands) Stop() {
	if c.api == nil {
		return
	}
	c.api.StopReceivingUpdates()
	c.wg.Wait()
}

func (c *Commands) allowed(chat *tgbot.Chat) bool {
	if chat == nil {
		return false
	}
	if id, ok := c.cfg.ChatIDInt(); ok {
		return chat.ID == id
	}
	return strings.EqualFold("@"+chat.UserName, c.cfg.Telegram.ChatID)
}

func (c *Commands) handleUpdate(update tgbot.Update) {
	msg := update.Message
	if msg == nil || !msg.IsCommand() || !c.allowed(msg.Chat) {
		return
	}

	var text string
	switch msg.Command() {
	case "status":
		text = c.statusText()
	case "delta":
		text = c.deltaText()
	default:
		return
	}

	reply := tgbot.NewMessage(msg.Chat.ID, text)
	reply.ReplyToMessageID = msg.MessageID
	if _, err := c.api.Send(reply); err != nil {
		c.log.Error("command reply failed", zap.String("command", msg.Command()), zap.Error(err))
	}
}

func (c *Commands) statusText() string {
	last := "—"
	if t := c.state.LastCycle(); !t.IsZero() {
		last = t.UTC().Format(time.RFC3339)
	}
	ready := "нет"
	if c.state.Ready() {
		ready = "да"
	}
	return fmt.Sprintf(
		"🩺 Статус\n"+
			"Готов: %s\n"+
			"Циклов: %d\n"+
			"Последний цикл: %s\n"+
			"Потоков сделок: %d/%d\n"+
			"Аптайм: %s",
		ready,
		c.state.Cycles(),
		last,
		c.state.Listeners(), len(c.symbols),
		c.state.Uptime().Truncate(time.Second),
	)
}

func (c *Commands) deltaText() string {
	var b strings.Builder
	b.WriteString("📊 Volume delta")
	for _, sym := range c.symbols {
		v := models.Unavailable()
		if s, ok := c.deltas.Snapshot(sym); ok {
			v = models.Available(s.Delta)
		}
		fmt.Fprintf(&b, "\n%s: %s", sym, helper.FormatDecimal(v, 2))
	}
	return b.String()
}
