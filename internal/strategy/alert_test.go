package strategy

import (
	"testing"
	"time"

	"signal_bot/internal/models"
)

func TestComposeAlertLong(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ev := ComposeAlert("BTCUSDT", models.DirectionLong, val("100"), val("2"), DefaultMultipliers(), 5, at)

	want := map[string]struct {
		got  models.Value
		want string
	}{
		"reentry": {ev.ReentryPrice, "98"},
		"stop":    {ev.StopLoss, "95"},
		"tp1":     {ev.Target1, "102"},
		"tp2":     {ev.Target2, "105"},
		"tp3":     {ev.Target3, "106"},
	}
	for name, c := range want {
		mustEqual(t, name, c.got, c.want)
	}
	if !ev.At.Equal(at) || ev.Leverage != 5 {
		t.Fatalf("unexpected event meta %+v", ev)
	}
}

func TestComposeAlertShort(t *testing.T) {
	ev := ComposeAlert("ETHUSDT", models.DirectionShort, val("100"), val("2"), DefaultMultipliers(), 5, time.Now())

	mustEqual(t, "reentry", ev.ReentryPrice, "102")
	mustEqual(t, "stop", ev.StopLoss, "105")
	mustEqual(t, "tp1", ev.Target1, "98")
	mustEqual(t, "tp2", ev.Target2, "95")
	mustEqual(t, "tp3", ev.Target3, "94")
}

func TestFormatAlert(t *testing.T) {
	ev := ComposeAlert("BTCUSDT", models.DirectionLong, val("100"), val("2"), DefaultMultipliers(), 5, time.Now())

	want := "🟢 *LONG* (BTCUSDT)\n" +
		"*Entrys:* 100 - 98\n" +
		"Leverage: 5X\n" +
		"*Tps:* 102 - 105 - 106\n" +
		"*Stop Loss:* 95"
	if got := FormatAlert(ev); got != want {
		t.Fatalf("unexpected text:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatAlertRoundsAndMarksMissing(t *testing.T) {
	ev := ComposeAlert("DOGEUSDT", models.DirectionShort, val("0.1234567"), models.Unavailable(), DefaultMultipliers(), 5, time.Now())

	want := "🔴 *SHORT* (DOGEUSDT)\n" +
		"*Entrys:* 0.12346 - N/A\n" +
		"Leverage: 5X\n" +
		"*Tps:* N/A - N/A - N/A\n" +
		"*Stop Loss:* N/A"
	if got := FormatAlert(ev); got != want {
		t.Fatalf("unexpected text:\n%s\nwant:\n%s", got, want)
	}
}
