package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"signal_bot/internal/strategy"
)

const (
	configFilePathENV     = "CONFIG_FILE"
	defaultConfigFilePath = "configs/values_local.yaml"

	NotifierTelegram = "telegram"
	NotifierStdout   = "stdout"
)

// ключи совпадают с именами env (viper сам приводит регистр)
const (
	keyTelegramToken  = "telegram_bot_token"
	keyTelegramChatID = "telegram_chat_id"
	keyNotifier       = "notifier"

	keySymbols       = "pares_monitorados"
	keyIntervalMS    = "intervalo_verificacao_ms"
	keyFirstDelay    = "first_check_delay"
	keySymbolPause   = "symbol_pause"
	keyFetchTimeout  = "fetch_timeout"
	keyCooldown      = "signal_cooldown"
	keyDeltaWindow   = "volume_delta_window"
	keyLeverage      = "leverage_default"
	keyRestURL       = "binance_rest_url"
	keyWSURL         = "binance_ws_url"
	keyHealthAddr    = "health_addr"
	keyTracingHost   = "tracing_host"
	keyTracingPort   = "tracing_port"
	keyLogLevel      = "log_level"
	keyCCIPeriod     = "cci_period"
	keyCCISMAPeriod  = "cci_sma_period"
	keyRSIPeriod     = "rsi_period"
	keyATRPeriod     = "atr_period"
	keyLSRBuy        = "lsr_buy_threshold"
	keyLSRSell       = "lsr_sell_threshold"
	keyOIChange      = "oi_percent_change_threshold"
	keyVolumeDelta   = "volume_delta_threshold"
	keyReentryMult   = "atr_reentry_multiplier"
	keyStopMult      = "atr_final_stop_multiplier"
	keyTarget1Mult   = "target_1_atr_mult"
	keyTarget2Mult   = "target_2_atr_mult"
	keyTarget3Mult   = "target_3_atr_mult"
	maskedSecret     = "***"
	symbolsSeparator = ","
)

type Config struct {
	Telegram struct {
		Token  string
		ChatID string // числовой id или @channel
	}
	Notifier string

	Symbols         []string
	CycleInterval   time.Duration
	FirstCheckDelay time.Duration
	SymbolPause     time.Duration
	FetchTimeout    time.Duration
	Cooldown        time.Duration
	DeltaWindow     time.Duration
	Leverage        int

	Exchange struct {
		RestURL string
		WSURL   string
	}

	Strategy    strategy.Params
	Multipliers strategy.Multipliers

	HealthAddr string
	Tracing    struct {
		Host string
		Port int
	}
	LogLevel string

	v *viper.Viper
}

func setDefaults(v *viper.Viper) {
	p := strategy.DefaultParams()
	m := strategy.DefaultMultipliers()

	v.SetDefault(keyTelegramToken, "")
	v.SetDefault(keyTelegramChatID, "")
	v.SetDefault(keyNotifier, NotifierTelegram)

	v.SetDefault(keySymbols, "BTCUSDT,ETHUSDT")
	v.SetDefault(keyIntervalMS, 300000)
	v.SetDefault(keyFirstDelay, "5s")
	v.SetDefault(keySymbolPause, "1s")
	v.SetDefault(keyFetchTimeout, "10s")
	v.SetDefault(keyCooldown, "30m")
	v.SetDefault(keyDeltaWindow, "60s")
	v.SetDefault(keyLeverage, 5)

	v.SetDefault(keyRestURL, "https://fapi.binance.com")
	v.SetDefault(keyWSURL, "wss://fstream.binance.com/ws")

	v.SetDefault(keyHealthAddr, ":8080")
	v.SetDefault(keyTracingHost, "")
	v.SetDefault(keyTracingPort, 6831)
	v.SetDefault(keyLogLevel, "info")

	v.SetDefault(keyCCIPeriod, p.CCIPeriod)
	v.SetDefault(keyCCISMAPeriod, p.CCISMAPeriod)
	v.SetDefault(keyRSIPeriod, p.RSIPeriod)
	v.SetDefault(keyATRPeriod, p.ATRPeriod)

	v.SetDefault(keyLSRBuy, p.Thresholds.LSRBuy.String())
	v.SetDefault(keyLSRSell, p.Thresholds.LSRSell.String())
	v.SetDefault(keyOIChange, p.Thresholds.OIChangePct.String())
	v.SetDefault(keyVolumeDelta, p.Thresholds.VolumeDelta.String())

	v.SetDefault(keyReentryMult, m.Reentry.String())
	v.SetDefault(keyStopMult, m.Stop.String())
	v.SetDefault(keyTarget1Mult, m.Targets[0].String())
	v.SetDefault(keyTarget2Mult, m.Targets[1].String())
	v.SetDefault(keyTarget3Mult, m.Targets[2].String())
}

// NewConfig: .env -> дефолты -> yaml (если есть) -> переменные окружения.
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	path := os.Getenv(configFilePathENV)
	if path == "" {
		path = defaultConfigFilePath
	}
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{v: v}

	cfg.Telegram.Token = strings.TrimSpace(v.GetString(keyTelegramToken))
	cfg.Telegram.ChatID = strings.TrimSpace(v.GetString(keyTelegramChatID))
	cfg.Notifier = strings.ToLower(strings.TrimSpace(v.GetString(keyNotifier)))

	cfg.Symbols = parseSymbols(v.Get(keySymbols))
	cfg.CycleInterval = time.Duration(v.GetInt64(keyIntervalMS)) * time.Millisecond
	cfg.FirstCheckDelay = v.GetDuration(keyFirstDelay)
	cfg.SymbolPause = v.GetDuration(keySymbolPause)
	cfg.FetchTimeout = v.GetDuration(keyFetchTimeout)
	cfg.Cooldown = v.GetDuration(keyCooldown)
	cfg.DeltaWindow = v.GetDuration(keyDeltaWindow)
	cfg.Leverage = v.GetInt(keyLeverage)

	cfg.Exchange.RestURL = strings.TrimSuffix(v.GetString(keyRestURL), "/")
	cfg.Exchange.WSURL = strings.TrimSuffix(v.GetString(keyWSURL), "/")

	cfg.HealthAddr = v.GetString(keyHealthAddr)
	cfg.Tracing.Host = v.GetString(keyTracingHost)
	cfg.Tracing.Port = v.GetInt(keyTracingPort)
	cfg.LogLevel = v.GetString(keyLogLevel)

	p := strategy.DefaultParams()
	p.CCIPeriod = v.GetInt(keyCCIPeriod)
	p.CCISMAPeriod = v.GetInt(keyCCISMAPeriod)
	p.RSIPeriod = v.GetInt(keyRSIPeriod)
	p.ATRPeriod = v.GetInt(keyATRPeriod)

	var err error
	dec := func(key string) decimal.Decimal {
		if err != nil {
			return decimal.Zero
		}
		var d decimal.Decimal
		d, err = decimal.NewFromString(strings.TrimSpace(v.GetString(key)))
		if err != nil {
			err = errors.Wrapf(err, "%s", strings.ToUpper(key))
		}
		return d
	}

	p.Thresholds.LSRBuy = dec(keyLSRBuy)
	p.Thresholds.LSRSell = dec(keyLSRSell)
	p.Thresholds.OIChangePct = dec(keyOIChange)
	p.Thresholds.VolumeDelta = dec(keyVolumeDelta)
	cfg.Strategy = p

	cfg.Multipliers.Reentry = dec(keyReentryMult)
	cfg.Multipliers.Stop = dec(keyStopMult)
	cfg.Multipliers.Targets = [3]decimal.Decimal{dec(keyTarget1Mult), dec(keyTarget2Mult), dec(keyTarget3Mult)}
	if err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Symbols) == 0 {
		return errors.New("PARES_MONITORADOS is empty")
	}
	switch c.Notifier {
	case NotifierTelegram:
		if c.Telegram.Token == "" {
			return errors.New("TELEGRAM_BOT_TOKEN is required")
		}
		if c.Telegram.ChatID == "" {
			return errors.New("TELEGRAM_CHAT_ID is required")
		}
	case NotifierStdout:
	default:
		return errors.Errorf("unknown NOTIFIER %q", c.Notifier)
	}

	for name, n := range map[string]int{
		"CCI_PERIOD":     c.Strategy.CCIPeriod,
		"CCI_SMA_PERIOD": c.Strategy.CCISMAPeriod,
		"RSI_PERIOD":     c.Strategy.RSIPeriod,
		"ATR_PERIOD":     c.Strategy.ATRPeriod,
	} {
		if n <= 0 {
			return errors.Errorf("%s must be positive, got %d", name, n)
		}
	}
	if c.CycleInterval <= 0 {
		return errors.Errorf("INTERVALO_VERIFICACAO_MS must be positive")
	}
	if c.DeltaWindow <= 0 {
		return errors.Errorf("VOLUME_DELTA_WINDOW must be positive")
	}
	if c.Cooldown < 0 {
		return errors.Errorf("SIGNAL_COOLDOWN must not be negative")
	}
	return nil
}

// parseSymbols: из env приходит "BTCUSDT, ethusdt", из yaml — список.
func parseSymbols(raw any) []string {
	var parts []string
	switch val := raw.(type) {
	case string:
		parts = strings.Split(val, symbolsSeparator)
	case []string:
		parts = val
	case []any:
		for _, p := range val {
			if s, ok := p.(string); ok {
				parts = append(parts, s)
			}
		}
	}

	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.ToUpper(strings.TrimSpace(p))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// ChatIDInt — числовой chat id, ok=false для @channel.
func (c *Config) ChatIDInt() (int64, bool) {
	id, err := strconv.ParseInt(c.Telegram.ChatID, 10, 64)
	return id, err == nil
}

// Dump — итоговая конфигурация в yaml для стартового лога, секреты замаскированы.
func (c *Config) Dump() (string, error) {
	settings := c.v.AllSettings()
	if tok, _ := settings[keyTelegramToken].(string); tok != "" {
		settings[keyTelegramToken] = maskedSecret
	}
	settings[keySymbols] = c.Symbols

	bs, err := yaml.Marshal(settings)
	if err != nil {
		return "", errors.Wrap(err, "marshal config to yaml")
	}
	return string(bs), nil
}
