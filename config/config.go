// Package config loads all bot configuration from the environment, with an
// optional .env file for local development. Validation failures surface as
// *ConfigError; only process startup treats them as fatal.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"trading-agent/internal/analysis"
	"trading-agent/internal/model"
)

// ConfigError reports an invalid or missing configuration value.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Key, e.Reason)
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Trading
	Mode                model.Mode // PAPER or LIVE
	Symbol              string
	Quantity            int64
	MaxTradesPerDay     int
	MaxConcurrentTrades int
	DecisionInterval    time.Duration
	MonitorInterval     time.Duration
	Interval            string // bar interval, e.g. "5minute"
	LookbackDays        int
	SkipLowRiskReward   bool

	// Score holds the signal-scoring weights and thresholds, overridable
	// per parameter from the environment.
	Score analysis.ScoreConfig

	// Zerodha credentials, required only in LIVE mode
	KiteAPIKey     string
	KiteAPISecret  string
	KiteUserID     string
	KitePassword   string
	KiteTOTPSecret string
	KiteTokenFile  string

	// Notifications
	TelegramBotToken string
	TelegramChatID   string
	WebhookURL       string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	JournalPath   string
	GatewayAddr   string
	MetricsAddr   string

	// Paper mode
	DemoBasePrice float64
	PaperCapital  float64
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, &ConfigError{Key: ".env", Reason: err.Error()}
	}

	cfg := &Config{
		Symbol:   getEnv("SYMBOL", "NIFTY 50"),
		Interval: getEnv("BAR_INTERVAL", "5minute"),

		KiteAPIKey:     getEnv("KITE_API_KEY", ""),
		KiteAPISecret:  getEnv("KITE_API_SECRET", ""),
		KiteUserID:     getEnv("KITE_USER_ID", ""),
		KitePassword:   getEnv("KITE_PASSWORD", ""),
		KiteTOTPSecret: getEnv("KITE_TOTP_SECRET", ""),
		KiteTokenFile:  getEnv("KITE_TOKEN_FILE", "data/kite_token.json"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		JournalPath:   getEnv("JOURNAL_PATH", "data/trades.db"),
		GatewayAddr:   getEnv("GATEWAY_ADDR", ":8080"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
	}

	mode := getEnv("TRADING_MODE", "PAPER")
	switch mode {
	case "PAPER":
		cfg.Mode = model.ModePaper
	case "LIVE":
		cfg.Mode = model.ModeLive
	default:
		return nil, &ConfigError{Key: "TRADING_MODE", Reason: fmt.Sprintf("must be PAPER or LIVE, got %q", mode)}
	}

	var err error
	if cfg.Quantity, err = getInt64("QUANTITY", 50); err != nil {
		return nil, err
	}
	if cfg.MaxTradesPerDay, err = getInt("MAX_TRADES_PER_DAY", 3); err != nil {
		return nil, err
	}
	if cfg.MaxConcurrentTrades, err = getInt("MAX_CONCURRENT_TRADES", 2); err != nil {
		return nil, err
	}
	if cfg.LookbackDays, err = getInt("LOOKBACK_DAYS", 5); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.DecisionInterval, err = getDuration("DECISION_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.MonitorInterval, err = getDuration("MONITOR_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.DemoBasePrice, err = getFloat("DEMO_BASE_PRICE", 22000); err != nil {
		return nil, err
	}
	if cfg.PaperCapital, err = getFloat("PAPER_CAPITAL", 100000); err != nil {
		return nil, err
	}
	if cfg.SkipLowRiskReward, err = getBool("SKIP_LOW_RISK_REWARD", true); err != nil {
		return nil, err
	}
	if cfg.Score, err = loadScoreConfig(); err != nil {
		return nil, err
	}

	if cfg.Quantity <= 0 {
		return nil, &ConfigError{Key: "QUANTITY", Reason: "must be positive"}
	}
	if cfg.DecisionInterval < time.Second || cfg.MonitorInterval < time.Second {
		return nil, &ConfigError{Key: "DECISION_INTERVAL", Reason: "intervals must be at least 1s"}
	}

	if cfg.Mode == model.ModeLive {
		for key, v := range map[string]string{
			"KITE_API_KEY":     cfg.KiteAPIKey,
			"KITE_API_SECRET":  cfg.KiteAPISecret,
			"KITE_USER_ID":     cfg.KiteUserID,
			"KITE_PASSWORD":    cfg.KitePassword,
			"KITE_TOTP_SECRET": cfg.KiteTOTPSecret,
		} {
			if v == "" {
				return nil, &ConfigError{Key: key, Reason: "required in LIVE mode"}
			}
		}
	}
	if (cfg.TelegramBotToken == "") != (cfg.TelegramChatID == "") {
		return nil, &ConfigError{Key: "TELEGRAM_CHAT_ID", Reason: "bot token and chat id must be set together"}
	}

	return cfg, nil
}

// loadScoreConfig starts from the standard weight table and applies any
// per-parameter environment overrides.
func loadScoreConfig() (analysis.ScoreConfig, error) {
	sc := analysis.DefaultScoreConfig()

	var err error
	if sc.RSIOversold, err = getFloat("RSI_OVERSOLD", sc.RSIOversold); err != nil {
		return sc, err
	}
	if sc.RSIOverbought, err = getFloat("RSI_OVERBOUGHT", sc.RSIOverbought); err != nil {
		return sc, err
	}
	if sc.WeightRSI, err = getInt("SCORE_WEIGHT_RSI", sc.WeightRSI); err != nil {
		return sc, err
	}
	if sc.WeightMACD, err = getInt("SCORE_WEIGHT_MACD", sc.WeightMACD); err != nil {
		return sc, err
	}
	if sc.WeightBollinger, err = getInt("SCORE_WEIGHT_BOLLINGER", sc.WeightBollinger); err != nil {
		return sc, err
	}
	if sc.WeightTrend, err = getInt("SCORE_WEIGHT_TREND", sc.WeightTrend); err != nil {
		return sc, err
	}
	if sc.WeightVolume, err = getInt("SCORE_WEIGHT_VOLUME", sc.WeightVolume); err != nil {
		return sc, err
	}
	if sc.VolumeSurgeRatio, err = getFloat("VOLUME_SURGE_RATIO", sc.VolumeSurgeRatio); err != nil {
		return sc, err
	}
	if sc.StopATRMult, err = getFloat("STOP_ATR_MULT", sc.StopATRMult); err != nil {
		return sc, err
	}
	if sc.TargetATRMult, err = getFloat("TARGET_ATR_MULT", sc.TargetATRMult); err != nil {
		return sc, err
	}
	if sc.MinRiskReward, err = getFloat("MIN_RISK_REWARD", sc.MinRiskReward); err != nil {
		return sc, err
	}
	if sc.StrongBuyScore, err = getInt("STRONG_BUY_SCORE", sc.StrongBuyScore); err != nil {
		return sc, err
	}
	if sc.BuyScore, err = getInt("BUY_SCORE", sc.BuyScore); err != nil {
		return sc, err
	}
	if sc.SellScore, err = getInt("SELL_SCORE", sc.SellScore); err != nil {
		return sc, err
	}
	if sc.StrongSellScore, err = getInt("STRONG_SELL_SCORE", sc.StrongSellScore); err != nil {
		return sc, err
	}

	if sc.StopATRMult <= 0 || sc.TargetATRMult <= 0 {
		return sc, &ConfigError{Key: "STOP_ATR_MULT", Reason: "ATR multipliers must be positive"}
	}
	if sc.BuyScore > sc.StrongBuyScore || sc.StrongSellScore > sc.SellScore {
		return sc, &ConfigError{Key: "BUY_SCORE", Reason: "bucket thresholds out of order"}
	}
	return sc, nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &ConfigError{Key: key, Reason: fmt.Sprintf("not an integer: %q", v)}
	}
	return n, nil
}

func getInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, &ConfigError{Key: key, Reason: fmt.Sprintf("not an integer: %q", v)}
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &ConfigError{Key: key, Reason: fmt.Sprintf("not a number: %q", v)}
	}
	return f, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, &ConfigError{Key: key, Reason: fmt.Sprintf("not a bool: %q", v)}
	}
	return b, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, &ConfigError{Key: key, Reason: fmt.Sprintf("not a duration: %q", v)}
	}
	return d, nil
}
