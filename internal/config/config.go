package config

import (
	"os"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config holds all runtime settings, loaded once at startup.
type Config struct {
	Withdrawal WithdrawalConfig
	PayChangu  PayChanguConfig
	Alerts     AlertConfig
	RedisAddr  string
	JWTSecret  string
}

// WithdrawalConfig are the knobs on the withdrawal pipeline.
type WithdrawalConfig struct {
	MinWithdrawal     int64
	MaxWithdrawal     int64
	DailyLimit        int64
	CreditAgingDays   int
	RateLimitPerHour  int
	HighRiskThreshold int
	BlockThreshold    int
	// MWK paid out per credit.
	ExchangeRate decimal.Decimal
}

// PayChanguConfig configures the mobile-money payout API.
type PayChanguConfig struct {
	APIURL    string
	SecretKey string
}

// AlertConfig configures the alerting sink.
type AlertConfig struct {
	WebhookURL       string
	CooldownMillis   int
	LargeTxThreshold int64
	Concurrency      int
}

// Load reads configuration from the environment, applying defaults for
// anything unset. Callers should have run godotenv first in dev.
func Load(logger *zap.Logger) *Config {
	rate, err := decimal.NewFromString(getEnv("CREDIT_EXCHANGE_RATE", "100"))
	if err != nil {
		logger.Warn("invalid CREDIT_EXCHANGE_RATE, using 100", zap.Error(err))
		rate = decimal.NewFromInt(100)
	}

	return &Config{
		Withdrawal: WithdrawalConfig{
			MinWithdrawal:     int64(getEnvInt("MIN_WITHDRAWAL", 10)),
			MaxWithdrawal:     int64(getEnvInt("MAX_WITHDRAWAL", 10000)),
			DailyLimit:        int64(getEnvInt("DAILY_WITHDRAWAL_LIMIT", 50000)),
			CreditAgingDays:   getEnvInt("CREDIT_AGING_DAYS", 3),
			RateLimitPerHour:  getEnvInt("RATE_LIMIT_PER_HOUR", 5),
			HighRiskThreshold: getEnvInt("HIGH_RISK_THRESHOLD", 50),
			BlockThreshold:    getEnvInt("FRAUD_BLOCK_THRESHOLD", 75),
			ExchangeRate:      rate,
		},
		PayChangu: PayChanguConfig{
			APIURL:    getEnv("PAYCHANGU_API_URL", "https://api.paychangu.com"),
			SecretKey: os.Getenv("PAYCHANGU_SECRET_KEY"),
		},
		Alerts: AlertConfig{
			WebhookURL:       os.Getenv("ALERT_WEBHOOK_URL"),
			CooldownMillis:   getEnvInt("ALERT_COOLDOWN_MS", 60000),
			LargeTxThreshold: int64(getEnvInt("LARGE_TRANSACTION_THRESHOLD", 10000)),
			Concurrency:      getEnvInt("ALERT_WORKER_CONCURRENCY", 5),
		},
		RedisAddr: getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		JWTSecret: getEnv("JWT_SECRET", "supersecret"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
