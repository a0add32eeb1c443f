package alerts

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/chisomo-dev/coachpay/internal/config"
)

var (
	client *asynq.Client
	server *asynq.Server
	opts   asynq.RedisClientOpt
	logger *zap.Logger
)

// ensureClient returns a usable client instance
func ensureClient() *asynq.Client {
	if client == nil {
		client = asynq.NewClient(opts)
	}
	return client
}

// Init starts the Asynq worker and returns the Sink handlers enqueue on.
// The dedup cache is Redis-backed so cooldowns hold across instances.
func Init(redisAddr string, cfg config.AlertConfig, blockThreshold int, zl *zap.Logger) *Sink {
	logger = zl
	opts = asynq.RedisClientOpt{Addr: redisAddr}
	client = asynq.NewClient(opts)

	configureWebhook(cfg.WebhookURL)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskRateLimitAlert, handleAlert)
	mux.HandleFunc(TaskHighValueAlert, handleAlert)
	mux.HandleFunc(TaskFraudAlert, handleAlert)

	server = asynq.NewServer(opts, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues: map[string]int{
			"alerts": 5,
		},
	})
	go func() {
		if err := server.Run(mux); err != nil {
			logger.Warn("asynq server stopped", zap.Error(err))
		}
	}()

	logger.Info("alert sink initialized", zap.String("redis", redisAddr))

	cooldown := time.Duration(cfg.CooldownMillis) * time.Millisecond
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	return &Sink{
		dedup:   NewDeduper(NewRedisCache(rdb), cooldown),
		largeTx: cfg.LargeTxThreshold,
		blockAt: blockThreshold,
		log:     zl,
	}
}

// Close releases client and stops server.
func Close() {
	if client != nil {
		_ = client.Close()
	}
	if server != nil {
		server.Shutdown()
	}
}

// handleAlert delivers one event to the webhook, or just logs it when no
// webhook is configured.
func handleAlert(_ context.Context, t *asynq.Task) error {
	var ev Event
	if err := json.Unmarshal(t.Payload(), &ev); err != nil {
		return err
	}

	logger.Info("alert",
		zap.String("kind", ev.Kind),
		zap.String("severity", string(ev.Severity)),
		zap.String("coach_id", ev.CoachID),
		zap.String("message", ev.Message))

	if !webhookConfigured() {
		return nil
	}
	if err := postWebhook(ev); err != nil {
		logger.Warn("alert webhook delivery failed", zap.Error(err))
		return err
	}
	return nil
}
