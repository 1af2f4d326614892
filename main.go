package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"dinesync/internal/alert"
	"dinesync/internal/config"
	"dinesync/internal/feed"
	"dinesync/internal/feed/amqpfeed"
	"dinesync/internal/feed/kafkafeed"
	"dinesync/internal/feed/pgfeed"
	"dinesync/internal/feed/wsfeed"
	httpapi "dinesync/internal/http"
	"dinesync/internal/logger"
	"dinesync/internal/orderapi"
	"dinesync/internal/registry"
	"dinesync/internal/registry/memkv"
	"dinesync/internal/registry/rediskv"
	"dinesync/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	orders := orderapi.New(cfg.OrderAPIURL, cfg.OrderAPIToken)

	subscriber, cleanup := buildFeed(cfg, log)
	defer cleanup()

	var kv registry.KV
	if cfg.RedisAddr != "" {
		store := rediskv.New(cfg.RedisAddr)
		defer store.Close()
		kv = store
		log.Info("registry storage ready", zap.String("driver", "redis"))
	} else {
		if cfg.Env == "production" {
			log.Fatal("REDIS_ADDR is required in production")
		}
		kv = memkv.New()
		log.Warn("REDIS_ADDR is empty; tracked orders will not survive restarts")
	}

	// The staff-side cue rides the board broadcast; server-side we only log.
	notifier := alert.NotifierFunc(func(kind alert.Kind) {
		log.Info("attention cue", zap.String("kind", string(kind)))
	})

	wsServer := ws.New(orders, subscriber, notifier, log, cfg)
	apiServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(orders, kv, log, cfg, wsServer),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("sync api ready", zap.String("base", "/api"))
		log.Info("sync ws ready", zap.String("base", "/ws"))
		log.Info("order sync service listening", zap.String("addr", cfg.HTTPAddr))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxShutdown); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}
}

// buildFeed selects the change-feed transport. A missing or broken transport
// is fatal in production and degrades to poll-only everywhere else: the feed
// carries no delivery guarantee either way, the fallback poll is the net.
func buildFeed(cfg config.Config, log *zap.Logger) (feed.Subscriber, func()) {
	fail := func(msg string, err error) (feed.Subscriber, func()) {
		if cfg.Env == "production" {
			log.Fatal(msg, zap.Error(err))
		}
		log.Warn(msg+"; continuing poll-only", zap.Error(err))
		return feed.Nop{}, func() {}
	}

	switch cfg.FeedDriver {
	case "ws":
		if cfg.WSFeedURL == "" {
			return fail("WS_FEED_URL is empty", nil)
		}
		log.Info("change feed ready", zap.String("driver", "ws"))
		return wsfeed.New(cfg.WSFeedURL, log), func() {}

	case "rabbitmq":
		if cfg.RabbitMQURL == "" {
			return fail("RABBITMQ_URL is empty", nil)
		}
		log.Info("change feed ready", zap.String("driver", "rabbitmq"))
		return amqpfeed.New(cfg.RabbitMQURL, log), func() {}

	case "postgres":
		if cfg.DatabaseURL == "" {
			return fail("DATABASE_URL is empty", nil)
		}
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			return fail("database connection failed", err)
		}
		log.Info("change feed ready", zap.String("driver", "postgres"))
		return pgfeed.New(pool, log), pool.Close

	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			return fail("KAFKA_BROKERS is empty", nil)
		}
		log.Info("change feed ready", zap.String("driver", "kafka"), zap.String("topic", cfg.KafkaTopic))
		return kafkafeed.New(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, log), func() {}

	default:
		return fail("unknown FEED_DRIVER "+cfg.FeedDriver, nil)
	}
}
