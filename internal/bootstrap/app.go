package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"gemchat/internal/ai"
	"gemchat/internal/app"
	"gemchat/internal/config"
	rabbitmqClient "gemchat/internal/platform/rabbitmq"
	redisClient "gemchat/internal/platform/redis"
	"gemchat/internal/store"
)

// App owns the process-wide dependencies: the explicitly constructed store,
// the provider router, and the optional broker connection.
type App struct {
	Config      *config.Config
	ChatService *app.ChatService
	Redis       *redis.Client
	MQConn      *amqp.Connection

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	var (
		entityStore store.Store
		redisCli    *redis.Client
	)
	switch cfg.Store.Backend {
	case "", "memory":
		entityStore = store.NewMemoryStore()
	case "redis":
		redisCli, err = redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		entityStore = store.NewRedisStore(redisCli)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	router := ai.NewRouter(
		ai.NewGeminiClient(ai.GeminiConfig{
			BaseURL: cfg.Gemini.BaseURL,
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.Model,
		}),
		ai.NewHuggingFaceClient(ai.HuggingFaceConfig{
			BaseURL: cfg.HuggingFace.BaseURL,
			APIKey:  cfg.HuggingFace.APIKey,
			Model:   cfg.HuggingFace.Model,
		}),
	)

	var (
		mqConn   *amqp.Connection
		archiver app.MessageArchiver
	)
	if cfg.RabbitMQ.URL != "" {
		mqConn, err = rabbitmqClient.New(cfg.RabbitMQ.URL)
		if err != nil {
			return nil, err
		}
		archiver = rabbitmqClient.NewArchivePublisher(mqConn, cfg.RabbitMQ.ArchiveQueue)
		log.Printf("message archiving enabled on queue %s", cfg.RabbitMQ.ArchiveQueue)
	}

	return &App{
		Config:      cfg,
		ChatService: app.NewChatService(entityStore, router, archiver),
		Redis:       redisCli,
		MQConn:      mqConn,
		StartedAt:   time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	return closeErr
}
