package bootstrap

import (
	"context"
	"fmt"
	"log"

	"thrx-be/internal/config"
	"thrx-be/internal/controller"
	"thrx-be/internal/handler"
	"thrx-be/internal/pkg/logger"
	"thrx-be/internal/repository/implementation"
	"thrx-be/internal/repository/memory"
	"thrx-be/internal/service"
	"thrx-be/internal/websocket"
	"thrx-be/pkg/ai/pipeline"
	"thrx-be/pkg/llm/factory"
	pktNats "thrx-be/pkg/nats"
	"thrx-be/pkg/search"
	"thrx-be/pkg/store"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	ChatController   controller.IChatController
	ModelController  controller.IModelController
	SystemController controller.ISystemController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	SystemService   service.ISystemService

	// WebSockets
	ChatStreamHandler *handler.ChatStreamHandler
	WebSocketHub      *websocket.Hub

	Logger logger.ILogger

	closers []func() error
}

func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())

	kv, err := store.Open(store.Config{
		Driver:        cfg.Store.Driver,
		Path:          cfg.Store.Path,
		RedisAddr:     cfg.Store.RedisAddr,
		RedisPassword: cfg.Store.RedisPassword,
		RedisDB:       cfg.Store.RedisDB,
		DSN:           cfg.Store.DSN,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	sysLogger.Info("Bootstrap", "Chat store opened", map[string]interface{}{"driver": cfg.Store.Driver})

	c := &Container{Logger: sysLogger}
	c.closers = append(c.closers, kv.Close)

	chatRepo := implementation.NewChatRepository(kv)
	sessionRepo := memory.NewSessionRepository(cfg.App.SessionTTL)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermillLogger,
	)
	c.closers = append(c.closers, pubSub.Close)
	publisherService := service.NewPublisherService(pubSub, sysLogger)

	// 3. Providers
	var searchProvider search.Provider
	switch cfg.Search.Provider {
	case "remote":
		searchProvider = search.NewRemoteProvider(cfg.Search.Endpoint)
	default:
		searchProvider = search.NewDuckDuckGoProvider(cfg.Search.DuckDuckGoURL, cfg.Search.RatePerSecond)
	}
	if cfg.Search.CacheTTL > 0 {
		searchProvider = search.NewCachedProvider(searchProvider, cfg.Search.CacheTTL)
	}
	log.Printf("[INFO] Using Search Provider: %s", cfg.Search.Provider)

	router := factory.NewRouter(factory.Config{
		CloudBaseURL:  cfg.Llm.CloudBaseURL,
		OllamaBaseURL: cfg.Llm.OllamaBaseURL,
		HFApiKey:      cfg.Llm.HFApiKey,
		HFBaseURL:     cfg.Llm.HFBaseURL,
		OnLoad:        service.NewModelLoadObserver(publisherService, sysLogger),
	})
	log.Printf("[INFO] Default LLM model: %s (%s)", cfg.Llm.DefaultModel, factory.KindOf(cfg.Llm.DefaultModel))

	// 4. Infrastructure
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v. Hub runs single-instance", err)
			_ = rdb.Close()
			rdb = nil
		} else {
			c.closers = append(c.closers, rdb.Close)
		}
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger(cfg.App.HubLogFilePath)
	c.WebSocketHub = websocket.NewHub(rdb, wsLogger)

	// NATS is optional; without it durable events stay in-process.
	var external service.ExternalPublisher
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			external = natsPub
			c.closers = append(c.closers, func() error {
				natsPub.Close()
				return nil
			})
		}
	}

	c.ConsumerService = service.NewConsumerService(pubSub, c.WebSocketHub, external, wsLogger)

	// 5. Services
	runner := pipeline.NewPipeline(router, searchProvider, chatRepo, sessionRepo, publisherService, sysLogger)
	chatService := service.NewChatService(
		chatRepo,
		sessionRepo,
		runner,
		sysLogger,
		cfg.Llm.DefaultModel,
		cfg.Search.EnabledDefault,
	)
	modelService := service.NewModelService(router, sysLogger)
	c.SystemService = service.NewSystemService(sysLogger, sessionRepo, router, service.HealthInfo{
		StoreDriver:    cfg.Store.Driver,
		SearchProvider: cfg.Search.Provider,
	})
	c.closers = append(c.closers, func() error {
		sessionRepo.DetachAll()
		router.InterruptLocal()
		return nil
	})

	// 6. Controllers
	c.ChatController = controller.NewChatController(chatService)
	c.ModelController = controller.NewModelController(modelService)
	c.SystemController = controller.NewSystemController(c.SystemService)
	c.ChatStreamHandler = handler.NewChatStreamHandler(c.WebSocketHub, wsLogger)

	return c, nil
}

// Close releases what NewContainer opened, newest first.
func (c *Container) Close() error {
	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	_ = c.Logger.Sync()
	return firstErr
}
