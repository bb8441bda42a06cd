package bootstrap

import (
	"context"
	"log"

	"agentic-chat-be/internal/config"
	"agentic-chat-be/internal/controller"
	"agentic-chat-be/internal/handler"
	"agentic-chat-be/internal/pkg/logger"
	"agentic-chat-be/internal/repository/memory"
	"agentic-chat-be/internal/repository/unitofwork"
	"agentic-chat-be/internal/service"
	"agentic-chat-be/internal/websocket"
	"agentic-chat-be/pkg/agent/history"
	"agentic-chat-be/pkg/agent/runner"
	"agentic-chat-be/pkg/embedding"
	llmollama "agentic-chat-be/pkg/llm/ollama"
	pktNats "agentic-chat-be/pkg/nats"
	"agentic-chat-be/pkg/rag/rerank"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController      controller.IChatController
	KnowledgeController controller.IKnowledgeController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets
	TranscriptHandler *handler.TranscriptHandler
	WebSocketHub      *websocket.Hub

	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Model Providers
	embeddingProvider := embedding.NewOllamaProvider(
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.EmbeddingModel,
	)
	log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.EmbeddingModel)

	llmProvider := llmollama.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.LLMModel)
	log.Printf("[INFO] Using LLM Provider: OLLAMA (%s)", cfg.Ai.LLMModel)

	reranker, err := rerank.New(llmProvider, rerank.Config{
		Model:           cfg.Rerank.Model,
		TopN:            cfg.Rerank.TopN,
		ScoreThreshold:  cfg.Rerank.ScoreThreshold,
		CollectedNumber: cfg.Rerank.CollectedNumber,
	})
	if err != nil {
		log.Fatalf("[FATAL] Invalid reranker configuration: %v", err)
	}

	// In-memory turn state
	turnStates := memory.NewTurnStateRepository()

	// 3.5 Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/transcript.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	publisherService := service.NewPublisherService(cfg.Ai.IngestTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Ai.IngestTopic,
		uowFactory,
		embeddingProvider,
	)

	// 4. Domain Services
	turnRunner := runner.NewLLMRunner(llmProvider)
	defaultFlags := history.Flags{
		UseMarked:      cfg.Context.UseMarked,
		UseHistory:     cfg.Context.UseHistory,
		UseFullHistory: cfg.Context.UseFullHistory,
		HistoryLength:  cfg.Context.HistoryLength,
	}

	chatService := service.NewChatService(
		uowFactory,
		turnStates,
		turnRunner,
		defaultFlags,
		wsHub,
		natsPub,
		sysLogger,
	)

	knowledgeService := service.NewKnowledgeService(
		uowFactory,
		publisherService,
		embeddingProvider,
		reranker,
		natsPub,
		sysLogger,
	)

	transcriptHandler := handler.NewTranscriptHandler(wsHub, wsLogger)

	return &Container{
		ChatController:      controller.NewChatController(chatService),
		KnowledgeController: controller.NewKnowledgeController(knowledgeService),
		ConsumerService:     consumerService,
		TranscriptHandler:   transcriptHandler,
		WebSocketHub:        wsHub,
		Logger:              sysLogger,
	}
}
