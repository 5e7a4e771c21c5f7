package bootstrap

import (
	"context"
	"fmt"
	"log"

	"ai-studykit-be/internal/config"
	"ai-studykit-be/internal/controller"
	"ai-studykit-be/internal/pkg/logger"
	"ai-studykit-be/internal/repository/unitofwork"
	"ai-studykit-be/internal/service"
	"ai-studykit-be/pkg/ai/artifact"
	"ai-studykit-be/pkg/ai/coordinator"
	"ai-studykit-be/pkg/ai/flashcard"
	"ai-studykit-be/pkg/ai/note"
	"ai-studykit-be/pkg/ai/quiz"
	"ai-studykit-be/pkg/chunking"
	"ai-studykit-be/pkg/embedding"
	"ai-studykit-be/pkg/embedding/jina"
	"ai-studykit-be/pkg/imagesearch"
	"ai-studykit-be/pkg/llm/factory"
	pktNats "ai-studykit-be/pkg/nats"
	"ai-studykit-be/pkg/workflow"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	GenerationController controller.IGenerationController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	EventListener   service.IEventListener

	Logger logger.ILogger

	closers []func()
}

// Close releases connections opened by NewContainer.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

func NewContainer(db *gorm.DB, cfg *config.Config) (*Container, error) {
	c := &Container{}

	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	c.Logger = sysLogger

	// 2. Event Bus (in-process job queue)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Infrastructure
	var rdb *redis.Client
	if cfg.Checkpoint.Backend == "redis" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("redis checkpoint backend unreachable: %w", err)
		}
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	var events service.EventPublisher
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		events = natsPub
		c.closers = append(c.closers, natsPub.Close)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	} else {
		c.closers = append(c.closers, natsSub.Close)
		c.EventListener = service.NewEventListener(natsSub, sysLogger)
	}

	// 4. AI Providers
	embeddingProvider, err := newEmbeddingProvider(cfg)
	if err != nil {
		return nil, err
	}
	embeddingProvider = embedding.NewCachedProvider(
		embedding.NewRateLimitedProvider(embeddingProvider, cfg.Ai.EmbeddingRPS, cfg.Ai.EmbeddingBurst),
		cfg.Ai.EmbeddingCacheTTL,
	)
	log.Printf("[INFO] Using Embedding Provider: %s", cfg.Ai.EmbeddingProvider)

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Keys.HuggingFace,
	)
	if err != nil {
		return nil, fmt.Errorf("initialize LLM provider: %w", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	images := newImageSearcher(cfg)

	// 5. Generation Graphs
	noteGen, err := note.NewGenerator(llmProvider, images,
		note.WithCheckpointStore(newCheckpointStore[note.State](cfg.Checkpoint, rdb)),
		note.WithMaxSteps(cfg.Generation.MaxSteps),
	)
	if err != nil {
		return nil, fmt.Errorf("compile note graph: %w", err)
	}
	flashcardGen, err := flashcard.NewGenerator(llmProvider, images,
		flashcard.WithCheckpointStore(newCheckpointStore[flashcard.State](cfg.Checkpoint, rdb)),
		flashcard.WithDecisionConcurrency(cfg.Ai.CardDecisionWorkers),
	)
	if err != nil {
		return nil, fmt.Errorf("compile flashcard graph: %w", err)
	}
	quizGen, err := quiz.NewGenerator(llmProvider,
		quiz.WithCheckpointStore(newCheckpointStore[quiz.State](cfg.Checkpoint, rdb)),
	)
	if err != nil {
		return nil, fmt.Errorf("compile quiz graph: %w", err)
	}

	chunker, err := chunking.NewChunker(chunking.Options{
		MinSize:     cfg.Chunking.MinSize,
		MaxSize:     cfg.Chunking.MaxSize,
		OverlapSize: cfg.Chunking.OverlapSize,
		Threshold:   cfg.Chunking.Threshold,
	})
	if err != nil {
		return nil, err
	}

	// 6. Services
	publisherService := service.NewPublisherService(cfg.App.GenerationTopic, pubSub)
	generationService := service.NewGenerationService(service.GenerationDeps{
		UowFactory:       uowFactory,
		Publisher:        publisherService,
		Chunker:          chunker,
		SentenceEmbedder: embedding.NewBatcher(embeddingProvider, embedding.TaskSemanticSimilarity, cfg.Ai.EmbeddingWorkers),
		ArtifactEmbedder: embedding.NewBatcher(embeddingProvider, embedding.TaskRetrievalDocument, cfg.Ai.EmbeddingWorkers),
		QueryEmbedder:    embedding.NewBatcher(embeddingProvider, embedding.TaskRetrievalQuery, 1),
		Runners: map[artifact.Kind]service.ArtifactRunner{
			artifact.KindNote:       service.NoteRunner(noteGen),
			artifact.KindFlashcards: service.FlashcardRunner(flashcardGen),
			artifact.KindQuiz:       service.QuizRunner(quizGen),
		},
		Coordinator: coordinatorOptions(cfg.Generation),
		Events:      events,
		Logger:      sysLogger,
	})

	c.ConsumerService = service.NewConsumerService(pubSub, cfg.App.GenerationTopic, generationService, sysLogger)

	// 7. Controllers
	c.GenerationController = controller.NewGenerationController(generationService)

	return c, nil
}

func newEmbeddingProvider(cfg *config.Config) (embedding.EmbeddingProvider, error) {
	switch cfg.Ai.EmbeddingProvider {
	case "jina":
		return jina.NewJinaProvider(cfg.Keys.Jina), nil
	case "ollama":
		return embedding.NewProvider("ollama", "", cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
	default:
		return embedding.NewProvider(cfg.Ai.EmbeddingProvider, cfg.Keys.GoogleGemini, "", "")
	}
}

// newImageSearcher returns nil when no search credentials are configured so
// the graphs skip their image steps entirely.
func newImageSearcher(cfg *config.Config) imagesearch.Searcher {
	if cfg.Keys.GoogleSearch == "" || cfg.Keys.GoogleSearchEngine == "" {
		log.Printf("[INFO] Image search disabled (GOOGLE_SEARCH_API_KEY / GOOGLE_SEARCH_ENGINE_ID not set)")
		return nil
	}
	return imagesearch.NewGoogleSearcher(cfg.Keys.GoogleSearch, cfg.Keys.GoogleSearchEngine)
}

func newCheckpointStore[S any](cfg config.CheckpointConfig, rdb *redis.Client) workflow.CheckpointStore[S] {
	if rdb != nil {
		return workflow.NewRedisCheckpointStore[S](rdb, cfg.TTL)
	}
	return workflow.NewMemoryCheckpointStore[S](cfg.TTL)
}

func coordinatorOptions(g config.GenerationConfig) coordinator.Options {
	maxFailures := uint(0)
	if g.MaxFailures > 0 {
		maxFailures = uint(g.MaxFailures)
	}
	return coordinator.Options{
		InitialInterval:     g.InitialInterval,
		Multiplier:          g.Multiplier,
		MaxInterval:         g.MaxInterval,
		RandomizationFactor: g.RandomizationFactor,
		MaxFailures:         maxFailures,
		UnitTimeout:         g.UnitTimeout,
		Concurrency:         g.Concurrency,
		Sequential:          g.Sequential,
		Permanent:           service.IsPermanentFailure,
	}
}
