// Package app assembles the fact-checking backend from configuration.
package app

import (
	"context"
	"fmt"

	"legalcheck-backend/config"
	"legalcheck-backend/handlers"
	"legalcheck-backend/llm"
	"legalcheck-backend/logger"
	"legalcheck-backend/plugins"
	"legalcheck-backend/repository"
	"legalcheck-backend/service"
	"legalcheck-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/generative-ai-go/genai"
	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/api/option"
)

// App holds the wired services and the resources they own.
type App struct {
	Config    *config.Config
	Log       *logger.Logger
	DB        *pgxpool.Pool
	Users     *repository.UserRepository
	Indexer   *service.IndexingService
	FactCheck *service.FactCheckService
	Sessions  *service.SessionService
	Cache     *service.ExplanationCache
	Pipeline  *service.Pipeline
	Router    *gin.Engine

	closers []func()
}

// New connects to Postgres and Gemini and wires every component. Redis,
// Cloud Vision OCR and attachment storage are optional.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	db, err := OpenDB(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)

	gen, err := a.openGemini(ctx)
	if err != nil {
		return nil, err
	}

	users := repository.NewUserRepository(db)
	sessions := repository.NewSessionRepository(db)
	claims := repository.NewClaimCheckRepository(db)
	jobs := repository.NewIndexJobRepository(db)
	laws := repository.NewLawRepository(db, jobs)
	chunks := repository.NewStatuteChunkRepository(db, cfg.EmbeddingDim)
	a.Users = users

	index := service.NewPgVectorIndex(gen, chunks)
	a.Indexer = service.NewIndexingService(jobs, laws, index, log.With("component", "indexer"),
		service.IndexingWithPollInterval(cfg.IndexPollInterval),
		service.IndexingWithLease(cfg.IndexJobLease),
		service.IndexingWithMaxAttempts(cfg.IndexJobMaxAttempts),
	)

	a.Cache = service.NewExplanationCache(repository.NewExplanationCacheRepository(db), log,
		service.ExplanationCacheWithPolicy(cfg.ExplanationCachePolicy, cfg.ExplanationCacheTTL))

	guard, err := service.NewRoutingGuard(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare routing guard: %w", err)
	}

	plugin, err := a.pluginRunner(ctx, gen, laws)
	if err != nil {
		return nil, err
	}

	pipeline, err := service.NewPipeline(
		service.PipelineWithIntentAnalyzer(service.NewIntentAnalyzer(gen, cfg.LightModel, log)),
		service.PipelineWithToolRouter(service.NewToolRouter(gen, cfg.LightModel, guard, log)),
		service.PipelineWithRetriever(service.NewHistoryAwareRetriever(gen, cfg.LightModel, index, log)),
		service.PipelineWithPlugins(plugin),
		service.PipelineWithCompressor(service.NewContextCompressor(gen, cfg.LightModel, log)),
		service.PipelineWithGenerator(service.NewStructuredGenerator(gen, cfg.ChatModel, log)),
		service.PipelineWithValidator(service.NewOutputValidator(gen, cfg.ChatModel, log)),
		service.PipelineWithExplanationCache(a.Cache),
		service.PipelineWithLogger(log.With("component", "pipeline")),
	)
	if err != nil {
		return nil, err
	}
	a.Pipeline = pipeline

	locker, err := a.sessionLocker(ctx)
	if err != nil {
		return nil, err
	}

	blobs, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize attachment storage: %w", err)
	}
	attachments := repository.NewAttachmentRepository(db)

	a.FactCheck = service.NewFactCheckService(
		service.FactCheckWithUserStore(users),
		service.FactCheckWithSessionStore(sessions),
		service.FactCheckWithClaimStore(claims),
		service.FactCheckWithAttachments(blobs, attachments),
		service.FactCheckWithPipeline(pipeline),
		service.FactCheckWithSessionLocker(locker),
		service.FactCheckWithLogger(log.With("component", "factcheck")),
	)
	var blobReader service.BlobReader
	if blobs != nil {
		blobReader = blobs
	}
	a.Sessions = service.NewSessionService(sessions, claims,
		service.SessionWithAttachments(attachments, blobReader))

	a.Router = handlers.NewRouter(
		handlers.NewFactCheckHandler(a.FactCheck, a.Sessions),
		handlers.NewAdminHandler(a.Indexer, a.Cache),
	)

	ok = true
	return a, nil
}

// OpenDB connects to Postgres and bootstraps the schema when AutoMigrate is
// set.
func OpenDB(ctx context.Context, cfg *config.Config, log *logger.Logger) (*pgxpool.Pool, error) {
	db, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if cfg.AutoMigrate {
		if err := repository.EnsureSchema(ctx, db, cfg.EmbeddingDim); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ensure schema: %w", err)
		}
		log.Info("database schema ensured")
	}
	return db, nil
}

func (a *App) openGemini(ctx context.Context) (*llm.Gemini, error) {
	if a.Config.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(a.Config.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	a.closers = append(a.closers, func() { _ = client.Close() })
	return llm.NewGemini(client, a.Config.ChatModel, a.Config.EmbeddingModel, a.Log.With("component", "gemini")), nil
}

func (a *App) pluginRunner(ctx context.Context, gen llm.Generator, laws *repository.LawRepository) (*service.PluginRunner, error) {
	var ocr plugins.TextDetector
	if a.Config.VisionOCREnabled {
		c, err := plugins.NewCloudVisionOCR(ctx)
		if err != nil {
			a.Log.Warn("cloud vision OCR disabled", "error", err)
		} else {
			ocr = c
			a.closers = append(a.closers, func() { _ = c.Close() })
		}
	}
	images := plugins.NewImageAnalyzer(gen, a.Config.VisionModel, ocr, a.Log)

	var live plugins.LiveLookup
	if a.Config.LawAPIKey != "" {
		live = plugins.NewLawClient(a.Config.LawAPIBaseURL, a.Config.LawAPIKey, a.Config.LawAPITimeout, a.Log)
	}
	statutes := plugins.NewStatuteLookup(live, laws, a.Log)

	catalog, err := plugins.LoadPrecedentCatalog(a.Config.PrecedentCatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load precedent catalog: %w", err)
	}
	return service.NewPluginRunner(images, statutes, plugins.NewPrecedentSearch(catalog)), nil
}

func (a *App) sessionLocker(ctx context.Context) (service.SessionLocker, error) {
	if a.Config.RedisAddr == "" {
		return service.NewLocalSessionLocker(), nil
	}
	rdb, err := service.NewRedisClient(ctx, a.Config.RedisAddr, a.Config.RedisPassword)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = rdb.Close() })
	a.Log.Info("session locks backed by redis", "addr", a.Config.RedisAddr)
	return service.NewRedisSessionLocker(rdb, a.Config.SessionLockTTL, a.Log), nil
}

// Close releases owned resources in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
