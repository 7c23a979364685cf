// Package main is the entry point for the Steel Co-Pilot Chat Service.
// @title Steel Co-Pilot Chat Service API
// @version 1.0
// @description Chat sessions and message processing for the steel ecosystem co-pilot

// @host localhost:8000
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer JWT signed with the service secret
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/steelcopilot/chat-service/docs"
	"github.com/steelcopilot/chat-service/internal/api/handlers"
	"github.com/steelcopilot/chat-service/internal/api/middleware"
	"github.com/steelcopilot/chat-service/internal/api/routes"
	"github.com/steelcopilot/chat-service/internal/config"
	"github.com/steelcopilot/chat-service/internal/core/cache"
	"github.com/steelcopilot/chat-service/internal/core/docdb"
	"github.com/steelcopilot/chat-service/internal/core/vault"
	rediscache "github.com/steelcopilot/chat-service/internal/infrastructure/cache/redis"
	"github.com/steelcopilot/chat-service/internal/infrastructure/docdb/mongodb"
	dotenvvault "github.com/steelcopilot/chat-service/internal/infrastructure/vault/dotenv"
	"github.com/steelcopilot/chat-service/internal/pkg/encryption"
	"github.com/steelcopilot/chat-service/internal/pkg/logger"
	"github.com/steelcopilot/chat-service/internal/services/chat"
	"github.com/steelcopilot/chat-service/internal/services/chat/completion"
	"github.com/steelcopilot/chat-service/internal/services/chat/processor"
	"github.com/steelcopilot/chat-service/internal/services/chat/queue"
	"github.com/steelcopilot/chat-service/internal/services/chat/responsecache"
	"github.com/steelcopilot/chat-service/internal/services/chat/sessions"
	"github.com/steelcopilot/chat-service/internal/services/conversation"
)

const encryptionKeyRef = "dotenv://SECRETS_ENCRYPTION_KEY"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.Setup(cfg.Log.Level, cfg.Log.Format)
	ctx := context.Background()

	vaultClient, err := createVault(cfg.Vault)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize vault")
	}
	defer vaultClient.Close()

	cacheClient, err := createCache(cfg.Cache)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize cache")
	}
	if cacheClient != nil {
		defer cacheClient.Close()
	}

	docDBClient, err := createDocDB(ctx, cfg.DocDB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize document db")
	}
	defer docDBClient.Close(ctx)

	if err := docDBClient.ChatSessions().EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to ensure indexes")
	}

	sealer, err := createSealer(ctx, cfg.Vault, vaultClient)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize sealer")
	}

	conversations, err := conversation.NewService(&conversation.Config{
		Store:  docDBClient.ChatSessions(),
		Cache:  cacheClient,
		Sealer: sealer,
		TTL:    cfg.Cache.TTL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize conversation service")
	}

	completer, err := createCompleter(ctx, cfg.Completion, vaultClient)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize completion backend")
	}

	chatService, err := createChatService(cfg, completer)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize chat service")
	}
	defer chatService.Close()

	gin.SetMode(cfg.Server.GinMode)

	authMw, err := middleware.NewAuthMiddleware(cfg.Auth.SecretKey, cfg.Auth.Algorithm)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize auth middleware")
	}

	probes := map[string]handlers.Pinger{"docdb": docDBClient}
	if cacheClient != nil {
		probes["cache"] = cacheClient
	}

	router := gin.New()
	routes.SetupWithMiddleware(router, &routes.Config{
		APIPrefix:      cfg.Server.APIPrefix,
		HealthHandler:  handlers.NewHealthHandler(probes, chatService),
		ChatHandler:    handlers.NewChatHandler(conversations, chatService),
		AuthMiddleware: authMw,
	},
		middleware.DefaultCORSConfig(cfg.CORS.AllowedOrigins...),
		middleware.NewLoggingMiddleware(),
		middleware.NewErrorMiddleware(),
	)

	// Swagger documentation endpoint
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.Address(),
		Handler: router,
	}

	go func() {
		log.Info().Str("address", cfg.Server.Address()).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}

// createVault creates a vault based on the configuration.
func createVault(cfg config.VaultConfig) (vault.Vault, error) {
	switch vault.Type(cfg.Type) {
	case vault.TypeDotEnv:
		return dotenvvault.NewVault()
	default:
		return nil, errors.New("unsupported vault type: " + cfg.Type)
	}
}

// createCache returns nil when caching is disabled.
func createCache(cfg config.CacheConfig) (cache.Cache, error) {
	if !cfg.Enabled {
		log.Info().Msg("conversation cache disabled")
		return nil, nil
	}

	switch cache.Type(cfg.Type) {
	case cache.TypeRedis:
		return rediscache.NewCache(rediscache.Config{
			Host:       cfg.Host,
			Port:       cfg.Port,
			Password:   cfg.Password,
			DB:         cfg.DB,
			DefaultTTL: cfg.TTL,
		})
	default:
		return nil, errors.New("unsupported cache type: " + cfg.Type)
	}
}

// createDocDB creates a document database client based on the configuration.
func createDocDB(ctx context.Context, cfg config.DocDBConfig) (docdb.Client, error) {
	switch docdb.Type(cfg.Type) {
	case docdb.TypeMongoDB:
		return mongodb.NewClient(ctx, &mongodb.ClientConfig{
			URI:            cfg.URI,
			DatabaseName:   cfg.Database,
			ChatCollection: cfg.ChatCollection,
		})
	default:
		return nil, errors.New("unsupported docdb type: " + cfg.Type)
	}
}

// createSealer falls back to a pass-through sealer when no key is configured.
func createSealer(ctx context.Context, cfg config.VaultConfig, v vault.Vault) (encryption.Sealer, error) {
	key, err := vault.Resolve(ctx, v, cfg.EncryptionKey, encryptionKeyRef)
	if err != nil && !errors.Is(err, vault.ErrSecretNotFound) {
		return nil, err
	}

	if key == "" {
		log.Warn().Msg("SECRETS_ENCRYPTION_KEY not set, cached sessions are stored unencrypted")
		return encryption.NoOpSealer{}, nil
	}
	return encryption.NewAESSealer(key)
}

// createCompleter falls back to an always-failing backend when Azure OpenAI is
// not configured; the processor answers those requests with its apology.
func createCompleter(ctx context.Context, cfg config.CompletionConfig, v vault.Vault) (completion.Completer, error) {
	apiKey, err := vault.Resolve(ctx, v, cfg.APIKey, cfg.APIKeyRef)
	if err != nil && !errors.Is(err, vault.ErrSecretNotFound) {
		return nil, err
	}

	if cfg.APIBase == "" || apiKey == "" {
		log.Warn().Msg("Azure OpenAI not configured, conversational replies use the apology fallback")
		return completion.Unconfigured{}, nil
	}

	return completion.NewAzureClient(&completion.AzureConfig{
		APIBase:    cfg.APIBase,
		APIKey:     apiKey,
		APIVersion: cfg.APIVersion,
		Deployment: cfg.Deployment,
		Timeout:    cfg.Timeout,
	})
}

// createChatService assembles the message pipeline.
func createChatService(cfg *config.Config, completer completion.Completer) (*chat.Service, error) {
	registry, err := sessions.NewRegistry(sessions.Config{
		WorkRoot:      cfg.Pipeline.WorkRoot,
		MaxSessions:   cfg.Pipeline.MaxSessions,
		PoolSize:      cfg.Pipeline.PoolSize,
		PoolQueueSize: cfg.Pipeline.PoolQueueSize,
	})
	if err != nil {
		return nil, err
	}

	sweeper, err := sessions.NewSweeper(registry, cfg.Pipeline.SweepSchedule, cfg.Pipeline.SessionIdleTTL)
	if err != nil {
		registry.Close()
		return nil, err
	}
	sweeper.Start()

	responses, err := responsecache.New(responsecache.Config{
		TTL:  cfg.Pipeline.ResponseCacheTTL,
		Size: cfg.Pipeline.ResponseCacheSize,
	})
	if err != nil {
		sweeper.Stop()
		registry.Close()
		return nil, err
	}

	proc, err := processor.New(&processor.Config{
		Sessions:    registry,
		Cache:       responses,
		Completer:   completer,
		Temperature: cfg.Completion.Temperature,
		MaxTokens:   cfg.Completion.MaxTokens,
	})
	if err != nil {
		sweeper.Stop()
		registry.Close()
		return nil, err
	}

	return chat.NewService(&chat.Config{
		Sessions:  registry,
		Cache:     responses,
		Queue:     queue.New(),
		Processor: proc,
		Sweeper:   sweeper,
		Timeout:   cfg.Pipeline.QueueTimeout,
	})
}
