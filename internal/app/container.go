// Package app wires every subsystem in SPEC_FULL.md into one dependency
// graph, following spec §9's "prefer dependency injection into request
// handlers rather than ambient globals". Container is built once at
// process startup by cmd/secureyeoman/main.go and handed to
// internal/apiserver.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"

	"github.com/secureyeoman/secureyeoman/internal/ai"
	"github.com/secureyeoman/secureyeoman/internal/apperrors"
	"github.com/secureyeoman/secureyeoman/internal/audit"
	"github.com/secureyeoman/secureyeoman/internal/auth"
	"github.com/secureyeoman/secureyeoman/internal/config"
	"github.com/secureyeoman/secureyeoman/internal/extension"
	"github.com/secureyeoman/secureyeoman/internal/integration"
	"github.com/secureyeoman/secureyeoman/internal/memory"
	"github.com/secureyeoman/secureyeoman/internal/obs"
	"github.com/secureyeoman/secureyeoman/internal/soul"
	"github.com/secureyeoman/secureyeoman/internal/task"
)

// Container holds every wired subsystem. Fields are exported so
// internal/apiserver can depend on them directly rather than through a
// god-interface.
type Container struct {
	Config config.Options
	Logger obs.Logger
	Tel    obs.Telemetry

	Audit *audit.Chain
	Auth  *auth.Service

	MemoryStore  memory.Store
	MemoryIndex  memory.Index
	MemoryFlags  *memory.FlaggedSet
	QuickChecker *memory.QuickChecker
	Consolidator *memory.ConsolidationManager
	Embedder     memory.Embedder

	AIGateway *ai.Gateway

	Tasks    task.Store
	Executor *task.Executor

	Integrations *integration.Router
	IntegStore   integration.Store

	Extensions   *extension.Engine
	ExtStore     extension.Store
	ExtWebhooks  *extension.WebhookDispatcher

	Soul      *soul.Store
	Skills    *soul.SkillStore
	Knowledge *soul.KnowledgeStore

	redisClient *redis.Client
	shutdownFns []func(context.Context) error

	onboardingMu       sync.Mutex
	onboardingComplete bool
}

// OnboardingComplete reports whether the onboarding workflow has been
// marked done (spec §6 "GET /soul/onboarding/status"). Guarded by a mutex
// rather than a package-level global per spec §9, since the soul handlers
// read and write it from concurrent requests.
func (c *Container) OnboardingComplete() bool {
	c.onboardingMu.Lock()
	defer c.onboardingMu.Unlock()
	return c.onboardingComplete
}

// CompleteOnboarding marks onboarding done (spec §6 "POST
// /soul/onboarding/complete").
func (c *Container) CompleteOnboarding() {
	c.onboardingMu.Lock()
	defer c.onboardingMu.Unlock()
	c.onboardingComplete = true
}

// Build constructs and wires the full Container from cfg. It performs no
// network I/O beyond constructing a lazy Redis client (spec §1 "a single
// process owns the data stores"; spec §6 "RedisURL: empty = use
// in-memory backends").
func Build(ctx context.Context, cfg config.Options) (*Container, error) {
	if len(cfg.SigningKey) < 32 {
		return nil, apperrors.Newf(apperrors.KindInvalidInput, "SECUREYEOMAN_SIGNING_KEY must be at least 32 characters")
	}
	if len(cfg.TokenSecret) < 32 {
		return nil, apperrors.Newf(apperrors.KindInvalidInput, "SECUREYEOMAN_TOKEN_SECRET must be at least 32 characters")
	}
	if cfg.AdminPassword == "" {
		return nil, apperrors.Newf(apperrors.KindInvalidInput, "SECUREYEOMAN_ADMIN_PASSWORD is required")
	}

	logger := obs.NewLogger(cfg.ServiceName)
	tel, shutdownTel := obs.NewOTelTelemetry(cfg.ServiceName, logger)

	c := &Container{Config: cfg, Logger: logger, Tel: tel}
	c.shutdownFns = append(c.shutdownFns, shutdownTel)

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, apperrors.New("app.Build", apperrors.KindInvalidInput, err)
		}
		redisClient = redis.NewClient(opts)
		c.redisClient = redisClient
		c.shutdownFns = append(c.shutdownFns, func(context.Context) error { return redisClient.Close() })
	}

	// Audit Chain
	var auditStorage audit.Storage
	if redisClient != nil {
		auditStorage = audit.NewRedisStorage(redisClient, cfg.ServiceName+":audit")
	} else {
		auditStorage = audit.NewMemoryStorage()
	}
	chain, err := audit.NewChain(ctx, auditStorage, cfg.SigningKey, logger)
	if err != nil {
		return nil, err
	}
	c.Audit = chain

	// Auth Core
	adminHash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return nil, err
	}
	roleStore := auth.NewMemoryRoleStore()
	keyStore := auth.NewMemoryKeyStore()
	tokens := auth.NewTokenService(cfg.TokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	rbac := auth.NewRBAC(roleStore, chain, logger)

	var limiter auth.RateLimiter
	attemptsRule := auth.Rule{Name: "auth_attempts", Limit: cfg.AuthAttemptsMax, Window: cfg.AuthAttemptsWindow}
	if redisClient != nil {
		limiter = auth.NewRedisRateLimiter(redisClient, cfg.ServiceName+":ratelimit", attemptsRule)
	} else {
		limiter = auth.NewInMemoryRateLimiter(attemptsRule)
	}

	c.Auth = auth.NewService(auth.Config{
		Tokens: tokens, RBAC: rbac, Limiter: limiter, Keys: keyStore, Roles: roleStore,
		Chain: chain, Logger: logger, AdminPassHash: adminHash,
	})

	// AI Gateway & Model Router
	c.AIGateway = ai.NewGatewayFromConfig(cfg, logger)

	// Memory & Consolidation Engine
	var memStore memory.Store
	if redisClient != nil {
		memStore = memory.NewRedisStore(redisClient, cfg.ServiceName+":memory")
	} else {
		memStore = memory.NewInMemoryStore(logger)
	}
	c.MemoryStore = memStore

	index, err := memory.NewFlatIndex(memoryIndexSidecarPath(cfg))
	if err != nil {
		return nil, err
	}
	c.MemoryIndex = index
	c.shutdownFns = append(c.shutdownFns, func(context.Context) error { return index.Close() })

	c.MemoryFlags = memory.NewFlaggedSet(redisClient, cfg.ServiceName+":consolidation:flaggedIds")

	embedder := ai.NewHashEmbedder(64)
	c.Embedder = embedder
	c.QuickChecker = memory.NewQuickChecker(memStore, index, embedder, memory.Thresholds{
		FlagThreshold:      cfg.MemoryFlagThreshold,
		AutoDedupThreshold: cfg.MemoryAutoDedupThreshold,
	}, c.MemoryFlags, logger)

	var advisor memory.Advisor
	if len(ai.BuildProviders(cfg, logger)) > 0 {
		advisor = memory.NewAIAdvisor(c.AIGateway)
	}
	c.Consolidator = memory.NewConsolidationManager(memStore, index, c.MemoryFlags, advisor, memory.ConsolidationConfig{
		Cron: cfg.ConsolidationCron, BatchSize: cfg.ConsolidationBatchSize, Timeout: cfg.ConsolidationTimeout,
		FlagThreshold: cfg.MemoryFlagThreshold, ReplaceThreshold: cfg.MemoryReplaceThreshold,
	}, logger)

	// Task Executor
	var taskStore task.Store
	if redisClient != nil {
		taskStore = task.NewRedisStore(redisClient, cfg.ServiceName+":tasks")
	} else {
		taskStore = task.NewInMemoryStore(logger)
	}
	c.Tasks = taskStore
	c.Executor = task.NewExecutor(taskStore, chain, logger, task.Config{
		StuckTimeout: cfg.TaskStuckTimeout, RepetitionThreshold: cfg.TaskRepetitionThreshold,
	})
	c.Executor.RegisterHandler("QUERY", task.NewQueryHandler(c.AIGateway, nil, 8))

	// Extension Hook Engine
	c.ExtWebhooks = extension.NewWebhookDispatcher(cfg.ExtensionWebhookTimeout, logger)
	c.Extensions = extension.NewEngine(c.ExtWebhooks, cfg.ExtensionWebhooksEnabled, logger)
	c.ExtStore = extension.NewInMemoryStore()
	if err := extension.Bootstrap(ctx, c.Extensions, c.ExtStore); err != nil {
		return nil, err
	}

	// Soul (Personality) — not load-bearing per spec §3, but the
	// Integration Router's PersonalityResolver contract is satisfied by
	// it directly.
	c.Soul = soul.NewStore()
	c.Skills = soul.NewSkillStore()
	c.Knowledge = soul.NewKnowledgeStore()

	// Integration Router
	c.IntegStore = integration.NewInMemoryStore()
	c.Integrations = integration.NewRouter(
		c.IntegStore,
		extension.NewIntegrationDispatcher(c.Extensions),
		c.Soul,
		c.Executor,
		nil, // no multimodal TTS synthesizer wired: out of scope per spec.md
		logger,
	)

	return c, nil
}

func memoryIndexSidecarPath(cfg config.Options) string {
	if cfg.RedisURL != "" {
		return fmt.Sprintf("/tmp/%s-vectorindex.json", cfg.ServiceName)
	}
	return fmt.Sprintf("/tmp/%s-vectorindex-dev.json", cfg.ServiceName)
}

// StartBackground launches the consolidation scheduler. Call Shutdown to
// stop it and flush every subsystem with a Close/Shutdown hook.
func (c *Container) StartBackground(ctx context.Context) {
	c.Consolidator.StartScheduler(ctx)
}

// Shutdown stops background work and releases resources in the reverse
// order they were acquired.
func (c *Container) Shutdown(ctx context.Context) error {
	c.Consolidator.Stop()
	var firstErr error
	for i := len(c.shutdownFns) - 1; i >= 0; i-- {
		if err := c.shutdownFns[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// bootstrapSingleAdminRoleAssignment ensures defensive startup logging
// makes the single-admin-principal model (spec §1 Non-goals) explicit in
// the audit trail of every process start.
func (c *Container) bootstrapSingleAdminRoleAssignment(ctx context.Context) {
	_, _ = c.Audit.Record(ctx, audit.Event{
		Event: "process_start", Level: audit.LevelInfo,
		Message: "secureyeoman gateway starting",
		Metadata: map[string]audit.MetaValue{
			"service": c.Config.ServiceName,
		},
	})
}

// RecordStartup is the exported entry point main.go calls once at
// startup, just before the HTTP server begins listening.
func (c *Container) RecordStartup(ctx context.Context) {
	c.bootstrapSingleAdminRoleAssignment(ctx)
}
