// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package gateway composes every component of the verification gateway
// into one runnable Service, the same Config/New/Run/Router shape
// services/orchestrator uses, generalized from a single-LLM chat
// orchestrator to a multi-engine verification control plane.
package gateway

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	"github.com/qwed-gateway/qwed/attestation"
	"github.com/qwed-gateway/qwed/audit"
	"github.com/qwed-gateway/qwed/cache"
	"github.com/qwed-gateway/qwed/consensus"
	"github.com/qwed-gateway/qwed/dsl/mocksolver"
	"github.com/qwed-gateway/qwed/engines"
	"github.com/qwed-gateway/qwed/engines/codeengine"
	"github.com/qwed-gateway/qwed/engines/factengine"
	"github.com/qwed-gateway/qwed/engines/imageengine"
	"github.com/qwed-gateway/qwed/engines/logicengine"
	"github.com/qwed-gateway/qwed/engines/mathengine"
	"github.com/qwed-gateway/qwed/engines/reasoningengine"
	"github.com/qwed-gateway/qwed/engines/sqlengine"
	"github.com/qwed-gateway/qwed/engines/statsengine"
	"github.com/qwed-gateway/qwed/frames"
	"github.com/qwed-gateway/qwed/pkg/config"
	"github.com/qwed-gateway/qwed/pkg/logging"
	"github.com/qwed-gateway/qwed/policy"
	"github.com/qwed-gateway/qwed/providers"
	"github.com/qwed-gateway/qwed/providers/openai"
	"github.com/qwed-gateway/qwed/ratelimit"
	"github.com/qwed-gateway/qwed/sandbox"
	"github.com/qwed-gateway/qwed/services/gateway/handlers"
	"github.com/qwed-gateway/qwed/services/gateway/observability"
	"github.com/qwed-gateway/qwed/services/gateway/pipeline"
	"github.com/qwed-gateway/qwed/services/gateway/reflect"
	"github.com/qwed-gateway/qwed/services/gateway/routes"
	"github.com/qwed-gateway/qwed/services/gateway/schema"
	"github.com/qwed-gateway/qwed/services/gateway/translate"
	"github.com/qwed-gateway/qwed/store"
	"github.com/qwed-gateway/qwed/tenant"
)

// Service is the gateway's runnable HTTP server, following the same
// minimal lifecycle contract as services/orchestrator.Service.
type Service interface {
	Run() error
	Router() *gin.Engine
}

// service is Service's production implementation: every dependency is
// constructed once in New and never reconstructed for the process
// lifetime.
type service struct {
	config     config.Config
	log        *logging.Logger
	router     *gin.Engine
	db         *store.DB
	frameStore *frames.Store

	policyEngine *policy.Engine
	watchCancel  context.CancelFunc
}

var _ Service = (*service)(nil)

// New builds a fully wired Service: storage, tenant resolution, rate
// limiting, the policy gate, the provider router, every verification
// engine, consensus, caching, the audit chain, attestation signing, and
// finally the HTTP router. cfg is typically built with config.Load.
func New(cfg config.Config) (Service, error) {
	s := &service{
		config: cfg,
		log:    logging.New(logging.Config{Level: logging.ParseLevel(cfg.LogLevel), Service: "gateway", LogDir: cfg.LogDir}),
	}

	db, err := s.openStore()
	if err != nil {
		return nil, fmt.Errorf("gateway: open store: %w", err)
	}
	s.db = db

	resolver := tenant.NewResolver(store.NewTenantRepository(db))
	limiter := ratelimit.New(ratelimit.Config{
		PerKeyCapacity: s.config.RateLimitPerKey,
		GlobalCapacity: s.config.RateLimitGlobal,
	})

	policyEngine, err := policy.NewEngine(s.config.PolicyPatternDir, nil, 0.85)
	if err != nil {
		return nil, fmt.Errorf("gateway: init policy engine: %w", err)
	}
	s.policyEngine = policyEngine
	s.startPolicyWatch()

	router := s.initProviderRouter()
	dispatcher, err := s.initDispatcher(router)
	if err != nil {
		return nil, fmt.Errorf("gateway: init dispatcher: %w", err)
	}

	secret, err := audit.NewSecret([]byte(s.config.AuditSecretKey))
	if err != nil {
		return nil, fmt.Errorf("gateway: init audit secret: %w", err)
	}
	chain := audit.NewChain(store.NewAuditRepository(db), secret)

	securityEvents := store.NewSecurityEventRepository(db)

	p, err := pipeline.New(pipeline.Config{
		Policy:         policyEngine,
		Translator:     translate.New(router, s.config.ProviderTimeout),
		Reflector:      reflect.New(limiter, s.config.ReflectionMaxTries),
		Dispatcher:     dispatcher,
		Aggregator:     consensus.New(),
		Cache:          cache.New(cache.WithTTL(s.config.CacheTTL), cache.WithMaxEntries(s.config.CacheCapacity)),
		Chain:          chain,
		SecurityEvents: securityEvents,
	})
	if err != nil {
		return nil, fmt.Errorf("gateway: build pipeline: %w", err)
	}

	signer, err := s.initAttestationSigner()
	if err != nil {
		return nil, fmt.Errorf("gateway: init attestation signer: %w", err)
	}

	metrics := observability.InitMetrics()
	agentRepo := store.NewAgentRepository(db)

	h := handlers.New(p, signer, metrics, s.frameStore)
	adminHandlers := handlers.NewAdmin(chain, agentRepo, h)

	s.router = gin.Default()
	routes.SetupRoutes(s.router, routes.Config{
		Resolver:    resolver,
		Limiter:     limiter,
		InFlightCap: s.config.InFlightCap,
		Handlers:    h,
		Admin:       adminHandlers,
		Agents:      agentRepo,
	})

	return s, nil
}

func (s *service) openStore() (*store.DB, error) {
	if s.config.InMemory {
		return store.OpenInMemory()
	}
	storeCfg := store.DefaultConfig()
	storeCfg.Path = s.config.PersistencePath
	storeCfg.Logger = s.log.Slog()
	return store.OpenDB(storeCfg)
}

// startPolicyWatch launches config.WatchPolicyPatterns in the
// background so an operator can edit policy/patterns without a
// restart; the watcher goroutine is stopped in Run's cleanup via
// watchCancel.
func (s *service) startPolicyWatch() {
	ctx, cancel := context.WithCancel(context.Background())
	s.watchCancel = cancel
	go func() {
		err := config.WatchPolicyPatterns(ctx, s.config.PolicyPatternDir, s.log, func() error {
			return s.policyEngine.Reload(s.config.PolicyPatternDir)
		})
		if err != nil && ctx.Err() == nil {
			s.log.Warn("policy pattern watcher exited", "error", err)
		}
	}()
}

// initProviderRouter registers a real OpenAI-backed provider when an
// API key is configured, falling back to the system default name with
// no providers registered (every Provider call then fails fast,
// surfaced as a translation error) when running without credentials.
func (s *service) initProviderRouter() *providers.Router {
	r := providers.NewRouter("primary", 0)
	if s.config.PrimaryKey != "" {
		client, err := openai.New("primary", s.config.PrimaryKey, s.config.PrimaryModel)
		if err != nil {
			s.log.Error("failed to construct primary provider, running without a translator", "error", err)
		} else {
			r.Register(client)
		}
	} else {
		s.log.Warn("PRIMARY_KEY not set, no provider registered")
	}
	return r
}

// initWeaviateClient parses WeaviateURL the same way
// services/orchestrator.initWeaviate does, returning nil when unset so
// factengine falls back to an empty citation set rather than failing
// to start.
func (s *service) initWeaviateClient() *weaviate.Client {
	weaviateURL := strings.Trim(s.config.WeaviateURL, "\"' ")
	if weaviateURL == "" || !strings.Contains(weaviateURL, "http") {
		s.log.Info("Weaviate URL not configured, fact-checking runs without citation retrieval")
		return nil
	}

	parsedURL, err := url.Parse(weaviateURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		s.log.Warn("invalid WEAVIATE_SERVICE_URL, fact-checking runs without citation retrieval", "url", weaviateURL)
		return nil
	}

	client, err := weaviate.NewClient(weaviate.Config{Host: parsedURL.Host, Scheme: parsedURL.Scheme})
	if err != nil {
		s.log.Warn("failed to build Weaviate client", "error", err)
		return nil
	}
	return client
}

// initAttestationSigner loads a fixed Ed25519 seed from
// ATTESTATION_PRIVATE_KEY when configured, otherwise generates a fresh
// one for the process lifetime.
func (s *service) initAttestationSigner() (*attestation.Signer, error) {
	if s.config.AttestationPrivateKey == "" {
		return attestation.NewSigner(s.config.AttestationKeyID)
	}
	seed, err := hex.DecodeString(s.config.AttestationPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("decode ATTESTATION_PRIVATE_KEY: %w", err)
	}
	return attestation.NewSignerFromSeed(s.config.AttestationKeyID, seed)
}

// nopCitationsRetriever is used when no Weaviate endpoint is
// configured: fact checks still run, but with no retrieved spans,
// which factengine.Verify and ProviderFactChecker both already treat
// as an UNKNOWN verdict rather than an error.
type nopCitationsRetriever struct{}

func (nopCitationsRetriever) Retrieve(ctx context.Context, query string, limit int) ([]factengine.CitationSpan, error) {
	return nil, nil
}

// initDispatcher registers every verification engine, including the
// two whose supporting interfaces (MultimodalVerifier, FrameSource)
// have no implementation elsewhere in the codebase until this package
// wires them.
func (s *service) initDispatcher(router *providers.Router) (*engines.Dispatcher, error) {
	d := engines.NewDispatcher()
	d.Register(schema.KindNaturalLanguage, mathengine.New())
	d.Register(schema.KindLogic, logicengine.New(mocksolver.New()))

	sandboxLimits := sandbox.Limits{
		Timeout:      s.config.SandboxTimeout,
		MemoryLimitB: uint64(s.config.SandboxMemoryLimitMB) * 1024 * 1024,
		CPUSeconds:   uint64(s.config.SandboxCPULimit),
		MaxOutputB:   sandbox.DefaultLimits().MaxOutputB,
	}
	sandboxRunner := sandbox.New(s.config.SandboxInterpreterPath, sandboxLimits, s.log.Slog())
	frameStore := frames.New()
	s.frameStore = frameStore
	d.Register(schema.KindStats, statsengine.New(sandboxRunner, frameStore))

	var citationRetriever factengine.CitationRetriever = nopCitationsRetriever{}
	if client := s.initWeaviateClient(); client != nil {
		citationRetriever = factengine.NewWeaviateCitationRetriever(client)
	}
	checker := factengine.NewProviderFactChecker(func(ctx context.Context, claim, contextText string) (*schema.FactTask, error) {
		var task schema.FactTask
		err := router.WithFailover(ctx, "", "", func(ctx context.Context, p providers.Provider) error {
			result, err := p.VerifyFact(ctx, claim, contextText)
			if err != nil {
				return err
			}
			task = *result
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &task, nil
	})
	d.Register(schema.KindFact, factengine.New(citationRetriever, checker))

	d.Register(schema.KindCode, codeengine.New())
	d.Register(schema.KindSQL, sqlengine.New())

	var verifier imageengine.MultimodalVerifier = noopMultimodalVerifier{}
	if p, err := router.Select("", ""); err == nil {
		if asVision, ok := p.(imageengine.MultimodalVerifier); ok {
			verifier = asVision
		}
	}
	d.Register(schema.KindImage, imageengine.New(verifier))

	d.Register(schema.KindReasoning, reasoningengine.New(d))

	return d, nil
}

// noopMultimodalVerifier is registered when no vision-capable provider
// is configured; every image verification then fails outright rather
// than leaving KindImage entirely undispatchable.
type noopMultimodalVerifier struct{}

func (noopMultimodalVerifier) VerifyImage(ctx context.Context, imageBytes []byte, claim string) (imageengine.Label, string, error) {
	return "", "", fmt.Errorf("gateway: no vision-capable provider configured")
}

// Run starts the HTTP server and blocks until it exits.
func (s *service) Run() error {
	defer s.cleanup()
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.log.Info("starting gateway", "port", s.config.Port)
	return s.router.Run(addr)
}

func (s *service) cleanup() {
	if s.watchCancel != nil {
		s.watchCancel()
	}
	_ = s.db.Close()
	_ = s.log.Close()
}

// Router returns the underlying Gin engine, mainly for httptest.
func (s *service) Router() *gin.Engine {
	return s.router
}
