package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"finguard/internal/agents"
	"finguard/internal/analytics"
	"finguard/internal/config"
	"finguard/internal/knowledge"
	"finguard/internal/llm"
	"finguard/internal/logging"
	"finguard/internal/orchestrator"
	"finguard/internal/store"
	"finguard/internal/types"
)

// app holds the wired components for one process.
type app struct {
	store   *store.Store
	base    *knowledge.Base
	watcher *knowledge.Watcher
	engine  *orchestrator.Engine
}

// buildApp wires the store, knowledge base, LLM clients and orchestration
// engine from config. The handler registry is built once here and never
// mutated afterwards.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("GROQ_API_KEY is not set")
	}

	st, err := store.Open(cfg.StorePath())
	if err != nil {
		return nil, err
	}

	ttl, err := cfg.InsightTTL()
	if err != nil {
		st.Close()
		return nil, err
	}
	engine := analytics.NewEngine(st, ttl)

	var embedder knowledge.Embedder
	if cfg.Knowledge.EmbeddingAPIKey != "" {
		genai, err := knowledge.NewGenAIEmbedder(cfg.Knowledge.EmbeddingAPIKey, cfg.Knowledge.EmbeddingModel)
		if err != nil {
			logger.Warn("embedding engine unavailable, using keyword search", zap.Error(err))
		} else {
			embedder = genai
		}
	}
	base, err := knowledge.NewBase(st.DB(), embedder)
	if err != nil {
		st.Close()
		return nil, err
	}
	if err := base.IngestDir(ctx, cfg.DocsDir()); err != nil {
		logger.Warn("knowledge ingest failed", zap.Error(err))
	}

	var watcher *knowledge.Watcher
	if cfg.Knowledge.Watch {
		watcher, err = knowledge.NewWatcher(base, cfg.DocsDir())
		if err != nil {
			logger.Warn("docs watcher unavailable", zap.Error(err))
			watcher = nil
		} else if err := watcher.Start(ctx); err != nil {
			logger.Warn("docs watcher failed to start", zap.Error(err))
			watcher = nil
		}
	}

	timeout, err := cfg.LLMTimeout()
	if err != nil {
		st.Close()
		return nil, err
	}
	client := llm.NewGroqClientWithConfig(llm.GroqConfig{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.RouterModel,
		Timeout: timeout,
	})

	registry, err := orchestrator.NewRegistry(
		agents.NewAnalysisHandler(client.WithModel(cfg.LLM.AgentModel("analysis")), engine),
		agents.NewKnowledgeHandler(client.WithModel(cfg.LLM.AgentModel("knowledge")), base),
		agents.NewPlanningHandler(client.WithModel(cfg.LLM.AgentModel("planning")), st),
		agents.NewTransactionHandler(client.WithModel(cfg.LLM.AgentModel("transaction")), st),
	)
	if err != nil {
		st.Close()
		return nil, err
	}

	orch := orchestrator.NewEngine(
		orchestrator.NewClassifier(client.WithModel(cfg.LLM.RouterModel)),
		registry,
		orchestrator.NewSynthesizer(client.WithModel(cfg.LLM.MergeModel)),
	)

	logging.Boot("FinGuard %s ready: store=%s capabilities=%v",
		version, cfg.StorePath(), types.AllCapabilities)
	return &app{store: st, base: base, watcher: watcher, engine: orch}, nil
}

// close releases everything buildApp opened.
func (a *app) close() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.store != nil {
		a.store.Close()
	}
}
