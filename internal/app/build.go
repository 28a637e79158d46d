// Package app wires the service's components together for the main binary
// and for end-to-end tests.
package app

import (
	"context"
	"fmt"
	"log"

	"github.com/gallmarco/centralino/internal/config"
	"github.com/gallmarco/centralino/internal/httpapi"
	"github.com/gallmarco/centralino/internal/observability"
	"github.com/gallmarco/centralino/internal/orchestrator"
	"github.com/gallmarco/centralino/internal/policy"
	"github.com/gallmarco/centralino/internal/provider"
	"github.com/gallmarco/centralino/internal/session"
	"github.com/gallmarco/centralino/internal/transcript"
)

type BuildResult struct {
	Config   config.Config
	API      *httpapi.Server
	Sessions *session.Store
	Provider provider.Completion
	Metrics  *observability.Metrics

	// Cleanup releases external resources (the transcript archive) on shutdown.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	prov, err := provider.New(provider.Config{
		Mode:           cfg.AIProvider,
		OpenAIKey:      cfg.OpenAIKey,
		AnthropicKey:   cfg.AnthropicKey,
		OpenAIModel:    cfg.OpenAIModel,
		AnthropicModel: cfg.AnthropicModel,
	})
	if err != nil {
		return nil, fmt.Errorf("completion provider init failed: %w", err)
	}
	log.Printf("completion provider: %s", prov.Name())

	archive, err := transcript.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("transcript archive init failed: %w", err)
	}

	sessions := session.NewStore(cfg.SessionTimeout, policy.Level)

	orch := orchestrator.New(prov, metrics, orchestrator.Options{
		Timing: orchestrator.Timing{
			TypingMin:       cfg.TypingDelayMin,
			TypingMax:       cfg.TypingDelayMax,
			TransferPause:   cfg.TransferPause,
			HoldMin:         cfg.HoldDelayMin,
			HoldMax:         cfg.HoldDelayMax,
			PatternPause:    cfg.PatternPause,
			ProviderTimeout: cfg.ProviderTimeout,
		},
	})

	api := httpapi.New(cfg, sessions, orch, prov, archive, metrics)

	return &BuildResult{
		Config:   cfg,
		API:      api,
		Sessions: sessions,
		Provider: prov,
		Metrics:  metrics,
		Cleanup:  archive.Close,
	}, nil
}
