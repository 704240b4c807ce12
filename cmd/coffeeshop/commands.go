package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/thangchung/coffeeshop-agent/pkg/auth"
	"github.com/thangchung/coffeeshop-agent/pkg/catalog"
	"github.com/thangchung/coffeeshop-agent/pkg/classifier"
	"github.com/thangchung/coffeeshop-agent/pkg/config"
	"github.com/thangchung/coffeeshop-agent/pkg/counter"
	"github.com/thangchung/coffeeshop-agent/pkg/fulfillment"
	"github.com/thangchung/coffeeshop-agent/pkg/order"
	"github.com/thangchung/coffeeshop-agent/pkg/registry"
	"github.com/thangchung/coffeeshop-agent/pkg/server"
	"github.com/thangchung/coffeeshop-agent/pkg/task"
)

// buildValidator returns the inbound token validator, or nil when auth is
// disabled.
func buildValidator(cfg *config.Config) (auth.TokenValidator, error) {
	if !cfg.Auth.Enabled {
		return nil, nil
	}
	validator, err := auth.NewJWTValidator(cfg.Auth.JWKSURL, cfg.Auth.Issuer, cfg.Auth.Audience)
	if err != nil {
		return nil, fmt.Errorf("failed to create token validator: %w", err)
	}
	return validator, nil
}

// buildTokenSource returns the outbound credential source, or nil when none
// is configured.
func buildTokenSource(cfg *config.Config) (auth.TokenSource, error) {
	client := cfg.Auth.Client
	switch {
	case client.StaticToken != "":
		return auth.NewStaticTokenSource(client.StaticToken)
	case client.TokenURL != "":
		return auth.NewClientCredentialsSource(client.ClientID, client.ClientSecret, client.TokenURL, client.Scopes)
	default:
		return nil, nil
	}
}

// buildTaskStore opens the configured SQL store, or returns nil for the
// in-memory default.
func buildTaskStore(cfg *config.Config) (*task.SQLStore, error) {
	if cfg.TaskStore.Driver == "memory" {
		return nil, nil
	}
	return task.Open(cfg.TaskStore.Driver, cfg.TaskStore.DSN, slog.Default())
}

// buildServerOptions assembles the hosting options shared by all agents.
func buildServerOptions(validator auth.TokenValidator, store *task.SQLStore) []server.Option {
	var opts []server.Option
	if validator != nil {
		opts = append(opts, server.WithAuth(validator, true))
	}
	if store != nil {
		opts = append(opts, server.WithTaskStore(store))
	}
	return opts
}

// CounterCmd starts the counter agent.
type CounterCmd struct {
	Port int `help:"Port to listen on (overrides config)."`
}

func (c *CounterCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if err := setupLogger(cfg.Log); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	validator, err := buildValidator(cfg)
	if err != nil {
		return err
	}
	tokens, err := buildTokenSource(cfg)
	if err != nil {
		return err
	}
	store, err := buildTaskStore(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	cls, err := buildClassifier(cfg, tokens)
	if err != nil {
		return err
	}

	reg := registry.New(map[order.Category]string{
		order.CategoryBarista: cfg.Counter.BaristaURL,
		order.CategoryKitchen: cfg.Counter.KitchenURL,
	}, tokens)
	defer reg.Close()

	orchOpts := []counter.OrchestratorOption{
		counter.WithRequireAuth(cfg.Auth.Enabled),
	}
	if tokens != nil {
		orchOpts = append(orchOpts, counter.WithTokenSource(tokens))
	}
	orchestrator := counter.NewOrchestrator(
		counter.NewInputValidator(cfg.Counter.MaxOrderChars),
		cls,
		counter.RegistryProvider{Registry: reg},
		counter.NewRouter(slog.Default()),
		orchOpts...,
	)

	card := server.BuildAgentCard(server.CounterCardSpec(), cfg.Server.PublicURL(), buildVersion(), cfg.Auth.Enabled)
	srv := server.New(card, orchestrator, buildServerOptions(validator, store)...)
	return srv.Start(ctx, cfg.Server.Address())
}

// buildClassifier selects the classification backend. Without an API key the
// deterministic keyword matcher keeps the demo usable offline.
func buildClassifier(cfg *config.Config, tokens auth.TokenSource) (classifier.Classifier, error) {
	clsCfg := cfg.Counter.Classifier
	if clsCfg.Provider == "stub" || clsCfg.APIKey == "" {
		if clsCfg.Provider == "openai" {
			slog.Warn("no classifier api key configured, using keyword matcher")
		}
		return classifier.NewStubClassifier(catalog.Products()), nil
	}

	httpClient := http.DefaultClient
	if tokens != nil {
		httpClient = auth.HTTPClient(tokens)
	}
	products := catalog.NewClient(cfg.Counter.CatalogURL, catalog.WithHTTPClient(httpClient))

	var opts []classifier.OpenAIOption
	if clsCfg.BaseURL != "" {
		opts = append(opts, classifier.WithBaseURL(clsCfg.BaseURL))
	}
	return classifier.NewOpenAIClassifier(clsCfg.APIKey, clsCfg.Model, products, opts...)
}

// BaristaCmd starts the barista agent.
type BaristaCmd struct {
	Port int `help:"Port to listen on (overrides config)."`
}

func (c *BaristaCmd) Run(cli *CLI) error {
	return runFulfillment(cli, c.Port, server.BaristaCardSpec(), fulfillment.NewBarista)
}

// KitchenCmd starts the kitchen agent.
type KitchenCmd struct {
	Port int `help:"Port to listen on (overrides config)."`
}

func (c *KitchenCmd) Run(cli *CLI) error {
	return runFulfillment(cli, c.Port, server.KitchenCardSpec(), fulfillment.NewKitchen)
}

func runFulfillment(cli *CLI, port int, spec server.CardSpec, newExecutor func(...fulfillment.Option) *fulfillment.Executor) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if err := setupLogger(cfg.Log); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	validator, err := buildValidator(cfg)
	if err != nil {
		return err
	}
	store, err := buildTaskStore(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	var execOpts []fulfillment.Option
	if validator != nil {
		execOpts = append(execOpts, fulfillment.WithValidator(validator))
	}
	if delay := cfg.Fulfillment.PrepDelayDuration(); delay > 0 {
		execOpts = append(execOpts, fulfillment.WithPrepDelay(delay))
	}
	executor := newExecutor(execOpts...)

	card := server.BuildAgentCard(spec, cfg.Server.PublicURL(), buildVersion(), cfg.Auth.Enabled)
	srv := server.New(card, executor, buildServerOptions(validator, store)...)
	return srv.Start(ctx, cfg.Server.Address())
}

// CatalogCmd starts the product catalog MCP tool server.
type CatalogCmd struct {
	Port  int  `help:"Port to listen on (overrides config)."`
	Stdio bool `help:"Serve over stdio instead of HTTP."`
}

func (c *CatalogCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if err := setupLogger(cfg.Log); err != nil {
		return err
	}

	mcpServer := catalog.NewMCPServer(buildVersion())
	if c.Stdio {
		return catalog.ServeStdio(mcpServer)
	}

	ctx, cancel := signalContext()
	defer cancel()

	mux := http.NewServeMux()
	mux.Handle("/", catalog.NewHTTPHandler(mcpServer))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	slog.Info("catalog server starting", "address", cfg.Server.Address())

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
