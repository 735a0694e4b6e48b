package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/wharfside/deepresearch/internal/agents"
	"github.com/wharfside/deepresearch/internal/api"
	"github.com/wharfside/deepresearch/internal/config"
	"github.com/wharfside/deepresearch/internal/events"
	"github.com/wharfside/deepresearch/internal/images"
	"github.com/wharfside/deepresearch/internal/research"
	"github.com/wharfside/deepresearch/internal/store"
	"github.com/wharfside/deepresearch/internal/store/memory"
	"github.com/wharfside/deepresearch/internal/store/postgres"
)

type server interface {
	Start(ctx context.Context, addr string) error
}

var (
	loadConfig = func() (config.Config, error) {
		if err := config.Validate(); err != nil {
			return config.Config{}, err
		}
		return config.Load(), nil
	}
	newBroker = events.NewBroker
	newStore  = func(cfg config.Config) (store.Store, error) {
		if cfg.StoreDriver == "postgres" {
			return postgres.New(cfg.PostgresURL)
		}
		return memory.New(), nil
	}
	newRuntime = func(cfg config.Config) research.SessionRuntime {
		return agents.NewClient(agents.ClientConfig{
			Endpoint: cfg.ProjectEndpoint,
			APIKey:   cfg.ProjectAPIKey,
		})
	}
	newServer = func(st store.Store, broker *events.Broker, tasks api.TaskService, cfg config.Config) server {
		return api.NewServer(st, broker, tasks, cfg)
	}
	notifyContext = signal.NotifyContext
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := notifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	broker := newBroker()
	st, err := newStore(cfg)
	if err != nil {
		return err
	}

	imagesEnabled := cfg.ImageEndpoint != "" && cfg.ImageModelDeployment != ""
	runtime := newRuntime(cfg)
	spec := agents.NewResearchAgentSpec(agents.ResearchSpecConfig{
		Model:              cfg.AgentModelDeployment,
		BingConnectionID:   cfg.BingConnectionID,
		ResearchModel:      cfg.ResearchModel,
		BrowserServerURL:   cfg.BrowserMCPServerURL,
		BrowserServerLabel: cfg.BrowserMCPServerLabel,
		EnableImages:       imagesEnabled,
	})

	var resolve research.ResolveImagesFunc
	if imagesEnabled {
		generator := images.NewGenerator(images.GeneratorConfig{
			Endpoint:   cfg.ImageEndpoint,
			APIKey:     cfg.ImageAPIKey,
			APIVersion: cfg.ImageAPIVersion,
			Model:      cfg.ImageModelDeployment,
			OutputDir:  filepath.Join(cfg.ReportDir, "images"),
		})
		resolve = func(html string) string {
			return images.ResolvePlaceholders(html, func(prompt string) (string, error) {
				return generator.Generate(ctx, prompt)
			})
		}
	}

	manager := research.NewManager(st, broker, runtime, spec, research.Options{
		PollInterval: cfg.PollInterval,
		MaxWait:      cfg.MaxWait,
	}, resolve)

	srv := newServer(st, broker, manager, cfg)
	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("research server listening on %s", addr)
	return srv.Start(ctx, addr)
}
