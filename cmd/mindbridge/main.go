package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mindbridge/mindbridge/internal/config"
	"github.com/mindbridge/mindbridge/internal/data"
	"github.com/mindbridge/mindbridge/internal/logger"
	"github.com/mindbridge/mindbridge/internal/mapping"
	"github.com/mindbridge/mindbridge/internal/mcp"
	"github.com/mindbridge/mindbridge/internal/models"
	"github.com/mindbridge/mindbridge/internal/tools"
	maptools "github.com/mindbridge/mindbridge/internal/tools/mapping"
	modeltools "github.com/mindbridge/mindbridge/internal/tools/models"
	"github.com/mindbridge/mindbridge/internal/watcher"
	"github.com/mindbridge/mindbridge/pkg/protocol"
	"github.com/mindbridge/mindbridge/pkg/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mindbridge: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	logger.Init(logger.Config{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
		Output: os.Stderr,
	})
	log := logger.ForComponent("main")

	source := data.NewFileSource(cfg.DataDir)

	mappingStore, err := mapping.NewStore(source, cfg.MappingCacheSize)
	if err != nil {
		return fmt.Errorf("mapping store: %w", err)
	}

	modelStore, err := models.NewStore(source, cfg.ModelsDBPath)
	if err != nil {
		return fmt.Errorf("model store: %w", err)
	}
	defer modelStore.Close()

	registry := tools.NewRegistry()
	for _, tool := range maptools.GetTools(mappingStore) {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}
	for _, tool := range modeltools.GetTools(modelStore) {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}
	if err := registry.Register(tools.NewHealthTool(version.Version, modelStore.Version)); err != nil {
		return err
	}

	resources := mcp.NewResourceRegistry()
	if err := registerResources(resources, source, modelStore); err != nil {
		return err
	}

	prompts := mcp.NewPromptRegistry()
	if err := prompts.Register(protocol.Prompt{
		Name:        "model_lookup",
		Description: "Look up MindSpore models by task",
		Arguments: []protocol.PromptArgument{
			{Name: "task", Description: "Task to look up (e.g. 'text-generation')", Required: true},
			{Name: "limit", Description: "Maximum number of models (default 5)"},
		},
	}, mcp.ModelLookupPrompt); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Watcher.Enabled {
		w, err := watcher.New(cfg.DataDir, cfg.Watcher, func(paths []string) {
			mappingStore.Invalidate()
			for _, path := range paths {
				if path != data.RegistryFileName {
					continue
				}
				if err := modelStore.Reload(); err != nil {
					log.Warn("model registry reload failed", "error", err)
				}
				break
			}
		})
		if err != nil {
			log.Warn("watcher unavailable", "error", err)
		} else if err := w.Start(ctx); err != nil {
			log.Warn("watcher failed to start", "error", err)
		} else {
			defer w.Stop()
		}
	}

	handler := mcp.NewHandler(registry, resources, prompts, cfg.ToolTimeout)
	server := mcp.NewServer(handler)

	log.Info("serving MCP over stdio",
		"tools", len(registry.Names()),
		"data_dir", cfg.DataDir,
		"registry_version", modelStore.Version())

	if err := server.ServeStdio(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func registerResources(resources *mcp.ResourceRegistry, source data.Source, modelStore *models.Store) error {
	document := func(key data.Key) mcp.ResourceFunc {
		return func(context.Context) (interface{}, error) {
			raw, err := source.Load(key)
			if err != nil {
				return nil, err
			}
			return json.RawMessage(raw), nil
		}
	}

	sections := func(kind data.Kind) mcp.ResourceFunc {
		return func(context.Context) (interface{}, error) {
			names, err := source.Sections(kind)
			if err != nil {
				return nil, err
			}
			result := make(map[string]json.RawMessage, len(names))
			for _, name := range names {
				raw, err := source.Load(data.Key{Kind: kind, Section: name})
				if err != nil {
					continue
				}
				result[name] = json.RawMessage(raw)
			}
			return result, nil
		}
	}

	entries := []struct {
		meta protocol.Resource
		fn   mcp.ResourceFunc
	}{
		{
			meta: protocol.Resource{
				URI:         "mindspore://models/official",
				Name:        "Official models registry",
				Description: "Full official MindSpore models registry document",
			},
			fn: func(context.Context) (interface{}, error) { return modelStore.Registry() },
		},
		{
			meta: protocol.Resource{
				URI:         "mindspore://opmap/pytorch/consistent",
				Name:        "API mapping (consistent)",
				Description: "PyTorch→MindSpore API mapping entries with consistent behavior",
			},
			fn: document(data.Key{Kind: data.KindConsistent}),
		},
		{
			meta: protocol.Resource{
				URI:         "mindspore://opmap/pytorch/diff",
				Name:        "API mapping (diff)",
				Description: "PyTorch→MindSpore API mapping entries with behavior differences",
			},
			fn: document(data.Key{Kind: data.KindDiff}),
		},
		{
			meta: protocol.Resource{
				URI:         "mindspore://opmap/pytorch/sections/consistent",
				Name:        "Per-section API mapping (consistent)",
				Description: "Per-section consistent mapping tables keyed by section",
			},
			fn: sections(data.KindConsistent),
		},
		{
			meta: protocol.Resource{
				URI:         "mindspore://opmap/pytorch/sections/diff",
				Name:        "Per-section API mapping (diff)",
				Description: "Per-section diff mapping tables keyed by section",
			},
			fn: sections(data.KindDiff),
		},
	}

	for _, e := range entries {
		if err := resources.Register(e.meta, e.fn); err != nil {
			return err
		}
	}
	return nil
}
