package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/lanegrid/agtrace/internal/applog"
	"github.com/lanegrid/agtrace/internal/config"
	"github.com/lanegrid/agtrace/pkg/client"
	"github.com/lanegrid/agtrace/pkg/provider"
	"github.com/lanegrid/agtrace/pkg/provider/claude"
	"github.com/lanegrid/agtrace/pkg/provider/codex"
	"github.com/lanegrid/agtrace/pkg/provider/gemini"
)

func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".agtrace", "agtrace.toml"), nil
}

func newRegistry() *provider.Registry {
	return provider.NewRegistry(claude.New(), codex.New(), gemini.New())
}

func newClient() (*client.Client, *zap.Logger, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	log, err := applog.New(false)
	if err != nil {
		return nil, nil, err
	}
	c, err := client.Connect(cfg.IndexPath, cfg.Roots(), newRegistry(), log)
	if err != nil {
		return nil, nil, err
	}
	return c, log, nil
}
