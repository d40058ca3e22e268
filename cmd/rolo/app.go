package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xiaot623/rolo/internal/adapter/llm"
	"github.com/xiaot623/rolo/internal/config"
	"github.com/xiaot623/rolo/internal/dispatch"
	"github.com/xiaot623/rolo/internal/repository"
	"github.com/xiaot623/rolo/internal/service"
	"github.com/xiaot623/rolo/internal/tools"
	"github.com/xiaot623/rolo/policy"
	"go.uber.org/zap"
)

// app wires the store, the dispatcher and the conversation service.
type app struct {
	store   *store.SQLiteStore
	backups *store.SnapshotStore
	svc     *service.Service
}

func openApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	backups, err := store.NewSnapshotStore(db, cfg.BackupDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize backup store: %w", err)
	}
	a := &app{store: db, backups: backups}

	registry := tools.NewRegistry(cfg.EnabledTools, cfg.DisabledTools)
	if err := tools.RegisterBuiltins(registry, db, backups); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	engine, err := newPolicyEngine(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	d, err := dispatch.New(registry, backups, engine, dispatch.Options{Retention: cfg.AutoBackupRetention}, logger.Named("dispatch"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize dispatcher: %w", err)
	}

	llmClient := llm.NewLLMClient(cfg.LLMURL, cfg.LLMAPIKey, cfg.LLMTimeout, logger)
	a.svc = service.New(db, d, llmClient, backups, cfg, logger.Named("service"))

	logger.Debug("rolo initialized",
		zap.String("db_path", cfg.DBPath),
		zap.String("backup_dir", cfg.BackupDir),
		zap.Int("tools", len(d.Tools())),
		zap.Bool("read_only", cfg.ReadOnly))
	return a, nil
}

func newPolicyEngine(ctx context.Context, cfg *config.Config) (*policy.Engine, error) {
	settings := policy.Settings{ReadOnly: cfg.ReadOnly, ConfirmDestructive: cfg.ConfirmDestructive}
	if cfg.PolicyFile != "" {
		engine, err := policy.LoadEngine(ctx, cfg.PolicyFile, settings)
		if err != nil {
			return nil, fmt.Errorf("failed to load policy %s: %w", cfg.PolicyFile, err)
		}
		return engine, nil
	}
	engine, err := policy.NewEngine(ctx, policy.DefaultPolicy, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize policy engine: %w", err)
	}
	return engine, nil
}

// Close releases the stores.
func (a *app) Close() error {
	if a.backups != nil {
		a.backups.Close()
	}
	return a.store.Close()
}
