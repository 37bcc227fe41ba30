package main

import (
	"fmt"
	"strings"

	"github.com/skiffbot/skiff/internal/alist"
	"github.com/skiffbot/skiff/internal/config"
	"github.com/skiffbot/skiff/internal/db"
	"github.com/skiffbot/skiff/internal/dispatch"
	"github.com/skiffbot/skiff/internal/keys"
	"github.com/skiffbot/skiff/internal/tunnel"
	"gorm.io/gorm"
)

const defaultConfigPath = "skiff.yaml"

// openStore loads config, connects the database, and migrates.
func openStore(configPath string) (*config.Config, *gorm.DB, *keys.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	gormDB, err := db.Connect(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := db.Migrate(gormDB); err != nil {
		return nil, nil, nil, err
	}
	store, err := keys.NewStore(gormDB)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, gormDB, store, nil
}

// buildDispatcher wires the index client and account pool from config.
func buildDispatcher(cfg *config.Config, gormDB *gorm.DB) (*dispatch.Dispatcher, *alist.Client, error) {
	index, err := alist.NewClient(alist.ClientOpts{
		BaseURL:  cfg.Alist.BaseURL,
		Username: cfg.Alist.Username,
		Password: cfg.Alist.Password,
		Token:    cfg.Alist.Token,
	})
	if err != nil {
		return nil, nil, err
	}
	d, err := dispatch.NewDispatcher(dispatch.DispatcherOpts{
		Pool:  dispatch.ParsePool(cfg.Stream.Accounts),
		Index: index,
		DB:    gormDB,
	})
	if err != nil {
		return nil, nil, err
	}
	return d, index, nil
}

// resolveRTMP assembles the push URL from the configured base and a
// stored key suffix. An empty keyName falls back to the first stored
// key, then to the bare base.
func resolveRTMP(base string, store *keys.Store, keyName string) (string, error) {
	if base == "" {
		return "", fmt.Errorf("no stream destination configured (set stream.base_url)")
	}
	if keyName != "" {
		suffix, ok, err := store.Get(keyName)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("no key named %q", keyName)
		}
		return joinRTMP(base, suffix), nil
	}
	def, err := store.Default()
	if err != nil {
		return "", err
	}
	if def != nil {
		return joinRTMP(base, def.Suffix), nil
	}
	return base, nil
}

func joinRTMP(base, suffix string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(suffix, "/")
}

// publicBase resolves the public index address, falling back to the
// local one when no tunnel is up.
func publicBase(cfg *config.Config) string {
	resolver := tunnel.NewResolver(tunnel.ResolverOpts{
		Domain: cfg.Alist.PublicDomain,
		LogDir: cfg.Tunnel.LogDir,
	})
	if url, err := resolver.PublicURL(); err == nil {
		return url
	}
	return cfg.Alist.BaseURL
}
