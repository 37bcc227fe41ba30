package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/skiffbot/skiff/internal/aria2"
	"github.com/skiffbot/skiff/internal/bridge"
	"github.com/skiffbot/skiff/internal/bridge/discord"
	"github.com/skiffbot/skiff/internal/bridge/slack"
	"github.com/skiffbot/skiff/internal/browse"
	"github.com/skiffbot/skiff/internal/config"
	"github.com/skiffbot/skiff/internal/dashboard"
	"github.com/skiffbot/skiff/internal/probe"
	"github.com/skiffbot/skiff/internal/tunnel"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat bridge daemon",
		Long:  "Connects to the chat platform and serves commands, the file browser, the health monitor, and the local dashboard until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, store, err := openStore(configPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Loaded config (%s bridge, db %s)\n", cfg.Bridge.Platform, cfg.DB.Driver)

	dispatcher, index, err := buildDispatcher(cfg, gormDB)
	if err != nil {
		return err
	}
	browser, err := browse.NewBrowser(browse.BrowserOpts{Lister: index})
	if err != nil {
		return err
	}
	downloads, err := aria2.NewClient(aria2.ClientOpts{
		RPCURL: cfg.Aria2.RPCURL,
		Secret: cfg.Aria2.Secret,
	})
	if err != nil {
		return err
	}

	adapter, err := newAdapter(cfg)
	if err != nil {
		return err
	}

	prober := probe.NewProber(probe.ProberOpts{})
	cmds, err := bridge.NewCommands(bridge.CommandsOpts{
		Dispatcher: dispatcher,
		Browser:    browser,
		Keys:       store,
		Downloads:  downloads,
		Tunnel: tunnel.NewResolver(tunnel.ResolverOpts{
			Domain: cfg.Alist.PublicDomain,
			LogDir: cfg.Tunnel.LogDir,
		}),
		Prober:     prober,
		StreamBase: cfg.Stream.BaseURL,
		LocalBase:  cfg.Alist.BaseURL,
		LogDir:     cfg.Tunnel.LogDir,
	})
	if err != nil {
		return err
	}
	router, err := bridge.NewRouter(bridge.RouterOpts{
		Adapter: adapter,
		Cmds:    cmds,
		AdminID: cfg.Bridge.AdminID,
		Out:     out,
	})
	if err != nil {
		return err
	}
	daemon, err := bridge.NewDaemon(bridge.DaemonOpts{
		Adapter:      adapter,
		Router:       router,
		AdminChannel: adminChannel(cfg),
		Out:          out,
	})
	if err != nil {
		return err
	}
	monitor, err := bridge.NewMonitor(bridge.MonitorOpts{
		Prober:    prober,
		Adapter:   adapter,
		ChannelID: adminChannel(cfg),
		Schedule:  cfg.Probe.Cron,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return daemon.Run(ctx) })

	if err := monitor.Start(ctx); err != nil {
		return err
	}
	defer monitor.Stop()

	if cfg.Dashboard.Enabled {
		server, err := dashboard.NewServer(dashboard.ServerOpts{
			Prober: prober,
			Keys:   store,
			DB:     gormDB,
			Port:   cfg.Dashboard.Port,
		})
		if err != nil {
			return err
		}
		g.Go(func() error { return server.Run(ctx) })
		fmt.Fprintf(out, "Dashboard on 127.0.0.1:%d\n", cfg.Dashboard.Port)
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(out, "Shut down.")
		return nil
	}
	return err
}

// newAdapter builds the platform adapter named by config.
func newAdapter(cfg *config.Config) (bridge.Adapter, error) {
	switch cfg.Bridge.Platform {
	case "discord":
		return discord.New(discord.AdapterOpts{
			BotToken:  cfg.Bridge.Discord.BotToken,
			ChannelID: cfg.Bridge.Discord.ChannelID,
		})
	case "slack":
		return slack.New(slack.AdapterOpts{
			AppToken:  cfg.Bridge.Slack.AppToken,
			BotToken:  cfg.Bridge.Slack.BotToken,
			ChannelID: cfg.Bridge.Slack.ChannelID,
		})
	}
	return nil, fmt.Errorf("unsupported platform %q", cfg.Bridge.Platform)
}

// adminChannel is where alerts and panic notices go.
func adminChannel(cfg *config.Config) string {
	if cfg.Bridge.Platform == "slack" {
		return cfg.Bridge.Slack.ChannelID
	}
	return cfg.Bridge.Discord.ChannelID
}
