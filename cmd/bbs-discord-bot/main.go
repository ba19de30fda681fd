// Copyright (c) 2026 toof-jp
//
// Use of this source code is governed by the MIT License that can be found in
// the LICENSE file at the root of this repository.

// Command bbs-discord-bot relays Discord messages that mention it to a
// niconico community BBS.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/toof-jp/bbsmech"
	"github.com/toof-jp/bbsmech/discordbot"
	"github.com/toof-jp/bbsmech/internal/config"
	"github.com/toof-jp/bbsmech/internal/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	var envFile string

	cmd := &cobra.Command{
		Use:     "bbs-discord-bot",
		Short:   "Relay Discord mentions to a niconico community BBS",
		Version: bbsmech.Version,
		Long: `Relay Discord mentions to a niconico community BBS.

Every message mentioning the bot is posted to the board, with the mention
removed and the Discord message and user IDs appended. The bot replies with
the board's answer.

USER_SESSION (the niconico session cookie) and DISCORD_TOKEN must be set in
the environment, or in a .env file.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(envFile); err != nil {
				return err
			}

			cfg, err := config.Load(v)
			if err != nil {
				return errors.Wrap(err, "invalid configuration")
			}

			logger.Initialize(cfg.LogLevel, cfg.LogJSON)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&envFile, "env-file", ".env", "file to load environment variables from, if it exists")
	flags.String("landing-url", config.DefaultLandingURL, "board landing page the posting credential is scraped from")
	flags.String("board-id", config.DefaultBoardID, "board ID on the dictionary site")
	flags.String("endpoint", bbsmech.DefaultEndpoint, "scheme and host posts are sent to")
	flags.String("default-from", config.DefaultFrom, "name to post as when the author has none")
	flags.Duration("cooldown", bbsmech.MinPostInterval, "minimum time between posts (0 disables)")
	flags.Duration("timeout", config.DefaultRequestTimeout, "timeout for each post")
	flags.String("metrics-addr", "", "listen address for /metrics and /healthz (empty disables)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Bool("log-json", false, "log in JSON")

	if err := bindFlags(v, flags, flagKeys); err != nil {
		panic(err)
	}

	return cmd
}

// flagKeys maps configuration keys to the flags that override them.
var flagKeys = map[string]string{
	config.KeyLandingURL:     "landing-url",
	config.KeyBoardID:        "board-id",
	config.KeyEndpoint:       "endpoint",
	config.KeyDefaultFrom:    "default-from",
	config.KeyPostCooldown:   "cooldown",
	config.KeyRequestTimeout: "timeout",
	config.KeyMetricsAddr:    "metrics-addr",
	config.KeyLogLevel:       "log-level",
	config.KeyLogJSON:        "log-json",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		f := flags.Lookup(name)
		if f == nil {
			return errors.Errorf("no flag --%s to bind %q to", name, key)
		}

		if err := v.BindPFlag(key, f); err != nil {
			return errors.Wrapf(err, "failed to bind flag --%s", name)
		}
	}

	return nil
}

func run(ctx context.Context, cfg config.Config) error {
	log := logger.Log

	httpc := &http.Client{Timeout: cfg.RequestTimeout}

	client, err := bbsmech.New(httpc, cfg.Board)
	if err != nil {
		return errors.Wrap(err, "failed to create board client")
	}

	h, err := discordbot.NewHandler(client, discordbot.Config{
		SessionCookie: cfg.UserSession,
		DefaultFrom:   cfg.DefaultFrom,
		Cooldown:      cfg.PostCooldown,
		Timeout:       cfg.RequestTimeout,
		Logger:        log,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create handler")
	}

	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return errors.Wrap(err, "failed to create Discord session")
	}

	dg.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent
	dg.AddHandler(h.OnReady)
	dg.AddHandler(h.OnMessageCreate)

	if err := dg.Open(); err != nil {
		return errors.Wrap(err, "failed to connect to Discord")
	}

	defer func() { _ = dg.Close() }()

	log.Info("relaying mentions", "board", cfg.Board.ID, "landing_url", cfg.Board.LandingURL, "cooldown", cfg.PostCooldown)

	if len(cfg.MetricsAddr) > 0 {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           discordbot.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server failed", "addr", cfg.MetricsAddr, "error", err)
			}
		}()

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		log.Info("serving metrics", "addr", cfg.MetricsAddr)
	}

	<-ctx.Done()

	log.Info("shutting down")

	return nil
}
