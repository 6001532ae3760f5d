// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/folio/internal/cloud"
	"github.com/jeranaias/folio/internal/config"
	"github.com/jeranaias/folio/internal/metrics"
	"github.com/jeranaias/folio/internal/quota"
	"github.com/jeranaias/folio/internal/server"
	"github.com/jeranaias/folio/internal/storage"
)

// History older than historyRetention is pruned every pruneInterval.
const (
	historyRetention = 30 * 24 * time.Hour
	pruneInterval    = time.Hour
)

// HandleServe runs the chat backend until SIGINT or SIGTERM.
func HandleServe(cfg *config.Config, args Args) error {
	log, closer := stderrLogger(cfg)
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.Server.DatabasePath)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	limiter := quota.New(ctx, cfg.Server.RedisURL, cfg.Server.DailyQuota, log.Component("quota"))
	defer limiter.Close()

	upstream := cloud.NewClient(cloud.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		MaxRetries:  cfg.LLM.MaxRetries,
	}).WithLogger(log.Upstream())
	if !upstream.IsConfigured() {
		ul := log.Upstream()
		ul.Warn().Msg("MISTRAL_API_KEY is not set; chat requests will fail with 401")
	}

	profile, err := loadProfile(cfg)
	if err != nil {
		return err
	}

	opts := server.OptionsFromConfig(cfg)
	switch {
	case args.Addr != "":
		opts.Addr = args.Addr
	case args.Port > 0:
		opts.Addr = net.JoinHostPort(cfg.Server.Host, strconv.Itoa(args.Port))
	}
	opts.SystemPrompt = profile.SystemPrompt()
	opts.ContactEmail = profile.Email
	opts.Quota = limiter
	opts.Metrics = metrics.New()
	opts.Logger = log

	srv := server.New(upstream, store, opts)
	log.LogServerStart(srv.Addr(), store.Path(), upstream.Model())
	zl := log.Zerolog()
	zl.Info().Str("quota_backend", limiter.Backend()).Int("daily_quota", cfg.Server.DailyQuota).Msg("daily quota")

	if args.Watch {
		path, err := resolveConfigPath(args)
		if err != nil {
			return err
		}
		cl := log.Component("config")
		w := config.NewWatcher(path, cfg, srv.Reload, cl)
		go func() {
			if err := w.Run(ctx); err != nil {
				cl.Warn().Err(err).Msg("config watch stopped")
			}
		}()
	}

	go pruneHistory(ctx, store, log.Store())

	return srv.Run(ctx)
}

// pruneHistory deletes expired chat turns until ctx is done.
func pruneHistory(ctx context.Context, store *storage.HistoryStore, log zerolog.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		n, err := store.Prune(ctx, time.Now().Add(-historyRetention))
		if err != nil {
			log.Warn().Err(err).Msg("history prune failed")
		} else if n > 0 {
			log.Info().Int64("rows", n).Msg("pruned old chat history")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
