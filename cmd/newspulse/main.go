package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newspulse-hq/newspulse/internal/aggregator"
	"github.com/newspulse-hq/newspulse/internal/config"
	"github.com/newspulse-hq/newspulse/internal/enrich"
	"github.com/newspulse-hq/newspulse/internal/logger"
	"github.com/newspulse-hq/newspulse/internal/remote"
	"github.com/newspulse-hq/newspulse/internal/scrape"
	"github.com/newspulse-hq/newspulse/internal/server"
	"github.com/newspulse-hq/newspulse/internal/store"
	"github.com/newspulse-hq/newspulse/pkg/feedparse"
	"github.com/newspulse-hq/newspulse/pkg/httpclient"
	"github.com/newspulse-hq/newspulse/pkg/publishers"
	"github.com/newspulse-hq/newspulse/pkg/relay"
)

const shutdownGrace = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "newspulse:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	relayTimeout := time.Duration(cfg.Relay.TimeoutSeconds) * time.Second
	if relayTimeout <= 0 {
		relayTimeout = relay.DefaultTimeout
	}

	remoteClient := remote.New(cfg.Remote.BaseURL, cfg.Remote.APIKey, nil, log)
	ring := relay.NewRing(
		httpclient.NewRestyClient(relayTimeout),
		feedparse.New(),
		log,
		relay.WithTimeout(relayTimeout),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pubs, err := buildPublishers(ctx, cfg.Publishers.File, log)
	if err != nil {
		return err
	}

	aggOpts := []aggregator.Option{aggregator.WithPublishers(pubs)}
	if cfg.Scrape.Enabled {
		backfiller := scrape.New(httpclient.NewRestyClient(relayTimeout), log)
		aggOpts = append(aggOpts, aggregator.WithBackfiller(backfiller))
	}

	agg := aggregator.New(
		cfg.CategoryFeeds(),
		ring,
		st,
		remoteClient,
		log,
		aggOpts...,
	)

	gen := enrich.NewGeminiClient(
		cfg.Generative.APIKey,
		cfg.Generative.TextModel,
		cfg.Generative.SpeechModel,
		cfg.Generative.Voice,
		nil,
	)
	enricher := enrich.NewService(remoteClient, gen, log)

	srv := server.New(agg, enricher, remoteClient, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Server.Address)
	}()

	log.InfoObj("harvester started", "startup", map[string]any{
		"address":    cfg.Server.Address,
		"categories": len(cfg.Feeds),
		"remote":     remoteClient.Enabled(),
		"publishers": len(pubs),
	})

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func buildPublishers(ctx context.Context, file string, log logger.Logger) ([]publishers.Publisher, error) {
	if file == "" {
		return nil, nil
	}

	reg, err := publishers.LoadRegistry(file)
	if err != nil {
		return nil, fmt.Errorf("load publishers: %w", err)
	}
	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), reg.Enabled(), log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	return pubs, nil
}
