// Command docserver serves a built documentation site for UI tests.
//
// Usage:
//
//	docserver --root ./out
//	docserver --s3            # reads SITE_S3_BUCKET / SITE_S3_PREFIX
//
// Paths without an extension are served as .html files and paths ending in a
// slash as index.html. GET /healthz answers once the listener is up.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diplodoc-platform/testpack/internal/config"
	"github.com/diplodoc-platform/testpack/internal/mcp"
	"github.com/diplodoc-platform/testpack/internal/obs"
	"github.com/diplodoc-platform/testpack/internal/ratelimit"
	"github.com/diplodoc-platform/testpack/internal/s3client"
	"github.com/diplodoc-platform/testpack/internal/search"
	"github.com/diplodoc-platform/testpack/internal/server"
	"github.com/diplodoc-platform/testpack/internal/site"
)

func main() {
	root, addr, useS3 := config.ParseFlags()
	cfg, err := config.LoadConfig(root, addr, useS3)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	obs.Init()
	obs.SetLevel(obs.ParseLevel(cfg.LogLevel))
	cfg.PrintStartupSummary()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		obs.Pkg("main").Error("server_failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log := obs.Pkg("main")

	content, err := openContent(ctx, cfg)
	if err != nil {
		return err
	}

	deps := server.Deps{Root: content, MaxResults: cfg.SearchMaxResult}

	var index *search.Index
	if cfg.EnableSearch {
		index = search.New()
		defer index.Close()
		start := time.Now()
		if err := index.Build(ctx, content); err != nil {
			return fmt.Errorf("build search index: %w", err)
		}
		log.Info("search_index_built", "docs", index.Len(), "dur_ms", time.Since(start).Milliseconds())

		limiter := ratelimit.New(cfg.RateLimitConfig)
		defer limiter.Stop()
		deps.Searcher = index
		deps.Limiter = limiter
	}

	if cfg.EnableMCP {
		var searcher search.Searcher
		if index != nil {
			searcher = index
		}
		deps.MCP = mcp.NewServer(searcher, site.NewHandler(content), cfg.BaseURL)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.New(deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server_listening", "addr", cfg.ListenAddr, "base_url", cfg.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("server_shutdown", "timeout", cfg.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server_stopped")
	return nil
}

// openContent returns the site root: a local directory, or a bucket prefix
// when cfg.UseS3 is set. A missing directory is served as an empty site.
func openContent(ctx context.Context, cfg *config.Config) (fs.FS, error) {
	if !cfg.UseS3 {
		if info, err := os.Stat(cfg.Root); err != nil {
			obs.Pkg("main").Warn("content_root_missing", "root", cfg.Root, "err", err)
		} else if !info.IsDir() {
			obs.Pkg("main").Warn("content_root_not_dir", "root", cfg.Root)
		}
		return os.DirFS(cfg.Root), nil
	}

	client, err := s3client.New(ctx, s3client.Config{
		Endpoint:        cfg.AWSEndpointS3,
		Region:          cfg.AWSRegion,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		BucketName:      cfg.SiteBucket,
		UsePathStyle:    cfg.AWSEndpointS3 != "",
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	return site.NewS3FS(ctx, client, cfg.SitePrefix)
}
