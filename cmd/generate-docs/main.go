// Command generate-docs builds the documentation fixture site: markdown
// sources listed in toc.yaml are rendered through the page layout and written
// as static HTML next to the widget runtime.
//
// Usage:
//
//	go run ./cmd/generate-docs -out ./out
//	go run ./cmd/generate-docs -src ./my-docs -out ./out
//	go run ./cmd/generate-docs -publish    # uploads to SITE_S3_BUCKET
//
// Without -src the fixtures embedded in the binary are used.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/diplodoc-platform/testpack/internal/docs"
	"github.com/diplodoc-platform/testpack/internal/obs"
	"github.com/diplodoc-platform/testpack/internal/s3client"
)

func main() {
	var (
		srcDir   string
		outDir   string
		publish  bool
		logLevel string
	)
	flag.StringVar(&srcDir, "src", "", "Directory with toc.yaml and markdown sources (default: embedded fixtures)")
	flag.StringVar(&outDir, "out", "", "Directory to write the built site to (default: <project root>/out)")
	flag.BoolVar(&publish, "publish", false, "Upload the built site to SITE_S3_BUCKET under SITE_S3_PREFIX")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	obs.Init()
	obs.SetLevel(obs.ParseLevel(logLevel))
	log := obs.Pkg("generate-docs")

	src := docs.Fixtures()
	if srcDir != "" {
		src = os.DirFS(srcDir)
	}

	start := time.Now()
	built, err := docs.Build(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate-docs: %v\n", err)
		os.Exit(1)
	}
	log.Info("site_built", "files", len(built.Files), "dur_ms", time.Since(start).Milliseconds())

	if publish {
		if err := publishSite(context.Background(), built); err != nil {
			fmt.Fprintf(os.Stderr, "generate-docs: publish: %v\n", err)
			os.Exit(1)
		}
		if outDir == "" {
			return
		}
	}

	if outDir == "" {
		root, err := findProjectRoot()
		if err != nil {
			fmt.Fprintf(os.Stderr, "generate-docs: %v\n", err)
			os.Exit(1)
		}
		outDir = filepath.Join(root, "out")
	}
	if err := built.WriteDir(outDir); err != nil {
		fmt.Fprintf(os.Stderr, "generate-docs: %v\n", err)
		os.Exit(1)
	}
	log.Info("site_written", "dir", outDir)
}

func publishSite(ctx context.Context, built *docs.Site) error {
	bucket := env("SITE_S3_BUCKET", env("BUCKET_NAME", ""))
	if bucket == "" {
		return fmt.Errorf("SITE_S3_BUCKET is required")
	}
	endpoint := env("AWS_ENDPOINT_URL_S3", "")
	client, err := s3client.New(ctx, s3client.Config{
		Endpoint:        endpoint,
		Region:          env("AWS_REGION", "auto"),
		AccessKeyID:     env("AWS_ACCESS_KEY_ID", ""),
		SecretAccessKey: env("AWS_SECRET_ACCESS_KEY", ""),
		BucketName:      bucket,
		UsePathStyle:    endpoint != "",
	})
	if err != nil {
		return err
	}
	return built.Publish(ctx, client, strings.Trim(env("SITE_S3_PREFIX", ""), "/"))
}

func env(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// findProjectRoot finds the project root by looking for go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find go.mod in any parent directory")
		}
		dir = parent
	}
}
