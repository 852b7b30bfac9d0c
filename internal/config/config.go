package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config is the server configuration, read from GIVECAL_* environment
// variables.
type Config struct {
	Fundraiser    string        // GIVECAL_FUNDRAISER (default "fundraiser.toml")
	DatabaseURL   string        // GIVECAL_DATABASE_URL (optional, overrides [store] url; empty = local-only)
	GRPCAddr      string        // GIVECAL_GRPC_ADDR (default ":9090")
	HTTPAddr      string        // GIVECAL_HTTP_ADDR (default ":8080")
	NATSURL       string        // GIVECAL_NATS_URL (optional, empty = embedded server when synced)
	AuthToken     string        // GIVECAL_AUTH_TOKEN (optional, empty = writes are open)
	FallbackDelay time.Duration // GIVECAL_FALLBACK_DELAY (default 1500ms)
	CORSOrigins   []string      // GIVECAL_CORS_ORIGINS (comma-separated, default "*")

	// Sync settings
	SyncInterval   time.Duration // GIVECAL_SYNC_INTERVAL (default 3m; 0 = disabled)
	SyncS3Bucket   string        // GIVECAL_SYNC_S3_BUCKET (enables S3 when set)
	SyncS3Endpoint string        // GIVECAL_SYNC_S3_ENDPOINT (custom endpoint for MinIO)
	SyncS3Region   string        // GIVECAL_SYNC_S3_REGION (default "us-east-1")
	SyncS3Key      string        // GIVECAL_SYNC_S3_KEY (default "givecal/pledges.jsonl")
	SyncGitRepo    string        // GIVECAL_SYNC_GIT_REPO (enables git when set; path to clone)
	SyncGitFile    string        // GIVECAL_SYNC_GIT_FILE (default "pledges.jsonl")
	SyncGitBranch  string        // GIVECAL_SYNC_GIT_BRANCH (default "main")
}

func Load() (*Config, error) {
	c := &Config{
		Fundraiser:     envOrDefault("GIVECAL_FUNDRAISER", "fundraiser.toml"),
		DatabaseURL:    os.Getenv("GIVECAL_DATABASE_URL"),
		GRPCAddr:       envOrDefault("GIVECAL_GRPC_ADDR", ":9090"),
		HTTPAddr:       envOrDefault("GIVECAL_HTTP_ADDR", ":8080"),
		NATSURL:        os.Getenv("GIVECAL_NATS_URL"),
		AuthToken:      os.Getenv("GIVECAL_AUTH_TOKEN"),
		CORSOrigins:    splitList(envOrDefault("GIVECAL_CORS_ORIGINS", "*")),
		SyncS3Bucket:   os.Getenv("GIVECAL_SYNC_S3_BUCKET"),
		SyncS3Endpoint: os.Getenv("GIVECAL_SYNC_S3_ENDPOINT"),
		SyncS3Region:   envOrDefault("GIVECAL_SYNC_S3_REGION", "us-east-1"),
		SyncS3Key:      envOrDefault("GIVECAL_SYNC_S3_KEY", "givecal/pledges.jsonl"),
		SyncGitRepo:    os.Getenv("GIVECAL_SYNC_GIT_REPO"),
		SyncGitFile:    envOrDefault("GIVECAL_SYNC_GIT_FILE", "pledges.jsonl"),
		SyncGitBranch:  envOrDefault("GIVECAL_SYNC_GIT_BRANCH", "main"),
	}

	var err error
	if c.SyncInterval, err = envDuration("GIVECAL_SYNC_INTERVAL", "3m"); err != nil {
		return nil, err
	}
	if c.FallbackDelay, err = envDuration("GIVECAL_FALLBACK_DELAY", "1500ms"); err != nil {
		return nil, err
	}
	if c.FallbackDelay < 0 {
		return nil, fmt.Errorf("GIVECAL_FALLBACK_DELAY must not be negative")
	}

	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
