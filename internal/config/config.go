package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultCORSOrigins are the browser origins allowed when FOUNDRY_CORS_ORIGINS
// is unset.
var DefaultCORSOrigins = []string{
	"http://localhost:3000",
	"https://foundry-data.onrender.com",
}

type Config struct {
	DatabaseURL string   // FOUNDRY_DATABASE_URL, falling back to DATABASE_URL (required)
	HTTPAddr    string   // FOUNDRY_HTTP_ADDR (default ":" + PORT, or ":6500")
	GRPCAddr    string   // FOUNDRY_GRPC_ADDR (default ":9090"; "off" disables)
	NATSURL     string   // FOUNDRY_NATS_URL (optional, empty = no events)
	CORSOrigins []string // FOUNDRY_CORS_ORIGINS (comma separated)
	AutoMigrate bool     // FOUNDRY_AUTO_MIGRATE (default true)

	LogFormat string     // FOUNDRY_LOG_FORMAT ("json" or "text", default "text")
	LogLevel  slog.Level // FOUNDRY_LOG_LEVEL (default info)

	// Sync settings
	SyncInterval   time.Duration // FOUNDRY_SYNC_INTERVAL (default 0 = disabled)
	SyncS3Bucket   string        // FOUNDRY_SYNC_S3_BUCKET (enables S3 when set)
	SyncS3Endpoint string        // FOUNDRY_SYNC_S3_ENDPOINT (custom endpoint for MinIO)
	SyncS3Region   string        // FOUNDRY_SYNC_S3_REGION (default "us-east-1")
	SyncS3Key      string        // FOUNDRY_SYNC_S3_KEY (default "foundry/export.jsonl")
	SyncGitRepo    string        // FOUNDRY_SYNC_GIT_REPO (enables git when set; path to clone)
	SyncGitFile    string        // FOUNDRY_SYNC_GIT_FILE (default "foundry.jsonl")
	SyncGitBranch  string        // FOUNDRY_SYNC_GIT_BRANCH (default "main")
}

func Load() (*Config, error) {
	c := &Config{
		DatabaseURL:    envOrDefault("FOUNDRY_DATABASE_URL", os.Getenv("DATABASE_URL")),
		HTTPAddr:       envOrDefault("FOUNDRY_HTTP_ADDR", ":"+envOrDefault("PORT", "6500")),
		GRPCAddr:       envOrDefault("FOUNDRY_GRPC_ADDR", ":9090"),
		NATSURL:        os.Getenv("FOUNDRY_NATS_URL"),
		CORSOrigins:    splitList(envOrDefault("FOUNDRY_CORS_ORIGINS", strings.Join(DefaultCORSOrigins, ","))),
		LogFormat:      strings.ToLower(envOrDefault("FOUNDRY_LOG_FORMAT", "text")),
		SyncS3Bucket:   os.Getenv("FOUNDRY_SYNC_S3_BUCKET"),
		SyncS3Endpoint: os.Getenv("FOUNDRY_SYNC_S3_ENDPOINT"),
		SyncS3Region:   envOrDefault("FOUNDRY_SYNC_S3_REGION", "us-east-1"),
		SyncS3Key:      envOrDefault("FOUNDRY_SYNC_S3_KEY", "foundry/export.jsonl"),
		SyncGitRepo:    os.Getenv("FOUNDRY_SYNC_GIT_REPO"),
		SyncGitFile:    envOrDefault("FOUNDRY_SYNC_GIT_FILE", "foundry.jsonl"),
		SyncGitBranch:  envOrDefault("FOUNDRY_SYNC_GIT_BRANCH", "main"),
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("FOUNDRY_DATABASE_URL is required")
	}
	if strings.EqualFold(c.GRPCAddr, "off") {
		c.GRPCAddr = ""
	}

	autoMigrate, err := strconv.ParseBool(envOrDefault("FOUNDRY_AUTO_MIGRATE", "true"))
	if err != nil {
		return nil, fmt.Errorf("FOUNDRY_AUTO_MIGRATE: %w", err)
	}
	c.AutoMigrate = autoMigrate

	if err := c.LogLevel.UnmarshalText([]byte(envOrDefault("FOUNDRY_LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("FOUNDRY_LOG_LEVEL: %w", err)
	}

	intervalStr := envOrDefault("FOUNDRY_SYNC_INTERVAL", "0s")
	d, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("FOUNDRY_SYNC_INTERVAL: %w", err)
	}
	c.SyncInterval = d

	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
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
