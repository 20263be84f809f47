// Package config loads the agent's runtime configuration from environment
// variables and command-line flags, per SPEC_FULL.md §6.4. Environment
// variables take precedence over flags so a deployment's env can override
// a baked-in flag default without a rebuild, matching the donor's own
// override ordering.
package config

import (
	"flag"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/devbox-run/agent/internal/idgen"
)

const (
	DefaultAddr          = "0.0.0.0:9757"
	DefaultWorkspacePath = "/home/devbox/project"
	DefaultMaxFileSize   = 104857600
)

// Config is the fully resolved runtime configuration.
type Config struct {
	Addr          string
	WorkspacePath string
	MaxFileSize   int64
	Token         string
}

// Load resolves configuration from flags first, then environment variable
// overrides, then (for Token only) an auto-generated fallback.
func Load() *Config {
	addr := flag.String("addr", DefaultAddr, "address to listen on")
	workspacePath := flag.String("workspace-path", DefaultWorkspacePath, "workspace root directory")
	maxFileSize := flag.Int64("max-file-size", DefaultMaxFileSize, "maximum upload size in bytes")
	token := flag.String("token", "", "bearer token required on authenticated routes")
	flag.Parse()

	cfg := &Config{
		Addr:          *addr,
		WorkspacePath: *workspacePath,
		MaxFileSize:   *maxFileSize,
		Token:         *token,
	}

	if v := os.Getenv("ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("WORKSPACE_PATH"); v != "" {
		cfg.WorkspacePath = v
	}
	if v := os.Getenv("MAX_FILE_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxFileSize = n
		}
	}
	if v := os.Getenv("TOKEN"); v != "" {
		cfg.Token = v
	}

	if cfg.Token == "" {
		cfg.Token = idgen.New()
		logrus.WithField("token", cfg.Token).Warn("no TOKEN configured; generated a random one for this run")
	}

	return cfg
}
