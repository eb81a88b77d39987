package config

import (
	"io/ioutil"

	"github.com/Luismorlan/chain_in_go/utils"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// This is the global app config for the ledger node. Yaml keys are the lower cased
// field names, e.g. snapshot_path.
type AppConfig struct {
	// How many leading hex 0s form a valid hash for a fresh ledger. A loaded
	// snapshot keeps its own difficulty.
	DIFFICULTY int
	// Where the ledger is loaded from at startup and saved to at shutdown.
	SNAPSHOT_PATH string
	// HTTP bind address.
	LISTEN_ADDR string
	// gRPC health service bind address. Empty disables it.
	HEALTH_ADDR string
	// Rotating log file. Empty logs to stderr only.
	LOG_FILE string
	// Largest POST /add_block body accepted.
	MAX_BODY_BYTES int64
	// Origins allowed to call the HTTP API from a browser. Empty disables CORS.
	CORS_ORIGINS []string
	// How long in-flight requests get to finish at shutdown.
	SHUTDOWN_TIMEOUT_SECONDS int
}

func DefaultAppConfig() AppConfig {
	return AppConfig{
		DIFFICULTY:               2,
		SNAPSHOT_PATH:            "blockchain.json",
		LISTEN_ADDR:              "127.0.0.1:8080",
		MAX_BODY_BYTES:           2 << 20,
		SHUTDOWN_TIMEOUT_SECONDS: 10,
	}
}

// ParseAppConfig reads a yaml config on top of the defaults, so a file only needs the
// keys it changes. An empty path returns the defaults.
func ParseAppConfig(path string) (AppConfig, error) {
	c := DefaultAppConfig()
	if path == "" {
		return c, nil
	}
	yamlFile, err := ioutil.ReadFile(path)
	if err != nil {
		return c, errors.Wrap(err, "failed to read config")
	}
	err = yaml.UnmarshalStrict(yamlFile, &c)
	if err != nil {
		return c, errors.Wrapf(err, "failed to parse config %s", path)
	}
	return c, c.Validate()
}

func (c AppConfig) Validate() error {
	if err := utils.CheckDifficulty(c.DIFFICULTY); err != nil {
		return err
	}
	if c.SNAPSHOT_PATH == "" {
		return errors.New("snapshot_path is required")
	}
	if c.LISTEN_ADDR == "" {
		return errors.New("listen_addr is required")
	}
	if c.MAX_BODY_BYTES <= 0 {
		return errors.Errorf("max_body_bytes must be positive, got %d", c.MAX_BODY_BYTES)
	}
	if c.SHUTDOWN_TIMEOUT_SECONDS < 0 {
		return errors.Errorf("shutdown_timeout_seconds must not be negative, got %d", c.SHUTDOWN_TIMEOUT_SECONDS)
	}
	return nil
}
