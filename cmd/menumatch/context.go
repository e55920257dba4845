package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"menumatch/internal/analyzer"
	"menumatch/internal/config"
	"menumatch/internal/logging"
	"menumatch/internal/services/llm"
	"menumatch/internal/services/vision"
	"menumatch/internal/store"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, logLevelFlag: logLevelFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := c.applyLogLevel(cfg); err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// applyLogLevel lets --log-level override logging.level for one invocation.
func (c *commandContext) applyLogLevel(cfg *config.Config) error {
	if c.logLevelFlag == nil {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
	switch level {
	case "":
		return nil
	case "debug", "info", "warn", "error":
		cfg.Logging.Level = level
		return nil
	default:
		return fmt.Errorf("--log-level %q must be one of debug, info, warn, error", level)
	}
}

// loggerFor builds the process logger once, writing to the command's stderr.
func (c *commandContext) loggerFor(cmd *cobra.Command) (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg, cmd.ErrOrStderr())
	})
	return c.logger, c.loggerErr
}

// clients builds the enabled service clients. Disabled services stay nil.
func (c *commandContext) clients(cfg *config.Config) (*llm.Client, *vision.Client) {
	var describer *llm.Client
	var tagger *vision.Client
	if cfg.Describer.Enabled {
		describer = analyzer.NewDescriberClient(cfg.Describer)
	}
	if cfg.Tagger.Enabled {
		tagger = analyzer.NewTaggerClient(cfg.Tagger)
	}
	return describer, tagger
}

// withLedger opens the run ledger and passes it to fn.
func (c *commandContext) withLedger(ctx context.Context, fn func(*store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.Ledger.Enabled {
		return errors.New("run ledger is disabled; set ledger.enabled = true")
	}
	st, err := store.Open(ctx, cfg.Ledger.Path)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer st.Close()
	return fn(st)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

