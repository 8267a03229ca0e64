package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"slate/internal/config"
	"slate/internal/logging"
	"slate/internal/media/probe"
	"slate/internal/scene"
	"slate/internal/services/aafconv"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	logOnce sync.Once
	log     *slog.Logger
	logErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
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
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() (*slog.Logger, error) {
	c.logOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logErr = err
			return
		}
		c.log, c.logErr = logging.NewFromConfig(cfg)
	})
	return c.log, c.logErr
}

// withScene opens the scene store for the duration of fn. The store's file
// lock keeps concurrent slate invocations off the same scene.
func (c *commandContext) withScene(fn func(*config.Config, *scene.Store, *slog.Logger) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	log, err := c.logger()
	if err != nil {
		return err
	}
	store, err := scene.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cfg, store, log)
}

// converter returns nil when no converter binary is configured; AAF imports
// then fail with a translator-unavailable error instead of at startup.
func (c *commandContext) converter(cfg *config.Config) *aafconv.Client {
	if strings.TrimSpace(cfg.Converter.Binary) == "" {
		return nil
	}
	client, err := aafconv.New(cfg.Converter.Binary, cfg.Converter.TimeoutSeconds)
	if err != nil {
		return nil
	}
	return client
}

func (c *commandContext) prober(cfg *config.Config) *probe.Client {
	return probe.New(cfg.Probe.Binary, cfg.Probe.TimeoutSeconds)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
