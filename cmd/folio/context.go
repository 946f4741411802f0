package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"folio/internal/client"
	"folio/internal/config"
)

const clientTimeout = 30 * time.Second

type commandContext struct {
	apiBindFlag *string
	configFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(apiBindFlag, configFlag *string) *commandContext {
	return &commandContext{
		apiBindFlag: apiBindFlag,
		configFlag:  configFlag,
	}
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
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) apiBind() string {
	if c.apiBindFlag != nil && strings.TrimSpace(*c.apiBindFlag) != "" {
		return strings.TrimSpace(*c.apiBindFlag)
	}
	if cfg, err := c.ensureConfig(); err == nil {
		return cfg.Paths.APIBind
	}
	return ""
}

func (c *commandContext) withClient(fn func(context.Context, *client.Client) error) error {
	api, err := client.New(c.apiBind())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
	defer cancel()

	if err := api.Health(ctx); err != nil {
		return fmt.Errorf("daemon unreachable at %s; start it with `folio daemon run` (%w)", c.apiBind(), err)
	}
	return fn(ctx, api)
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
