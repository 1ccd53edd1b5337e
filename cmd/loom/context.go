package main

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"loom/internal/config"
	"loom/internal/engine"
	"loom/internal/identity"
	"loom/internal/store"
)

type commandContext struct {
	configFlag *string
	actorFlag  *string
	roleFlag   *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, actorFlag, roleFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		actorFlag:  actorFlag,
		roleFlag:   roleFlag,
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
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// actor resolves the acting identity from flags, falling back to the
// LOOM_ACTOR and LOOM_ROLE environment variables.
func (c *commandContext) actor() (identity.Actor, error) {
	id := strings.TrimSpace(*c.actorFlag)
	if id == "" {
		id = strings.TrimSpace(os.Getenv("LOOM_ACTOR"))
	}
	roleRaw := strings.TrimSpace(*c.roleFlag)
	if roleRaw == "" {
		roleRaw = strings.TrimSpace(os.Getenv("LOOM_ROLE"))
	}
	if id == "" || roleRaw == "" {
		return identity.Actor{}, fmt.Errorf("actor identity required: pass --actor and --role (or set LOOM_ACTOR and LOOM_ROLE)")
	}
	role, ok := identity.ParseRole(roleRaw)
	if !ok {
		return identity.Actor{}, fmt.Errorf("unknown role %q (expected admin, translator, or reviewer)", roleRaw)
	}
	return identity.Actor{ID: id, Role: role}, nil
}

// withEngine opens the store for the duration of one command invocation.
func (c *commandContext) withEngine(fn func(*engine.Engine) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	return fn(engine.New(st, cfg, nil))
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
