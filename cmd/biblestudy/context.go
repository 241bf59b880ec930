package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"biblestudy/internal/app"
	"biblestudy/internal/config"
	"biblestudy/internal/logging"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// logger writes to stderr so command output stays clean. Only warnings are
// shown unless --verbose is set.
func (c *commandContext) logger() *slog.Logger {
	level := "warn"
	if c.verbose != nil && *c.verbose {
		level = "debug"
	}
	format := "console"
	if cfg := c.configValue(); cfg != nil && cfg.Logging.Format != "" {
		format = cfg.Logging.Format
	}
	logger, err := logging.New(logging.Options{Level: level, Format: format, OutputPaths: []string{"stderr"}})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

// withApp opens the application for the duration of fn.
func (c *commandContext) withApp(fn func(*app.App) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	a, err := app.Open(cfg, c.logger())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// parseReference reads "<book words...> <chapter>" from args, so both
// `John 3` and `"1 John" 3` work.
func parseReference(args []string) (string, int, error) {
	fields := strings.Fields(strings.Join(args, " "))
	if len(fields) < 2 {
		return "", 0, fmt.Errorf("expected a book and chapter, e.g. `John 3`")
	}
	chapter, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil || chapter < 1 {
		return "", 0, fmt.Errorf("chapter must be a positive integer, got %q", fields[len(fields)-1])
	}
	return strings.Join(fields[:len(fields)-1], " "), chapter, nil
}

// parseVerseRange reads "16" or "3-5".
func parseVerseRange(value string) (int, int, error) {
	value = strings.TrimSpace(value)
	first, last, found := strings.Cut(value, "-")
	start, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil || start < 1 {
		return 0, 0, fmt.Errorf("invalid verse range %q", value)
	}
	end := start
	if found {
		end, err = strconv.Atoi(strings.TrimSpace(last))
		if err != nil || end < start {
			return 0, 0, fmt.Errorf("invalid verse range %q", value)
		}
	}
	return start, end, nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
