// Package commands implements the filmjoin command line.
package commands

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/filmjoin/config"
)

// Version is set at build time.
var Version = "dev"

// CLI represents the filmjoin command line interface.
type CLI struct {
	rootCmd *cobra.Command
	flags   globalFlags
}

// globalFlags override values from the config file when set.
type globalFlags struct {
	configPath string
	baseURL    string
	ttl        time.Duration
	timeout    time.Duration
}

// New creates a new CLI instance.
func New() *CLI {
	c := &CLI{}
	rootCmd := &cobra.Command{
		Use:           "filmjoin",
		Short:         "Serve films joined with the people who appear in them",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&c.flags.configPath, "config", "c", "", "Path to a YAML config file")
	pf.StringVar(&c.flags.baseURL, "base-url", "", "Upstream API base URL")
	pf.DurationVar(&c.flags.ttl, "ttl", 0, "Cache TTL per collection")
	pf.DurationVar(&c.flags.timeout, "timeout", 0, "Upstream request timeout")

	c.rootCmd = rootCmd
	rootCmd.AddCommand(c.newServeCmd())
	rootCmd.AddCommand(c.newWorksCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// loadConfig reads the config file if given, applies flag overrides and validates.
func (c *CLI) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if c.flags.configPath != "" {
		var err error
		if cfg, err = config.Load(c.flags.configPath); err != nil {
			return config.Config{}, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.Upstream.BaseURL = c.flags.baseURL
	}
	if flags.Changed("ttl") {
		cfg.Cache.TTL = c.flags.ttl
	}
	if flags.Changed("timeout") {
		cfg.Upstream.Timeout = c.flags.timeout
	}
	if flags.Changed("addr") {
		addr, _ := flags.GetString("addr")
		cfg.Server.Addr = addr
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
