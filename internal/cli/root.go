// Package cli implements the catalogctl command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/catalograg/internal/app"
	"github.com/kailas-cloud/catalograg/internal/config"
	logpkg "github.com/kailas-cloud/catalograg/internal/logger"
	"github.com/kailas-cloud/catalograg/internal/version"
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
)

type options struct {
	cfgFile string
	env     string
	verbose bool
	output  string
}

// NewRootCommand creates the root command.
func NewRootCommand(build version.Info) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "catalogctl",
		Short: "Product catalog retrieval toolkit",
		Long: `catalogctl ingests product tables into the vector index and answers
natural-language questions against it, using the same configuration as the API server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if opts.output != OutputText && opts.output != OutputJSON {
				return fmt.Errorf("output must be %q or %q, got %q", OutputText, OutputJSON, opts.output)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "", "config file path (default: config/<env>.yaml)")
	rootCmd.PersistentFlags().StringVarP(&opts.env, "env", "e", config.GetEnv(), "environment name")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", OutputText, "output format (text, json)")

	rootCmd.AddCommand(newIngestCommand(opts))
	rootCmd.AddCommand(newAskCommand(opts))
	rootCmd.AddCommand(newSchemaCommand(opts))
	rootCmd.AddCommand(newStatsCommand(opts))
	rootCmd.AddCommand(newResetCommand(opts))
	rootCmd.AddCommand(newVersionCommand(opts, build))

	return rootCmd
}

func newVersionCommand(opts *options, build version.Info) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if opts.output == OutputJSON {
				return opts.printJSON(out, build)
			}
			_, _ = fmt.Fprintf(out, "catalogctl %s\n", build)
			_, _ = fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			return nil
		},
	}
}

func (o *options) loadConfig() (config.Config, error) {
	if o.cfgFile != "" {
		return config.LoadFile(o.cfgFile)
	}
	return config.Load(o.env)
}

// openApp wires the application. Logs stay quiet unless --verbose is set.
func (o *options) openApp(ctx context.Context) (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	level := "warn"
	if o.verbose {
		level = "debug"
	}
	logger, err := logpkg.New(o.env, logpkg.WithLevel(level), logpkg.WithComponent("catalogctl"), logpkg.WithoutSampling())
	if err != nil {
		logger = zap.NewNop()
	}

	return app.New(ctx, cfg, logger)
}

func (o *options) printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
