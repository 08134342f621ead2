package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"subgraphd/internal/app"
)

type cliOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	logger     *zap.Logger
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{
		configPath: "subgraphd.yaml",
		logLevel:   "info",
		logFormat:  "json",
		logger:     zap.NewNop(),
	}

	root := &cobra.Command{
		Use:     "subgraphd",
		Short:   "Deployment lifecycle daemon for subgraph indexing workloads",
		Version: versionString(),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			applyRootFlagBindings(cmd, opts)
			logger, err := app.NewLogger(app.LoggingOptions{
				Level:    opts.logLevel,
				Encoding: opts.logFormat,
			})
			if err != nil {
				return err
			}
			opts.logger = logger
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = opts.logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", opts.configPath, "path to daemon config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", opts.logLevel, "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", opts.logFormat, "log encoding (json or console)")

	root.AddCommand(
		newServeCmd(opts),
		newValidateCmd(opts),
		newResolveCmd(opts),
		newStatusCmd(opts),
	)

	return root
}

func applyRootFlagBindings(cmd *cobra.Command, opts *cliOptions) {
	flags := cmd.Flags()
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "config":
			opts.configPath, _ = flags.GetString("config")
		case "log-level":
			opts.logLevel, _ = flags.GetString("log-level")
		case "log-format":
			opts.logFormat, _ = flags.GetString("log-format")
		}
	})
}

func newServeCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the deployment lifecycle daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			return app.New(opts.logger).Serve(ctx, app.ServeConfig{
				ConfigPath: opts.configPath,
			})
		},
	}
}

func newValidateCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the daemon configuration and assignments file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.New(opts.logger).ValidateConfig(cmd.Context(), app.ValidateConfig{
				ConfigPath: opts.configPath,
			})
		},
	}
}

func newResolveCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <deployment-id>",
		Short: "Resolve a deployment manifest through the gateway and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.New(opts.logger).ResolveDeployment(cmd.Context(), app.ResolveConfig{
				ConfigPath: opts.configPath,
				Deployment: args[0],
				Output:     cmd.OutOrStdout(),
			})
		},
	}
}

func newStatusCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <deployment-id>",
		Short: "Print the stored failure marker and dynamic data source count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.New(opts.logger).DeploymentStatus(cmd.Context(), app.StatusConfig{
				ConfigPath: opts.configPath,
				Deployment: args[0],
				Output:     cmd.OutOrStdout(),
			})
		},
	}
}

func versionString() string {
	if app.Build == "" {
		return app.Version
	}
	return fmt.Sprintf("%s (%s)", app.Version, app.Build)
}

func signalAwareContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
