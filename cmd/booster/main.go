// Package main provides the booster CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/richinex/booster/cli"
	"github.com/richinex/booster/config"
	"github.com/richinex/booster/logging"
	"github.com/richinex/booster/modelconfig"
)

var (
	// Global flags
	dbPath   string
	logLevel string
	verbose  bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "booster",
		Short: "Prompt Booster model configuration and LLM client",
		Long: `Manage LLM model configurations and talk to them through one client.

Standard providers: openai, claude, gemini, deepseek, hunyuan, siliconflow, ollama.
Custom interfaces with a chat/completions endpoint speak the OpenAI wire format.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default $BOOSTER_DB or the user config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (default $BOOSTER_LOG_LEVEL or warn)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(providersCmd())
	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(compareCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp opens the app for one command and closes it afterwards.
func withApp(serve bool, fn func(ctx context.Context, app *cli.App) error) error {
	settings, err := config.New()
	if err != nil {
		return err
	}
	if dbPath != "" {
		settings.DBPath = dbPath
	}

	level := logLevel
	if level == "" && os.Getenv("BOOSTER_LOG_LEVEL") != "" {
		level = settings.LogLevel
	}
	if level == "" {
		level = "warn"
		if serve {
			level = "info"
		}
	}
	if verbose {
		level = "debug"
	}
	log := logging.Console(level, os.Stderr)
	if serve {
		log = logging.New(level, os.Stderr)
	}

	app, err := cli.Open(settings, log)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(context.Background(), app)
}

func providersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List registered providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(false, func(ctx context.Context, app *cli.App) error {
				app.ListProviders()
				return nil
			})
		},
	}
}

func modelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage model configurations",
	}
	cmd.AddCommand(modelsListCmd())
	cmd.AddCommand(modelsSetCmd())
	cmd.AddCommand(modelsAddCustomCmd())
	cmd.AddCommand(modelsRemoveCustomCmd())
	cmd.AddCommand(modelsUseCmd())
	cmd.AddCommand(modelsTestCmd())
	cmd.AddCommand(modelsFetchCmd())
	return cmd
}

func modelsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List standard and custom models (keys masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(false, func(ctx context.Context, app *cli.App) error {
				return app.ListModels(ctx)
			})
		},
	}
}

// configFlags binds the fields shared by set and add-custom.
func configFlags(cmd *cobra.Command, form *modelconfig.ModelConfig, timeout *int) {
	cmd.Flags().StringVar(&form.APIKey, "api-key", "", "API key")
	cmd.Flags().StringVar(&form.BaseURL, "base-url", "", "Base URL")
	cmd.Flags().StringVar(&form.Model, "model", "", "Model name")
	cmd.Flags().StringVar(&form.Endpoint, "endpoint", "", "Chat endpoint path")
	cmd.Flags().IntVar(timeout, "timeout", 0, "Request timeout in seconds")
	cmd.Flags().BoolVar(&form.Enabled, "enabled", true, "Show the model in the picker")
}

func modelsSetCmd() *cobra.Command {
	var form modelconfig.ModelConfig
	var timeout int

	cmd := &cobra.Command{
		Use:   "set [type]",
		Short: "Configure a standard model slot",
		Long: `Configure a standard model slot. Unset fields keep the provider defaults.
Without --api-key the key is read from the provider's environment variable.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form.Timeout = time.Duration(timeout) * time.Second
			return withApp(false, func(ctx context.Context, app *cli.App) error {
				return app.SetModel(ctx, args[0], form)
			})
		},
	}
	configFlags(cmd, &form, &timeout)
	return cmd
}

func modelsAddCustomCmd() *cobra.Command {
	var form modelconfig.ModelConfig
	var timeout int

	cmd := &cobra.Command{
		Use:   "add-custom [name]",
		Short: "Add a custom interface",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form.Name = args[0]
			form.Timeout = time.Duration(timeout) * time.Second
			return withApp(false, func(ctx context.Context, app *cli.App) error {
				return app.AddCustom(ctx, modelconfig.CustomInterface(form))
			})
		},
	}
	cmd.Flags().StringVar(&form.ProviderName, "provider", "", "Provider name")
	configFlags(cmd, &form, &timeout)
	return cmd
}

func modelsRemoveCustomCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-custom [id]",
		Short: "Remove a custom interface",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(false, func(ctx context.Context, app *cli.App) error {
				return app.RemoveCustom(ctx, args[0])
			})
		},
	}
}

func modelsUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use [id]",
		Short: "Select the active model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(false, func(ctx context.Context, app *cli.App) error {
				return app.UseModel(ctx, args[0])
			})
		},
	}
}

func modelsTestCmd() *cobra.Command {
	var retry bool

	cmd := &cobra.Command{
		Use:   "test [id]",
		Short: "Test the connection of a model (active model by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(false, func(ctx context.Context, app *cli.App) error {
				return app.TestModel(ctx, firstArg(args), retry)
			})
		},
	}
	cmd.Flags().BoolVar(&retry, "retry", false, "Retry transient failures with backoff")
	return cmd
}

func modelsFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch [id]",
		Short: "List the models a provider offers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(false, func(ctx context.Context, app *cli.App) error {
				return app.FetchModels(ctx, args[0])
			})
		},
	}
}

func chatCmd() *cobra.Command {
	var opts cli.ChatOptions

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Send a message, or start an interactive chat without one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(false, func(ctx context.Context, app *cli.App) error {
				return app.Chat(ctx, firstArg(args), opts)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ModelID, "model-id", "", "Model id (default: active model)")
	cmd.Flags().StringVarP(&opts.SystemMessage, "system", "s", "", "System prompt")
	cmd.Flags().BoolVar(&opts.Stream, "stream", true, "Stream the response")
	return cmd
}

func compareCmd() *cobra.Command {
	var modelID, original, optimized string

	cmd := &cobra.Command{
		Use:   "compare [message]",
		Short: "Answer a message with two system prompts side by side",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(false, func(ctx context.Context, app *cli.App) error {
				return app.Compare(ctx, modelID, args[0], original, optimized)
			})
		},
	}
	cmd.Flags().StringVar(&modelID, "model-id", "", "Model id (default: active model)")
	cmd.Flags().StringVar(&original, "original", "", "Original system prompt")
	cmd.Flags().StringVar(&optimized, "optimized", "", "Optimized system prompt")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API for the web UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(true, func(ctx context.Context, app *cli.App) error {
				if addr != "" {
					app.Settings.Server.Addr = addr
				}
				return app.Serve(ctx)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default $BOOSTER_ADDR or :8000)")
	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
