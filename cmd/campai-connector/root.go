package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var rootCmd = &cobra.Command{
	Use:           "campai-connector [sub-command]",
	Short:         "Reconcile Campai membership records against a Keycloak realm",
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "campai-connector.yaml", "path to the configuration file")
	rootCmd.PersistentFlags().String("log-level", "info", "set the log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "set the log format (text, json)")
	rootCmd.AddCommand(newSyncCmd())
}

// buildLogger constructs the zap logger from the persistent logging flags.
// Logs go to stderr; stdout is reserved for the preview and the report.
func buildLogger(cmd *cobra.Command) (*zap.Logger, error) {
	levelName, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, err
	}
	level, err := zapcore.ParseLevel(levelName)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", levelName, err)
	}

	format, err := cmd.Flags().GetString("log-format")
	if err != nil {
		return nil, err
	}
	var encoder zapcore.Encoder
	switch format {
	case "json":
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case "text":
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(cfg)
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	return zap.New(core), nil
}
