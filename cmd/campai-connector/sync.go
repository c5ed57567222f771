package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"lesverein.de/campai-connector/internal/campai"
	"lesverein.de/campai-connector/internal/config"
	"lesverein.de/campai-connector/internal/keycloak"
	"lesverein.de/campai-connector/internal/membersync"
	"lesverein.de/campai-connector/internal/uptime"
)

func newSyncCmd() *cobra.Command {
	var cacheTo, cacheFrom string
	var autoApply bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one reconciliation pass against the configured realm",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := buildLogger(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			configPath, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			settings, err := config.Load(configPath)
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			var heartbeat *uptime.Client
			if settings.Uptime.PushURL != "" {
				heartbeat = uptime.New(settings.Uptime.PushURL, nil)
			}

			err = runSync(ctx, settings, logger, syncFlags{
				cacheTo:   cacheTo,
				cacheFrom: cacheFrom,
				autoApply: autoApply || settings.Sync.AutoApply,
			})
			if err != nil {
				logger.Error("sync failed", zap.Error(err))
				if heartbeat != nil {
					if herr := heartbeat.Down(ctx, "Sync failed"); herr != nil {
						logger.Warn("could not push down heartbeat", zap.Error(herr))
					}
				}
				return err
			}
			if heartbeat != nil {
				if herr := heartbeat.Up(ctx, "Sync successful"); herr != nil {
					logger.Warn("could not push up heartbeat", zap.Error(herr))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cacheTo, "cache-to", "", "write the deduplicated contact set to this file after fetching")
	cmd.Flags().StringVar(&cacheFrom, "cache-from", "", "load the contact set from this file instead of fetching from Campai")
	cmd.Flags().BoolVar(&autoApply, "auto-apply", false, "apply planned operations without asking for confirmation")

	return cmd
}

type syncFlags struct {
	cacheTo   string
	cacheFrom string
	autoApply bool
}

func runSync(ctx context.Context, settings *config.Settings, logger *zap.Logger, flags syncFlags) error {
	logger.Info("using Campai API", zap.String("url", settings.Campai.BaseURL))
	source := campai.New(settings.Campai.BaseURL, settings.Campai.APIKey, nil)

	logger.Info("using Keycloak admin API",
		zap.String("url", settings.Keycloak.URL),
		zap.String("realm", settings.Keycloak.Realm),
		zap.String("clientID", settings.Keycloak.ClientID))
	store := keycloak.New(ctx, settings.Keycloak.URL, settings.Keycloak.Realm,
		settings.Keycloak.ClientID, settings.Keycloak.ClientSecret)

	runner := membersync.NewRunner(source, store, os.Stdout, logger)
	_, err := runner.Run(ctx, membersync.Options{
		OrganisationName: settings.Sync.OrganisationName,
		DefaultGroupName: settings.Sync.DefaultGroupName,
		AutoApply:        flags.autoApply,
		CacheTo:          flags.cacheTo,
		CacheFrom:        flags.cacheFrom,
		Confirm:          confirmPrompt,
	})
	return err
}

// confirmPrompt asks the operator to approve the previewed operations. It
// refuses to run without a terminal so unattended invocations fail loudly
// instead of hanging on a read from stdin.
func confirmPrompt(ctx context.Context) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, fmt.Errorf("stdin is not a terminal; pass --auto-apply for unattended runs")
	}
	fmt.Fprint(os.Stdout, "Continue? [y/N] ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
