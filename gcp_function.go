package campaiconnector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/cloudevents/sdk-go/v2/event"
	ksm "github.com/keeper-security/secrets-manager-go/core"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"lesverein.de/campai-connector/internal/campai"
	"lesverein.de/campai-connector/internal/config"
	"lesverein.de/campai-connector/internal/keycloak"
	"lesverein.de/campai-connector/internal/membersync"
	"lesverein.de/campai-connector/internal/uptime"
)

func init() {
	// Register an HTTP function and a Pub/Sub trigger with the Functions
	// Framework so the sync can run unattended on a schedule.
	functions.HTTP("CampaiSyncHttp", campaiSyncHTTP)
	functions.CloudEvent("CampaiSyncPubSub", campaiSyncPubSub)
}

const (
	ksmConfigName = "KSM_CONFIG_BASE64"
	ksmRecordUID  = "KSM_RECORD_UID"
)

// runConnectorSync loads the connector settings from a Keeper Secrets
// Manager record and performs one auto-applied reconciliation run.
// Planned operations and the outcome report are written to out.
func runConnectorSync(ctx context.Context, out io.Writer) error {
	settings, err := loadSettingsFromKSM()
	if err != nil {
		return err
	}

	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	logger := zap.New(zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), zapcore.InfoLevel))
	defer logger.Sync() //nolint:errcheck

	var heartbeat *uptime.Client
	if settings.Uptime.PushURL != "" {
		heartbeat = uptime.New(settings.Uptime.PushURL, nil)
	}

	source := campai.New(settings.Campai.BaseURL, settings.Campai.APIKey, nil)
	store := keycloak.New(ctx, settings.Keycloak.URL, settings.Keycloak.Realm,
		settings.Keycloak.ClientID, settings.Keycloak.ClientSecret)

	runner := membersync.NewRunner(source, store, out, logger)
	_, err = runner.Run(ctx, membersync.Options{
		OrganisationName: settings.Sync.OrganisationName,
		DefaultGroupName: settings.Sync.DefaultGroupName,
		AutoApply:        true,
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
}

// loadSettingsFromKSM resolves the connector record shared to the KSM
// application: the login field holds the Keycloak client id, the password
// the client secret, the url field the Keycloak base URL; realm, Campai
// credentials, organisation and default group come from custom fields.
func loadSettingsFromKSM() (*config.Settings, error) {
	configBase64 := os.Getenv(ksmConfigName)
	if configBase64 == "" {
		return nil, fmt.Errorf("environment variable %q is not set", ksmConfigName)
	}

	storage := ksm.NewMemoryKeyValueStorage(configBase64)
	sm := ksm.NewSecretsManager(&ksm.ClientOptions{Config: storage})

	var filter []string
	if recordUID := os.Getenv(ksmRecordUID); recordUID != "" {
		filter = append(filter, recordUID)
	}
	records, err := sm.GetSecrets(filter)
	if err != nil {
		return nil, err
	}

	var connectorRecord *ksm.Record
	for _, r := range records {
		if r.Type() != "login" {
			continue
		}
		if customFieldValue(r, "Campai API Key") == "" {
			continue
		}
		connectorRecord = r
		break
	}
	if connectorRecord == nil {
		return nil, errors.New("connector record was not found, make sure a login record with a \"Campai API Key\" custom field is shared to the KSM application")
	}

	settings := &config.Settings{
		Campai: config.CampaiConfig{
			APIKey:  customFieldValue(connectorRecord, "Campai API Key"),
			BaseURL: config.DefaultCampaiBaseURL,
		},
		Keycloak: config.KeycloakConfig{
			URL:          connectorRecord.GetFieldValueByType("url"),
			Realm:        customFieldValue(connectorRecord, "Realm"),
			ClientID:     connectorRecord.GetFieldValueByType("login"),
			ClientSecret: connectorRecord.Password(),
		},
		Sync: config.SyncConfig{
			OrganisationName: customFieldValue(connectorRecord, "Organisation"),
			DefaultGroupName: customFieldValue(connectorRecord, "Default Group"),
			AutoApply:        true,
		},
		Uptime: config.UptimeConfig{
			PushURL: customFieldValue(connectorRecord, "Uptime Push URL"),
		},
	}
	if baseURL := customFieldValue(connectorRecord, "Campai URL"); baseURL != "" {
		settings.Campai.BaseURL = baseURL
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

func customFieldValue(record *ksm.Record, label string) string {
	for _, field := range record.GetCustomFieldsByLabel(label) {
		switch v := field["value"].(type) {
		case string:
			return v
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					return s
				}
			}
		}
	}
	return ""
}

// campaiSyncHTTP runs the sync on an HTTP trigger, streaming the preview
// and report to the response.
func campaiSyncHTTP(w http.ResponseWriter, r *http.Request) {
	if err := runConnectorSync(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// campaiSyncPubSub runs the sync on a Pub/Sub CloudEvent trigger.
func campaiSyncPubSub(ctx context.Context, _ event.Event) error {
	return runConnectorSync(ctx, os.Stdout)
}
