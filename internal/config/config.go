// Package config loads connector settings from an optional YAML file with
// environment variable overrides. Secrets (API key, client secret) are
// held as plain fields but are never logged by the connector.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultCampaiBaseURL is the public Campai API endpoint.
const DefaultCampaiBaseURL = "https://api.campai.com"

// CampaiConfig configures the source-registry client.
type CampaiConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// KeycloakConfig configures the identity-store admin client.
type KeycloakConfig struct {
	URL          string `yaml:"url"`
	Realm        string `yaml:"realm"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// SyncConfig configures the reconciliation run itself.
type SyncConfig struct {
	OrganisationName string `yaml:"organisation_name"`
	DefaultGroupName string `yaml:"default_group_name"`
	AutoApply        bool   `yaml:"auto_apply"`
}

// UptimeConfig configures the heartbeat notifier. An empty push URL
// disables heartbeats.
type UptimeConfig struct {
	PushURL string `yaml:"push_url"`
}

// Settings is the complete connector configuration. It is passed
// explicitly into the run rather than read from ambient process state.
type Settings struct {
	Campai   CampaiConfig   `yaml:"campai"`
	Keycloak KeycloakConfig `yaml:"keycloak"`
	Sync     SyncConfig     `yaml:"sync"`
	Uptime   UptimeConfig   `yaml:"uptime"`
}

// Load reads settings from the YAML file at path (skipped when the file
// does not exist) and applies environment variable overrides. The result
// is validated.
func Load(path string) (*Settings, error) {
	settings := &Settings{
		Campai: CampaiConfig{BaseURL: DefaultCampaiBaseURL},
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("parsing config file %q: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// env-only configuration
	default:
		return nil, fmt.Errorf("reading config file %q: %w", path, err)
	}

	settings.applyEnv()

	if settings.Campai.BaseURL == "" {
		settings.Campai.BaseURL = DefaultCampaiBaseURL
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *Settings) applyEnv() {
	overrideString(&s.Campai.APIKey, "CAMPAI_API_KEY")
	overrideString(&s.Campai.BaseURL, "CAMPAI_BASE_URL")
	overrideString(&s.Keycloak.URL, "KEYCLOAK_URL")
	overrideString(&s.Keycloak.Realm, "KEYCLOAK_REALM")
	overrideString(&s.Keycloak.ClientID, "KEYCLOAK_CLIENT_ID")
	overrideString(&s.Keycloak.ClientSecret, "KEYCLOAK_CLIENT_SECRET")
	overrideString(&s.Sync.OrganisationName, "SYNC_ORGANISATION_NAME")
	overrideString(&s.Sync.DefaultGroupName, "SYNC_DEFAULT_GROUP_NAME")
	overrideBool(&s.Sync.AutoApply, "SYNC_AUTO_APPLY")
	overrideString(&s.Uptime.PushURL, "UPTIME_PUSH_URL")
}

// Validate reports the first missing required setting.
func (s *Settings) Validate() error {
	required := []struct {
		value string
		name  string
	}{
		{s.Campai.APIKey, "campai.api_key"},
		{s.Keycloak.URL, "keycloak.url"},
		{s.Keycloak.Realm, "keycloak.realm"},
		{s.Keycloak.ClientID, "keycloak.client_id"},
		{s.Keycloak.ClientSecret, "keycloak.client_secret"},
		{s.Sync.OrganisationName, "sync.organisation_name"},
		{s.Sync.DefaultGroupName, "sync.default_group_name"},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("missing required setting %q", r.name)
		}
	}
	return nil
}

func overrideString(target *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*target = v
	}
}

func overrideBool(target *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}
