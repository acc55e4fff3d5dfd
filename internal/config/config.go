package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultUID             = "TpNCuAqUFyMKLM8YK3ewzpMsIYJ3"
	DefaultCredentialsFile = "kavach-c9d5b-firebase-adminsdk-fbsvc-c00d19a13b.json"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	UID string

	ProjectID       string
	CredentialsFile string
	CredentialsJSON string
	Impersonate     string

	Revoke bool
	Merge  bool
	Verify bool
	DryRun bool

	AuditCollection   string
	SyncProfile       bool
	ProfileCollection string

	Timeout   time.Duration
	LogLevel  string
	LogFormat string
}

// keys maps a config key to the env vars it is read from, first non-empty wins.
var keys = map[string][]string{
	"uid":                {"ADMIN_UID"},
	"project_id":         {"FIREBASE_PROJECT_ID", "GOOGLE_CLOUD_PROJECT"},
	"credentials":        {"GOOGLE_APPLICATION_CREDENTIALS"},
	"credentials_json":   {"FIREBASE_SERVICE_ACCOUNT_JSON"},
	"impersonate":        {"FIREBASE_IMPERSONATE_SERVICE_ACCOUNT"},
	"revoke":             {"ADMIN_REVOKE"},
	"merge":              {"ADMIN_MERGE"},
	"verify":             {"ADMIN_VERIFY"},
	"dry_run":            {"ADMIN_DRY_RUN"},
	"audit_collection":   {"ADMIN_AUDIT_COLLECTION"},
	"sync_profile":       {"ADMIN_SYNC_PROFILE"},
	"profile_collection": {"ADMIN_PROFILE_COLLECTION"},
	"timeout":            {"ADMIN_TIMEOUT"},
	"log_level":          {"LOG_LEVEL"},
	"log_format":         {"LOG_FORMAT"},
}

// New returns a viper instance with env bindings and defaults applied.
// A .env file in the working directory is loaded if present.
func New() (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for key, envs := range keys {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	v.SetDefault("uid", DefaultUID)
	v.SetDefault("credentials", DefaultCredentialsFile)
	v.SetDefault("profile_collection", "users")
	v.SetDefault("timeout", time.Duration(0))
	v.SetDefault("log_level", "INFO")
	v.SetDefault("log_format", "tint")
	return v, nil
}

// BindFlags binds command line flags onto config keys. Flag names use
// dashes where keys use underscores.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for key := range keys {
		f := fs.Lookup(strings.ReplaceAll(key, "_", "-"))
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", f.Name, err)
		}
	}
	return nil
}

func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		UID:               strings.TrimSpace(v.GetString("uid")),
		ProjectID:         strings.TrimSpace(v.GetString("project_id")),
		CredentialsFile:   strings.TrimSpace(v.GetString("credentials")),
		CredentialsJSON:   v.GetString("credentials_json"),
		Impersonate:       strings.TrimSpace(v.GetString("impersonate")),
		Revoke:            v.GetBool("revoke"),
		Merge:             v.GetBool("merge"),
		Verify:            v.GetBool("verify"),
		DryRun:            v.GetBool("dry_run"),
		AuditCollection:   strings.TrimSpace(v.GetString("audit_collection")),
		SyncProfile:       v.GetBool("sync_profile"),
		ProfileCollection: strings.TrimSpace(v.GetString("profile_collection")),
		Timeout:           v.GetDuration("timeout"),
		LogLevel:          strings.ToUpper(strings.TrimSpace(v.GetString("log_level"))),
		LogFormat:         strings.ToLower(strings.TrimSpace(v.GetString("log_format"))),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.LogLevel {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.LogLevel)
	}
	switch c.LogFormat {
	case "tint", "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.LogFormat)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative", ErrInvalidConfig)
	}
	if c.SyncProfile && c.ProfileCollection == "" {
		return fmt.Errorf("%w: profile collection is required to sync profiles", ErrInvalidConfig)
	}
	return nil
}

// NeedsFirestore reports whether any Firestore recorder is enabled.
func (c Config) NeedsFirestore() bool {
	return c.AuditCollection != "" || c.SyncProfile
}
