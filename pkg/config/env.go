package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"nodedesk/pkg/settings"
)

// LoadEnv loads variables from the given .env files (default ".env") without
// overriding ones already set. Missing files are ignored.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ApplyEnv overlays environment variables onto cfg.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("NODEDESK_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("NODEDESK_LOG_LEVEL"); v != "" {
		cfg.Log.Server.Level = v
	}
	if os.Getenv("NODE_ENV") == "e2e" {
		cfg.Node.E2E = true
		cfg.Node.MockURL = os.Getenv("NODE_MOCK")
	}
}

// SettingsDefaults returns the settings record used on first run.
func (c *Config) SettingsDefaults(appVersion string) settings.State {
	st := settings.Defaults(appVersion)
	if c.Node.DefaultURL != "" {
		st.URL = c.Node.DefaultURL
	}
	if c.Node.InternalPort != 0 {
		st.InternalPort = c.Node.InternalPort
	}
	if len(c.Node.Locales) > 0 {
		st.Lng = c.Node.Locales[0]
	}
	if c.Node.E2E {
		st.URL = c.Node.MockURL
		st.RunInternalNode = false
		st.UseExternalNode = true
	}
	return st
}
