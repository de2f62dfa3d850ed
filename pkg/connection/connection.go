// Package connection derives where and how the client talks to a node.
package connection

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"nodedesk/pkg/settings"
)

// DefaultRemoteURL is used when external mode is on but no URL was saved.
const DefaultRemoteURL = "http://localhost:7070"

// Config is the effective node endpoint and credential.
type Config struct {
	BaseURL string `json:"baseURL"`
	APIKey  string `json:"apiKey"`
}

// Resolve computes the connection for st. External mode uses the saved URL
// and external key; otherwise the local node on the internal port with the
// internal key.
func Resolve(st settings.State) Config {
	if st.UseExternalNode {
		base := st.URL
		if base == "" {
			base = DefaultRemoteURL
		}
		return Config{BaseURL: base, APIKey: st.ExternalAPIKey}
	}
	return Config{
		BaseURL: "http://localhost:" + strconv.Itoa(st.InternalPort),
		APIKey:  st.InternalAPIKey,
	}
}

// Validate checks that BaseURL is an absolute http(s) URL.
func (c Config) Validate() error {
	return ValidateURL(c.BaseURL)
}

// ValidateURL checks that raw is an absolute http(s) URL with a host.
func ValidateURL(raw string) error {
	if raw == "" {
		return errors.New("empty url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid url %q: missing host", raw)
	}
	return nil
}
