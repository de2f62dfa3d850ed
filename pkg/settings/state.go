// Package settings holds the client's connection settings record and the pure
// transition function that evolves it.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"
)

// RecordName is the logical name of the persisted settings record.
const RecordName = "settings"

const (
	// DefaultInternalPort is the port the locally spawned node listens on.
	DefaultInternalPort = 7070
	// DefaultURL is the node URL written into a fresh record.
	DefaultURL = "http://localhost:7070"
)

var (
	ErrUnsupportedLocale = errors.New("unsupported locale")
	ErrInvalidLogLevel   = errors.New("invalid log level")
	ErrInvalidAPIKey     = errors.New("invalid api key")
)

// Locales lists the UI languages the client ships translations for.
// The first entry is the default.
var Locales = []string{
	"en", "ru", "de", "es", "fr", "id", "it", "ko", "pt", "ro", "sr", "uk", "zh", "hr", "ja", "sl", "pl", "tr",
}

// IsSupportedLocale reports whether lng is one of the given locales.
func IsSupportedLocale(locales []string, lng string) bool {
	return slices.Contains(locales, lng)
}

// ValidateAPIKey rejects keys containing whitespace or control characters.
// An empty key is valid and clears the stored one.
func ValidateAPIKey(key string) error {
	for _, r := range key {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("%w: contains whitespace or control characters", ErrInvalidAPIKey)
		}
	}
	return nil
}

// LogLevel is the verbosity the user picked for the client and node logs.
type LogLevel string

const (
	LogTrace LogLevel = "Trace"
	LogDebug LogLevel = "Debug"
	LogInfo  LogLevel = "Info"
	LogWarn  LogLevel = "Warn"
	LogError LogLevel = "Error"
)

// LogLevels is the ordered set of valid log levels.
var LogLevels = []LogLevel{LogTrace, LogDebug, LogInfo, LogWarn, LogError}

// ParseLogLevel accepts a level name in any case.
func ParseLogLevel(s string) (LogLevel, error) {
	for _, l := range LogLevels {
		if strings.EqualFold(string(l), s) {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidLogLevel, s)
}

// Valid reports whether l is one of LogLevels.
func (l LogLevel) Valid() bool {
	return slices.Contains(LogLevels, l)
}

// State is the single persisted settings record. Values are copied, never
// shared, so a State handed out by the store is an immutable snapshot.
type State struct {
	URL             string   `json:"url"`
	InternalPort    int      `json:"internalPort"`
	UIVersion       string   `json:"uiVersion"`
	UseExternalNode bool     `json:"useExternalNode"`
	RunInternalNode bool     `json:"runInternalNode"`
	InternalAPIKey  string   `json:"internalApiKey"`
	ExternalAPIKey  string   `json:"externalApiKey"`
	Lng             string   `json:"lng"`
	LogLevel        LogLevel `json:"logLevel"`
	Initialized     bool     `json:"initialized"`
}

// Defaults returns the hard-coded record used on first run. The internal API
// key is left empty; the store fills it in on the first reconciliation pass.
func Defaults(appVersion string) State {
	return State{
		URL:             DefaultURL,
		InternalPort:    DefaultInternalPort,
		UIVersion:       appVersion,
		UseExternalNode: false,
		RunInternalNode: true,
		Lng:             Locales[0],
		LogLevel:        LogInfo,
	}
}

// Decode parses a persisted record over base, so fields missing from data
// keep the values from base and unknown fields are dropped.
func Decode(data []byte, base State) (State, error) {
	st := base
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("decode settings: %w", err)
	}
	return st, nil
}

// Encode serializes st for persistence.
func Encode(st State) ([]byte, error) {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	return data, nil
}
