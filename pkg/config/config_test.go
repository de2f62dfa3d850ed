package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "nodedesk.yaml")

	tests := []struct {
		name          string
		setup         func()
		validate      func(*testing.T, *Config)
		checkFile     func(*testing.T)
		expectedError bool
	}{
		{
			name:  "NewFile_Defaults",
			setup: func() {},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Storage.Backend != BackendFile {
					t.Errorf("expected default backend 'file', got '%s'", cfg.Storage.Backend)
				}
				if cfg.Node.InternalPort != 7070 {
					t.Errorf("expected internal port 7070, got %d", cfg.Node.InternalPort)
				}
				if cfg.Node.Timeout.Std() != 10*time.Second {
					t.Errorf("expected node timeout 10s, got %v", cfg.Node.Timeout.Std())
				}
			},
			checkFile: func(t *testing.T) {
				content, err := os.ReadFile(configPath)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if !strings.Contains(string(content), "backend: file") {
					t.Error("config file missing default values")
				}
				if !strings.Contains(string(content), "# Options: file, sqlite, leveldb") {
					t.Error("config file missing backend options comment")
				}
			},
		},
		{
			name: "ExistingFile_Override",
			setup: func() {
				err := os.WriteFile(configPath, []byte("storage:\n  backend: leveldb\nnode:\n  internal_port: 9009\n  timeout: 1m\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Storage.Backend != BackendLevelDB {
					t.Errorf("expected backend 'leveldb', got '%s'", cfg.Storage.Backend)
				}
				if cfg.Storage.Record != "settings" {
					t.Errorf("expected default record 'settings', got '%s'", cfg.Storage.Record)
				}
				if cfg.Node.InternalPort != 9009 {
					t.Errorf("expected internal port 9009, got %d", cfg.Node.InternalPort)
				}
				if cfg.Node.Timeout.Std() != time.Minute {
					t.Errorf("expected timeout 1m, got %v", cfg.Node.Timeout.Std())
				}
				if cfg.Node.HealthMethod != "dna_epoch" {
					t.Errorf("expected default health method, got '%s'", cfg.Node.HealthMethod)
				}
			},
			checkFile: func(t *testing.T) {
				content, err := os.ReadFile(configPath)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if strings.Contains(string(content), "health_method") {
					t.Error("Load must not write merged defaults back to an existing file")
				}
			},
		},
		{
			name: "InvalidBackend",
			setup: func() {
				err := os.WriteFile(configPath, []byte("storage:\n  backend: redis\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			expectedError: true,
		},
		{
			name: "InvalidYAML",
			setup: func() {
				err := os.WriteFile(configPath, []byte("storage: [unclosed\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Remove(configPath)
			tt.setup()

			cfg, err := Load(configPath)
			if (err != nil) != tt.expectedError {
				t.Fatalf("Load() error = %v, expectedError %v", err, tt.expectedError)
			}
			if err == nil {
				tt.validate(t, cfg)
				tt.checkFile(t)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"Defaults", func(c *Config) {}, false},
		{"BadRecordName", func(c *Config) { c.Storage.Record = "../x" }, true},
		{"PortOutOfRange", func(c *Config) { c.Node.InternalPort = 70000 }, true},
		{"NoLocales", func(c *Config) { c.Node.Locales = nil }, true},
		{"BadAppVersion", func(c *Config) { c.App.Version = "latest" }, true},
		{"GoodAppVersion", func(c *Config) { c.App.Version = "1.4.2" }, false},
		{"AllowedOrigin", func(c *Config) { c.Server.AllowedOrigins = []string{"app://nodedesk", "https://ui.example:8443"} }, false},
		{"BareHostOrigin", func(c *Config) { c.Server.AllowedOrigins = []string{"ui.example"} }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGenerateDefault(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "configs", "default_config.yaml")

	if err := GenerateDefault(configPath); err != nil {
		t.Fatalf("GenerateDefault() error = %v", err)
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("GenerateDefault() did not create file")
	}

	// A second run leaves the file alone.
	if err := os.WriteFile(configPath, []byte("data_dir: /custom\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := GenerateDefault(configPath); err != nil {
		t.Errorf("GenerateDefault() error on second run = %v", err)
	}
	content, _ := os.ReadFile(configPath)
	if string(content) != "data_dir: /custom\n" {
		t.Error("GenerateDefault() overwrote an existing file")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodedesk.yaml")
	cfg := DefaultConfig()
	cfg.Node.Locales = []string{"de", "en"}
	cfg.Node.WatchEvery = Duration(2 * Day)
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Node.WatchEvery.Std() != 48*time.Hour {
		t.Errorf("watch_every = %v, want 48h", got.Node.WatchEvery.Std())
	}
	if len(got.Node.Locales) != 2 || got.Node.Locales[0] != "de" {
		t.Errorf("locales = %v", got.Node.Locales)
	}
}
