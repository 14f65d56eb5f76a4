package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Verify default session
	if cfg.Session != "default" {
		t.Errorf("Session = %q, want %q", cfg.Session, "default")
	}

	// Verify default rules config
	if cfg.Rules.File != "" {
		t.Errorf("Rules.File = %q, want empty", cfg.Rules.File)
	}
	if cfg.Rules.ReloadDebounceMs != 200 {
		t.Errorf("Rules.ReloadDebounceMs = %d, want 200", cfg.Rules.ReloadDebounceMs)
	}

	// Verify default watch config
	if cfg.Watch.BufferSize != 1024 {
		t.Errorf("Watch.BufferSize = %d, want 1024", cfg.Watch.BufferSize)
	}
	if !cfg.Watch.StripANSI {
		t.Error("Watch.StripANSI should be true by default")
	}

	// Verify default dispatch config
	if cfg.Dispatch.DebounceMs != 1000 {
		t.Errorf("Dispatch.DebounceMs = %d, want 1000", cfg.Dispatch.DebounceMs)
	}
	if cfg.Dispatch.OnBusy != "drop" {
		t.Errorf("Dispatch.OnBusy = %q, want %q", cfg.Dispatch.OnBusy, "drop")
	}
	if cfg.Dispatch.ActionTimeoutSec != 30 {
		t.Errorf("Dispatch.ActionTimeoutSec = %d, want 30", cfg.Dispatch.ActionTimeoutSec)
	}
	if cfg.Dispatch.MaxConcurrent != 8 {
		t.Errorf("Dispatch.MaxConcurrent = %d, want 8", cfg.Dispatch.MaxConcurrent)
	}
	if cfg.Dispatch.ShutdownGraceSec != 5 {
		t.Errorf("Dispatch.ShutdownGraceSec = %d, want 5", cfg.Dispatch.ShutdownGraceSec)
	}

	// Verify default log config
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
	if cfg.Log.MaxSizeMB != 10 {
		t.Errorf("Log.MaxSizeMB = %d, want 10", cfg.Log.MaxSizeMB)
	}
	if cfg.Log.MaxBackups != 3 {
		t.Errorf("Log.MaxBackups = %d, want 3", cfg.Log.MaxBackups)
	}
	if cfg.Log.Compress {
		t.Error("Log.Compress should be false by default")
	}

	// Verify default shell override
	if cfg.Shell != "" {
		t.Errorf("Shell = %q, want empty", cfg.Shell)
	}
}

func TestRulesConfig_ReloadDebounce(t *testing.T) {
	tests := []struct {
		ms       int
		expected time.Duration
	}{
		{200, 200 * time.Millisecond},
		{1000, 1 * time.Second},
		{0, 0},
	}

	for _, tt := range tests {
		cfg := RulesConfig{ReloadDebounceMs: tt.ms}
		result := cfg.ReloadDebounce()
		if result != tt.expected {
			t.Errorf("ReloadDebounce() with %dms = %v, want %v", tt.ms, result, tt.expected)
		}
	}
}

func TestDispatchConfig_Durations(t *testing.T) {
	cfg := DispatchConfig{
		DebounceMs:       1500,
		ActionTimeoutSec: 30,
		ShutdownGraceSec: 5,
	}

	if got := cfg.Debounce(); got != 1500*time.Millisecond {
		t.Errorf("Debounce() = %v, want %v", got, 1500*time.Millisecond)
	}
	if got := cfg.ActionTimeout(); got != 30*time.Second {
		t.Errorf("ActionTimeout() = %v, want %v", got, 30*time.Second)
	}
	if got := cfg.ShutdownGrace(); got != 5*time.Second {
		t.Errorf("ShutdownGrace() = %v, want %v", got, 5*time.Second)
	}

	// Zero values disable the corresponding behavior
	zero := DispatchConfig{}
	if got := zero.Debounce(); got != 0 {
		t.Errorf("Debounce() with 0ms = %v, want 0", got)
	}
	if got := zero.ActionTimeout(); got != 0 {
		t.Errorf("ActionTimeout() with 0s = %v, want 0", got)
	}
}

func TestValidBusyPolicies(t *testing.T) {
	policies := ValidBusyPolicies()

	expected := []string{"drop", "queue"}
	if len(policies) != len(expected) {
		t.Errorf("ValidBusyPolicies() length = %d, want %d", len(policies), len(expected))
	}

	for i, policy := range expected {
		if policies[i] != policy {
			t.Errorf("ValidBusyPolicies()[%d] = %q, want %q", i, policies[i], policy)
		}
	}
}

func TestIsValidBusyPolicy(t *testing.T) {
	tests := []struct {
		policy string
		valid  bool
	}{
		{"drop", true},
		{"queue", true},
		{"invalid", false},
		{"", false},
		{"DROP", false}, // Case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.policy, func(t *testing.T) {
			result := IsValidBusyPolicy(tt.policy)
			if result != tt.valid {
				t.Errorf("IsValidBusyPolicy(%q) = %v, want %v", tt.policy, result, tt.valid)
			}
		})
	}
}

func TestHomeDir(t *testing.T) {
	// Test with CATCHER_HOME set
	t.Run("with CATCHER_HOME", func(t *testing.T) {
		original := os.Getenv("CATCHER_HOME")
		defer func() { _ = os.Setenv("CATCHER_HOME", original) }()

		_ = os.Setenv("CATCHER_HOME", "/custom/catcher")
		result := HomeDir()
		expected := "/custom/catcher"
		if result != expected {
			t.Errorf("HomeDir() = %q, want %q", result, expected)
		}
	})

	// Test without CATCHER_HOME
	t.Run("without CATCHER_HOME", func(t *testing.T) {
		original := os.Getenv("CATCHER_HOME")
		defer func() { _ = os.Setenv("CATCHER_HOME", original) }()

		_ = os.Setenv("CATCHER_HOME", "")
		result := HomeDir()

		// Should be based on home directory
		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, ".catcher")
		if result != expected {
			t.Errorf("HomeDir() = %q, want %q", result, expected)
		}
	})
}

func TestConfigFile(t *testing.T) {
	original := os.Getenv("CATCHER_HOME")
	defer func() { _ = os.Setenv("CATCHER_HOME", original) }()

	_ = os.Setenv("CATCHER_HOME", "/custom/catcher")
	result := ConfigFile()
	expected := "/custom/catcher/config.yaml"
	if result != expected {
		t.Errorf("ConfigFile() = %q, want %q", result, expected)
	}
}

func TestDerivedPaths(t *testing.T) {
	original := os.Getenv("CATCHER_HOME")
	defer func() { _ = os.Setenv("CATCHER_HOME", original) }()

	_ = os.Setenv("CATCHER_HOME", "/custom/catcher")

	if got := LogDir(); got != "/custom/catcher/logs" {
		t.Errorf("LogDir() = %q, want %q", got, "/custom/catcher/logs")
	}
	if got := LocksDir(); got != "/custom/catcher/locks" {
		t.Errorf("LocksDir() = %q, want %q", got, "/custom/catcher/locks")
	}
	if got := DefaultRulesFile(); got != "/custom/catcher/rules.json" {
		t.Errorf("DefaultRulesFile() = %q, want %q", got, "/custom/catcher/rules.json")
	}
}

func TestRulesConfig_ResolveFile(t *testing.T) {
	original := os.Getenv("CATCHER_HOME")
	defer func() { _ = os.Setenv("CATCHER_HOME", original) }()
	_ = os.Setenv("CATCHER_HOME", "/custom/catcher")

	t.Run("empty uses default", func(t *testing.T) {
		cfg := RulesConfig{File: ""}
		result := cfg.ResolveFile("/work")
		expected := "/custom/catcher/rules.json"
		if result != expected {
			t.Errorf("ResolveFile() = %q, want %q", result, expected)
		}
	})

	t.Run("tilde expansion", func(t *testing.T) {
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skipf("cannot determine home directory: %v", err)
		}
		cfg := RulesConfig{File: "~/rules/build.json"}
		result := cfg.ResolveFile("/work")
		expected := filepath.Join(home, "rules", "build.json")
		if result != expected {
			t.Errorf("ResolveFile() = %q, want %q", result, expected)
		}
	})

	t.Run("relative resolved against base", func(t *testing.T) {
		cfg := RulesConfig{File: "rules.json"}
		result := cfg.ResolveFile("/work/project")
		expected := "/work/project/rules.json"
		if result != expected {
			t.Errorf("ResolveFile() = %q, want %q", result, expected)
		}
	})

	t.Run("absolute passed through", func(t *testing.T) {
		cfg := RulesConfig{File: "/etc/catcher/rules.json"}
		result := cfg.ResolveFile("/work")
		if result != "/etc/catcher/rules.json" {
			t.Errorf("ResolveFile() = %q, want %q", result, "/etc/catcher/rules.json")
		}
	})
}

func TestGet(t *testing.T) {
	// Set defaults in viper first (normally done by cmd init)
	SetDefaults()

	// Get() should return defaults when no config file exists
	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}

	// Should have default values
	if cfg.Dispatch.OnBusy != "drop" {
		t.Errorf("Get().Dispatch.OnBusy = %q, want %q", cfg.Dispatch.OnBusy, "drop")
	}
	if cfg.Watch.BufferSize != 1024 {
		t.Errorf("Get().Watch.BufferSize = %d, want 1024", cfg.Watch.BufferSize)
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	SetDefaults()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Session != "default" {
		t.Errorf("Load().Session = %q, want %q", cfg.Session, "default")
	}
	if cfg.Dispatch.DebounceMs != 1000 {
		t.Errorf("Load().Dispatch.DebounceMs = %d, want 1000", cfg.Dispatch.DebounceMs)
	}
}

func TestConfig_DefaultIsValid(t *testing.T) {
	// The shipped defaults must always pass validation
	cfg := Default()
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Errorf("Default() config failed validation: %v", ValidationErrors(errs))
	}
}
