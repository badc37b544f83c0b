package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRequireEnv(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		shouldSet bool
		wantErr   bool
	}{
		{
			name:      "variable set",
			key:       "TEST_VAR",
			value:     "test_value",
			shouldSet: true,
			wantErr:   false,
		},
		{
			name:      "variable not set",
			key:       "TEST_VAR_MISSING",
			shouldSet: false,
			wantErr:   true,
		},
		{
			name:      "whitespace only",
			key:       "TEST_VAR_BLANK",
			value:     "   ",
			shouldSet: true,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			result, err := requireEnv(tt.key)
			if tt.wantErr {
				if !errors.Is(err, ErrConfigurationMissing) {
					t.Errorf("requireEnv() error = %v, want ErrConfigurationMissing", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("requireEnv() unexpected error: %v", err)
			}
			if result != tt.value {
				t.Errorf("requireEnv() = %v, want %v", result, tt.value)
			}
		})
	}
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{
			name:     "valid duration",
			key:      "TEST_DURATION",
			value:    "5s",
			def:      1 * time.Second,
			expected: 5 * time.Second,
		},
		{
			name:     "invalid duration uses default",
			key:      "TEST_DURATION_INVALID",
			value:    "invalid",
			def:      10 * time.Second,
			expected: 10 * time.Second,
		},
		{
			name:     "negative duration uses default",
			key:      "TEST_DURATION_NEGATIVE",
			value:    "-3s",
			def:      2 * time.Second,
			expected: 2 * time.Second,
		},
		{
			name:     "missing variable uses default",
			key:      "TEST_DURATION_MISSING",
			value:    "",
			def:      15 * time.Second,
			expected: 15 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			result := mustDuration(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustDuration() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      bool
		expected bool
	}{
		{name: "true value", key: "TEST_BOOL", value: "true", def: false, expected: true},
		{name: "false value", key: "TEST_BOOL_FALSE", value: "false", def: true, expected: false},
		{name: "invalid value uses default", key: "TEST_BOOL_INVALID", value: "invalid", def: true, expected: true},
		{name: "missing variable uses default", key: "TEST_BOOL_MISSING", value: "", def: false, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv(tt.key, tt.value)
			}

			result := mustBool(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustBool() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestLoadMissingSession(t *testing.T) {
	t.Setenv("PTERODACTYL_SESSION", "")

	cfg, err := Load()
	if !errors.Is(err, ErrConfigurationMissing) {
		t.Fatalf("Load() error = %v, want ErrConfigurationMissing", err)
	}
	if cfg != nil {
		t.Errorf("Load() returned config %+v alongside error", cfg)
	}
}

func TestLoadStatusWithoutSession(t *testing.T) {
	t.Setenv("PTERODACTYL_SESSION", "")
	t.Setenv("RENEW_REDIS_ADDR", "127.0.0.1:6379")

	cfg, err := LoadStatus()
	if err != nil {
		t.Fatalf("LoadStatus() error = %v", err)
	}
	if cfg.SessionToken != "" {
		t.Errorf("SessionToken = %q, want empty", cfg.SessionToken)
	}
	if !cfg.LeaseEnabled() {
		t.Error("LeaseEnabled() = false with a redis address")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PTERODACTYL_SESSION", "secret-cookie")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	t.Setenv("TELEGRAM_API_URL", "http://127.0.0.1:9999/")
	t.Setenv("RENEW_REDIS_ADDR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.SessionToken != "secret-cookie" {
		t.Errorf("SessionToken = %q", cfg.SessionToken)
	}
	if cfg.PageLoadTimeout != 30*time.Second {
		t.Errorf("PageLoadTimeout = %v, want 30s", cfg.PageLoadTimeout)
	}
	if cfg.ActionTimeout != 10*time.Second {
		t.Errorf("ActionTimeout = %v, want 10s", cfg.ActionTimeout)
	}
	if cfg.ProcessingTimeout != 70*time.Second {
		t.Errorf("ProcessingTimeout = %v, want 70s", cfg.ProcessingTimeout)
	}
	if cfg.TelegramAPIURL != "http://127.0.0.1:9999" {
		t.Errorf("TelegramAPIURL = %q, trailing slash not trimmed", cfg.TelegramAPIURL)
	}
	if cfg.NotificationsEnabled() {
		t.Error("NotificationsEnabled() = true without identifiers")
	}
	if cfg.LeaseEnabled() {
		t.Error("LeaseEnabled() = true without redis address")
	}
	if cfg.Timezone != time.UTC {
		t.Errorf("Timezone = %v, want UTC", cfg.Timezone)
	}
}

func TestLoadInvalidTimezone(t *testing.T) {
	t.Setenv("PTERODACTYL_SESSION", "secret-cookie")
	t.Setenv("RENEW_TIMEZONE", "Not/AZone")

	if _, err := Load(); err == nil {
		t.Fatal("Load() with invalid timezone should fail")
	}
}

func TestNotificationsEnabled(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		chatID string
		want   bool
	}{
		{name: "both set", token: "t", chatID: "c", want: true},
		{name: "token only", token: "t", want: false},
		{name: "chat only", chatID: "c", want: false},
		{name: "neither", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{TelegramToken: tt.token, TelegramChatID: tt.chatID}
			if got := cfg.NotificationsEnabled(); got != tt.want {
				t.Errorf("NotificationsEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := &Config{
		SessionToken:  "cookie",
		TelegramToken: "bot",
		RedisPassword: "",
		RedisUser:     "admin",
	}

	r := cfg.Redacted()
	if r.SessionToken == "cookie" || r.TelegramToken == "bot" || r.RedisUser == "admin" {
		t.Errorf("Redacted() leaked a secret: %+v", r)
	}
	if r.RedisPassword != "" {
		t.Errorf("Redacted() should keep empty values empty, got %q", r.RedisPassword)
	}
	if cfg.SessionToken != "cookie" {
		t.Error("Redacted() mutated the original config")
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("TICKRENEW_TEST_FROM_FILE=from-file\nTICKRENEW_TEST_PRESET=from-file\n"), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Setenv("TICKRENEW_TEST_PRESET", "from-env")
	t.Setenv("TICKRENEW_TEST_FROM_FILE", "")
	if err := os.Unsetenv("TICKRENEW_TEST_FROM_FILE"); err != nil {
		t.Fatalf("failed to unset env var: %v", err)
	}

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}
	if got := os.Getenv("TICKRENEW_TEST_FROM_FILE"); got != "from-file" {
		t.Errorf("TICKRENEW_TEST_FROM_FILE = %q, want from-file", got)
	}
	if got := os.Getenv("TICKRENEW_TEST_PRESET"); got != "from-env" {
		t.Errorf("TICKRENEW_TEST_PRESET = %q, existing env should win", got)
	}

	if err := LoadEnvFile(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("LoadEnvFile() on a missing file = %v, want nil", err)
	}
}
