package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrConfigurationMissing is returned when a required setting is absent.
var ErrConfigurationMissing = errors.New("configuration missing")

type Config struct {
	SessionToken string // value of the panel session cookie (PTERODACTYL_SESSION)

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	ProfileFile string         // optional YAML site profile overlay
	ArtifactDir string         // where checkpoint screenshots are written
	Timezone    *time.Location // location for expiration strings without a zone

	// Browser
	ChromeBin       string        // explicit browser binary, empty => rod launcher default
	Headless        bool          // run the browser headless
	PageLoadTimeout time.Duration // bound on every navigation and reload
	ActionTimeout   time.Duration // bound on every click

	// Condition waits
	LoginSettle       time.Duration // wait for authenticated markers after cookie injection
	PageSettle        time.Duration // wait for elements after navigation or click
	ProcessingTimeout time.Duration // wait for the backend to extend the expiration
	PollInterval      time.Duration // initial poll interval (grows exponentially)
	PollMaxInterval   time.Duration // cap for the poll interval

	// Telegram
	TelegramToken   string        // bot token, empty => notifications disabled
	TelegramChatID  string        // destination chat, empty => notifications disabled
	TelegramAPIURL  string        // API base URL (ex: https://api.telegram.org)
	NotifyTimeout   time.Duration // HTTP timeout for one sendMessage call
	NotifyUserAgent string        // User-Agent sent to the messaging API

	// Redis run lease (optional)
	RedisAddr           string        // empty => no lease
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisConnectTimeout time.Duration // total time to retry connecting (ex: 15s)
	RedisRetryInterval  time.Duration // initial wait between retries (ex: 1s, grows exponentially)
	RedisWarnThreshold  int           // warn after this many attempts
	LeaseTTL            time.Duration // lease expiry, must outlive one run
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// Variables already set in the environment win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Load builds the configuration from the environment.
func Load() (*Config, error) {
	return load(true)
}

// LoadStatus is Load without the session requirement, for commands that only
// read run state from Redis.
func LoadStatus() (*Config, error) {
	return load(false)
}

func load(requireSession bool) (*Config, error) {
	token := strings.TrimSpace(os.Getenv("PTERODACTYL_SESSION"))
	if requireSession {
		var err error
		if token, err = requireEnv("PTERODACTYL_SESSION"); err != nil {
			return nil, err
		}
	}

	tz, err := loadLocation(getenv("RENEW_TIMEZONE", "UTC"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		SessionToken: token,

		// Logging
		LogLevel:  getenv("RENEW_LOG_LEVEL", "info"),
		PrettyLog: mustBool("RENEW_PRETTY_LOG", true),

		ProfileFile: getenv("RENEW_PROFILE_FILE", ""),
		ArtifactDir: getenv("RENEW_ARTIFACT_DIR", "."),
		Timezone:    tz,

		// Browser
		ChromeBin:       getenv("RENEW_CHROME_BIN", ""),
		Headless:        mustBool("RENEW_HEADLESS", true),
		PageLoadTimeout: mustDuration("RENEW_PAGE_LOAD_TIMEOUT", 30*time.Second),
		ActionTimeout:   mustDuration("RENEW_ACTION_TIMEOUT", 10*time.Second),

		// Waits
		LoginSettle:       mustDuration("RENEW_LOGIN_SETTLE", 10*time.Second),
		PageSettle:        mustDuration("RENEW_PAGE_SETTLE", 15*time.Second),
		ProcessingTimeout: mustDuration("RENEW_PROCESSING_TIMEOUT", 70*time.Second),
		PollInterval:      mustDuration("RENEW_POLL_INTERVAL", 500*time.Millisecond),
		PollMaxInterval:   mustDuration("RENEW_POLL_MAX_INTERVAL", 5*time.Second),

		// Telegram
		TelegramToken:   getenv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:  getenv("TELEGRAM_CHAT_ID", ""),
		TelegramAPIURL:  strings.TrimRight(getenv("TELEGRAM_API_URL", "https://api.telegram.org"), "/"),
		NotifyTimeout:   mustDuration("RENEW_NOTIFY_TIMEOUT", 10*time.Second),
		NotifyUserAgent: getenv("RENEW_NOTIFY_USER_AGENT", "tickrenew"),

		// Redis settings
		RedisAddr:           getenv("RENEW_REDIS_ADDR", ""),
		RedisUser:           getenv("RENEW_REDIS_USERNAME", ""),
		RedisPassword:       getenv("RENEW_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("RENEW_REDIS_DB", 0),
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 15*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", time.Second),
		RedisWarnThreshold:  getenvInt("REDIS_WARN_THRESHOLD", 3),
		LeaseTTL:            mustDuration("RENEW_LEASE_TTL", 5*time.Minute),
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg, nil
}

// NotificationsEnabled reports whether both Telegram identifiers are set.
func (c *Config) NotificationsEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != ""
}

// LeaseEnabled reports whether a Redis run lease is configured.
func (c *Config) LeaseEnabled() bool {
	return c.RedisAddr != ""
}

// Redacted returns a copy safe for logging.
func (c *Config) Redacted() Config {
	cfgCopy := *c
	cfgCopy.SessionToken = redact(c.SessionToken)
	cfgCopy.TelegramToken = redact(c.TelegramToken)
	cfgCopy.RedisPassword = redact(c.RedisPassword)
	if c.RedisUser != "" {
		cfgCopy.RedisUser = "***REDACTED***"
	}
	return cfgCopy
}

func redact(v string) string {
	if v == "" {
		return ""
	}
	return "***REDACTED***"
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) (string, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return "", fmt.Errorf("%w: required environment variable %s is not set", ErrConfigurationMissing, key)
	}
	return v, nil
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func loadLocation(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid RENEW_TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}
