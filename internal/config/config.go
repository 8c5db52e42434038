package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Repository holding the mapping document
	GitHubToken    string        // personal access token with contents + pull request scope
	Repository     string        // "owner/name"
	FilePath       string        // path of the document inside the repository
	DefaultBranch  string        // branch edits are published to
	GitHubAPIURL   string        // optional, GitHub Enterprise API base URL
	RequestTimeout time.Duration // per GitHub request

	// Publishing
	PublishStrategy string // "direct" | "review"
	BranchPrefix    string // review branches are named <prefix>-<unixms>-<id>
	ReviewTitle     string
	CommitMessage   string
	PublishBurst    int // publish rate limit burst
	PublishPerMin   int // publish rate limit refill per minute

	// Background jobs
	GCInterval time.Duration // interval to prune usage counters of removed aliases

	// Resolver
	SuggestionLimit  int
	SuggestionCutoff float64
	CacheTTL         time.Duration

	// Redis (optional, empty address = resolver cache disabled)
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict access to specific IP (e.g. "1.2.3.4, 5.6.7.8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

// Load reads the full server configuration. It panics on missing required
// values.
func Load() *Config {
	cfg := LoadLocal()

	// Server settings
	cfg.ListenPort = getenv("LINKDESK_LISTEN_PORT", ":8080")
	cfg.ShutdownTimeout = mustDuration("LINKDESK_SHUTDOWN_TIMEOUT", 5*time.Second)

	// Repository
	cfg.GitHubToken = requireEnv("LINKDESK_GITHUB_TOKEN")
	cfg.Repository = requireRepository("LINKDESK_REPOSITORY")
	cfg.GitHubAPIURL = getenv("LINKDESK_GITHUB_API_URL", "")

	// Publishing
	cfg.PublishBurst = getenvInt("LINKDESK_PUBLISH_BURST", 3)
	cfg.PublishPerMin = getenvInt("LINKDESK_PUBLISH_PER_MIN", 6)

	// Background jobs
	cfg.GCInterval = mustDuration("LINKDESK_GC_INTERVAL", 24*time.Hour)

	// Redis settings
	cfg.RedisAddr = getenv("LINKDESK_REDIS_ADDR", "")
	cfg.RedisUser = getenv("LINKDESK_REDIS_USERNAME", "default")
	cfg.RedisPasswordRequired = mustBool("LINKDESK_REDIS_PASSWORD_REQUIRED", false)
	cfg.RedisPassword = getenv("LINKDESK_REDIS_PASSWORD", "")
	cfg.RedisDB = getenvInt("LINKDESK_REDIS_DB", 0)
	cfg.RedisDT = mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second)
	cfg.RedisRT = mustDuration("REDIS_READ_TIMEOUT", 3*time.Second)
	cfg.RedisWT = mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second)
	cfg.RedisMaxWait = mustDuration("REDIS_MAX_WAIT", 10*time.Second)
	cfg.RedisPingTimeout = mustDuration("REDIS_PING_TIMEOUT", 5*time.Second)
	cfg.RedisPoolSize = getenvInt("REDIS_POOL_SIZE", 10)
	cfg.RedisConnectTimeout = mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second)
	cfg.RedisRetryInterval = mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second)
	cfg.RedisWarnThreshold = getenvInt("REDIS_WARN_THRESHOLD", 3)

	// Access restrictions
	cfg.AllowedHosts = splitAndTrim(getenv("LINKDESK_ALLOWED_HOSTS", ""))
	cfg.AllowedCIDRS = parseAllowedIPs(getenv("LINKDESK_ALLOWED_CIDRS", ""))
	cfg.TrustProxy = mustBool("LINKDESK_TRUST_PROXY", true)

	// Validate Redis password configuration
	if cfg.RedisAddr != "" && cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: LINKDESK_REDIS_PASSWORD is required when LINKDESK_REDIS_PASSWORD_REQUIRED=true")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg
}

// LoadChecked is Load for interactive commands: a missing or malformed
// required value is returned as an error instead of a panic.
func LoadChecked() (cfg *Config, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return Load(), nil
}

// LoadLocal reads the settings needed by offline commands: logging, the
// document location and the resolver. Nothing is required.
func LoadLocal() *Config {
	return &Config{
		// Logging
		LogLevel:  getenv("LINKDESK_LOG_LEVEL", "info"),
		PrettyLog: mustBool("LINKDESK_PRETTY_LOG", true),

		// Document
		FilePath:       getenv("LINKDESK_FILE_PATH", "commands.yaml"),
		DefaultBranch:  getenv("LINKDESK_DEFAULT_BRANCH", "main"),
		RequestTimeout: mustDuration("LINKDESK_REQUEST_TIMEOUT", 15*time.Second),

		// Publishing
		PublishStrategy: getenv("LINKDESK_PUBLISH_STRATEGY", "direct"),
		BranchPrefix:    getenv("LINKDESK_BRANCH_PREFIX", "editor"),
		ReviewTitle:     getenv("LINKDESK_REVIEW_TITLE", "Update bot mappings"),
		CommitMessage:   getenv("LINKDESK_COMMIT_MESSAGE", "Update commands.yaml via Editor"),

		// Resolver
		SuggestionLimit:  getenvInt("LINKDESK_SUGGESTION_LIMIT", 3),
		SuggestionCutoff: getenvFloat("LINKDESK_SUGGESTION_CUTOFF", 0.6),
		CacheTTL:         mustDuration("LINKDESK_CACHE_TTL", 24*time.Hour),
	}
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	const mask = "***REDACTED***"
	if c.GitHubToken != "" {
		c.GitHubToken = mask
	}
	if c.RedisPassword != "" {
		c.RedisPassword = mask
	}
	if c.RedisUser != "" {
		c.RedisUser = mask
	}
	return c
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func requireRepository(key string) string {
	v := requireEnv(key)
	owner, name, ok := strings.Cut(v, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		panic(fmt.Sprintf("❌ FATAL: %s must be owner/name, got %q", key, v))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
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
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
