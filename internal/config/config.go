package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures all runtime configuration for the dispatch service. Tenant
// facing provider credentials are deliberately absent: those live in the
// per-tenant service configuration store and are resolved at dispatch time.
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Providers ProviderEndpoints
	Auth      AuthConfig
	Timeouts  TimeoutConfig
}

// AppConfig contains generic application level settings.
type AppConfig struct {
	Env      string
	Port     int
	LogLevel string
}

// DatabaseConfig holds the postgres connection string.
type DatabaseConfig struct {
	URL string
}

// RedisConfig controls the optional service-config read-through cache. An
// empty Addr disables caching entirely.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// KafkaConfig controls the optional dispatch audit event stream. An empty
// broker list disables publishing.
type KafkaConfig struct {
	Brokers       []string
	DispatchTopic string
}

// ProviderEndpoints lists the base URLs of the external provider APIs. They
// exist as configuration so tests and staging environments can point the
// clients at stubs.
type ProviderEndpoints struct {
	ResendBaseURL   string
	Fast2SMSBaseURL string
	GraphBaseURL    string
	GraphVersion    string
}

// AuthConfig carries the static bearer-token map used when the service runs
// without the CRM's session layer. Format: "token:tenant,token:tenant".
type AuthConfig struct {
	StaticTokens map[string]string
}

// TimeoutConfig contains timeout thresholds for outbound provider calls.
type TimeoutConfig struct {
	ProviderTimeout time.Duration
}

// Load reads environment variables, applies defaults, validates required
// values and returns a populated Config instance.
func Load() (*Config, error) {
	_ = godotenv.Load()

	ldr := &envLoader{}

	cfg := &Config{}
	cfg.App.Env = ldr.getString("APP_ENV", "development", false)
	cfg.App.Port = ldr.getInt("APP_PORT", 8080, false)
	cfg.App.LogLevel = ldr.getString("LOG_LEVEL", "info", false)

	cfg.Database.URL = ldr.getString("DATABASE_URL", "", true)

	cfg.Redis.Addr = ldr.getString("REDIS_ADDR", "", false)
	cfg.Redis.Password = ldr.getString("REDIS_PASSWORD", "", false)
	cfg.Redis.DB = ldr.getInt("REDIS_DB", 0, false)
	cfg.Redis.CacheTTL = time.Duration(ldr.getInt("CONFIG_CACHE_TTL_SECONDS", 60, false)) * time.Second

	cfg.Kafka.Brokers = ldr.getStringSlice("KAFKA_BROKERS", false)
	cfg.Kafka.DispatchTopic = ldr.getString("KAFKA_DISPATCH_EVENTS_TOPIC", "crm.dispatch.events", false)

	cfg.Providers.ResendBaseURL = ldr.getString("RESEND_BASE_URL", "https://api.resend.com", false)
	cfg.Providers.Fast2SMSBaseURL = ldr.getString("FAST2SMS_BASE_URL", "https://www.fast2sms.com/dev/bulkV2", false)
	cfg.Providers.GraphBaseURL = ldr.getString("GRAPH_BASE_URL", "https://graph.facebook.com", false)
	cfg.Providers.GraphVersion = ldr.getString("GRAPH_API_VERSION", "v19.0", false)

	cfg.Auth.StaticTokens = ldr.getTokenMap("API_STATIC_TOKENS", false)

	cfg.Timeouts.ProviderTimeout = time.Duration(ldr.getInt("PROVIDER_TIMEOUT_SECONDS", 30, false)) * time.Second

	if err := ldr.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

type envLoader struct {
	errs []string
}

func (l *envLoader) validate() error {
	if len(l.errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(l.errs, "; "))
}

func (l *envLoader) getString(key, def string, required bool) string {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		return val
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getInt(key string, def int, required bool) int {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		i, err := strconv.Atoi(val)
		if err != nil {
			l.addError(fmt.Sprintf("%s must be a valid integer", key))
			return def
		}
		return i
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getStringSlice(key string, required bool) []string {
	raw := l.getString(key, "", required)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if required && len(out) == 0 {
		l.addError(fmt.Sprintf("%s must contain at least one entry", key))
	}
	return out
}

// getTokenMap parses "token:tenant" pairs separated by commas.
func (l *envLoader) getTokenMap(key string, required bool) map[string]string {
	raw := l.getString(key, "", required)
	if raw == "" {
		return nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		token, tenant, ok := strings.Cut(pair, ":")
		token = strings.TrimSpace(token)
		tenant = strings.TrimSpace(tenant)
		if !ok || token == "" || tenant == "" {
			l.addError(fmt.Sprintf("%s entries must look like token:tenant, got %q", key, pair))
			continue
		}
		out[token] = tenant
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (l *envLoader) addError(err string) {
	l.errs = append(l.errs, err)
}
