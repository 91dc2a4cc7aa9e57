package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server       ServerConfig
	Redis        RedisConfig
	RateLimit    RateLimitConfig
	Scheduler    SchedulerConfig
	Providers    ProvidersConfig
	ModelService ModelServiceConfig
	Simulation   SimulationConfig
	R2           R2Config
	Storage      StorageConfig
	Webhook      WebhookConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	SubmitPerMin int
}

type SchedulerConfig struct {
	PollInterval  time.Duration
	CancelTimeout time.Duration
	HistoryTTL    time.Duration
	PruneInterval time.Duration
	EventBuffer   int
	MaxPollErrors int
}

type ProvidersConfig struct {
	Default string
	Names   []string
}

type ModelServiceConfig struct {
	URL     string
	Timeout int // seconds
}

type SimulationConfig struct {
	StepDelay time.Duration
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

type StorageConfig struct {
	LocalDir string
}

type WebhookConfig struct {
	Enabled      bool
	MaxRetry     int
	AllowPrivate bool
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Every key is bound explicitly. AutomaticEnv would let PROVIDERS shadow
	// the whole providers subtree.
	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.env", "SERVER_ENV")
	_ = v.BindEnv("server.log_level", "LOG_LEVEL")
	_ = v.BindEnv("redis.enabled", "REDIS_ENABLED")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "REDIS_DB")
	_ = v.BindEnv("ratelimit.submit_per_min", "RATELIMIT_SUBMIT_PER_MIN")
	_ = v.BindEnv("scheduler.poll_interval", "SCHEDULER_POLL_INTERVAL")
	_ = v.BindEnv("scheduler.cancel_timeout", "SCHEDULER_CANCEL_TIMEOUT")
	_ = v.BindEnv("scheduler.history_ttl", "SCHEDULER_HISTORY_TTL")
	_ = v.BindEnv("scheduler.prune_interval", "SCHEDULER_PRUNE_INTERVAL")
	_ = v.BindEnv("scheduler.event_buffer", "SCHEDULER_EVENT_BUFFER")
	_ = v.BindEnv("scheduler.max_poll_errors", "SCHEDULER_MAX_POLL_ERRORS")
	_ = v.BindEnv("providers.default", "DEFAULT_PROVIDER")
	_ = v.BindEnv("providers.names", "PROVIDERS")
	_ = v.BindEnv("model_service.url", "MODEL_SERVICE_URL")
	_ = v.BindEnv("model_service.timeout", "MODEL_SERVICE_TIMEOUT")
	_ = v.BindEnv("simulation.step_delay", "SIMULATION_STEP_DELAY")
	_ = v.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = v.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = v.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = v.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = v.BindEnv("r2.public_url", "R2_PUBLIC_URL")
	_ = v.BindEnv("storage.local_dir", "STORAGE_LOCAL_DIR")
	_ = v.BindEnv("webhook.enabled", "WEBHOOK_ENABLED")
	_ = v.BindEnv("webhook.max_retry", "WEBHOOK_MAX_RETRY")
	_ = v.BindEnv("webhook.allow_private", "WEBHOOK_ALLOW_PRIVATE")

	// Defaults
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("ratelimit.submit_per_min", 30)

	// Scheduler defaults
	v.SetDefault("scheduler.poll_interval", "1s")
	v.SetDefault("scheduler.cancel_timeout", "30s")
	v.SetDefault("scheduler.history_ttl", "1h")
	v.SetDefault("scheduler.prune_interval", "5m")
	v.SetDefault("scheduler.event_buffer", 256)
	v.SetDefault("scheduler.max_poll_errors", 3)

	// Provider defaults
	v.SetDefault("providers.default", "ace_step")
	v.SetDefault("providers.names", []string{"ace_step", "song_generation"})

	// Model service defaults; an empty URL selects the simulated backend
	v.SetDefault("model_service.url", "")
	v.SetDefault("model_service.timeout", 300)
	v.SetDefault("simulation.step_delay", "500ms")

	v.SetDefault("storage.local_dir", "./data/audio")

	v.SetDefault("webhook.enabled", false)
	v.SetDefault("webhook.max_retry", 8)
	v.SetDefault("webhook.allow_private", false)

	// Try to read config file (optional)
	_ = v.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     v.GetString("server.port"),
			Env:      v.GetString("server.env"),
			LogLevel: v.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		RateLimit: RateLimitConfig{
			SubmitPerMin: v.GetInt("ratelimit.submit_per_min"),
		},
		Scheduler: SchedulerConfig{
			PollInterval:  v.GetDuration("scheduler.poll_interval"),
			CancelTimeout: v.GetDuration("scheduler.cancel_timeout"),
			HistoryTTL:    v.GetDuration("scheduler.history_ttl"),
			PruneInterval: v.GetDuration("scheduler.prune_interval"),
			EventBuffer:   v.GetInt("scheduler.event_buffer"),
			MaxPollErrors: v.GetInt("scheduler.max_poll_errors"),
		},
		Providers: ProvidersConfig{
			Default: v.GetString("providers.default"),
			Names:   splitList(v.GetStringSlice("providers.names")),
		},
		ModelService: ModelServiceConfig{
			URL:     strings.TrimRight(v.GetString("model_service.url"), "/"),
			Timeout: v.GetInt("model_service.timeout"),
		},
		Simulation: SimulationConfig{
			StepDelay: v.GetDuration("simulation.step_delay"),
		},
		R2: R2Config{
			AccountID:       v.GetString("r2.account_id"),
			AccessKeyID:     v.GetString("r2.access_key_id"),
			SecretAccessKey: v.GetString("r2.secret_access_key"),
			BucketName:      v.GetString("r2.bucket_name"),
			PublicURL:       strings.TrimRight(v.GetString("r2.public_url"), "/"),
		},
		Storage: StorageConfig{
			LocalDir: v.GetString("storage.local_dir"),
		},
		Webhook: WebhookConfig{
			Enabled:      v.GetBool("webhook.enabled"),
			MaxRetry:     v.GetInt("webhook.max_retry"),
			AllowPrivate: v.GetBool("webhook.allow_private"),
		},
	}

	return cfg, nil
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Env, "production")
}

// splitList accepts both yaml lists and comma separated env values.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
