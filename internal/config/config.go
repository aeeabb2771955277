// internal/config/config.go
package config

import (
    "log"
    "os"
    "strconv"
    "time"

    "github.com/joho/godotenv"
)

// Config is read once at startup and passed explicitly into constructors.
// Components never look up the environment themselves.
type Config struct {
    DB       DBConfig
    Redis    RedisConfig
    AMQP     AMQPConfig
    SMS      SMSConfig
    Pipeline PipelineConfig
    Server   ServerConfig
}

type DBConfig struct {
    User     string
    Password string
    Host     string
    Port     string
    Name     string
}

func (c DBConfig) DSN() string {
    return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.Name + "?sslmode=disable"
}

type RedisConfig struct {
    Addr     string
    Password string
    DB       int
}

type AMQPConfig struct {
    URL   string // empty disables event publishing
    Queue string
}

type SMSConfig struct {
    ProviderURL string
    AccountSID  string
    AuthToken   string
    From        string
}

// PipelineConfig holds the dispatch/expansion knobs.
type PipelineConfig struct {
    BatchSize         int
    MaxRetries        int
    ProcessingTimeout time.Duration
    ExpandSchedule    string // cron spec
    DispatchSchedule  string // cron spec
}

type ServerConfig struct {
    Port string
}

// Load reads .env (if present) and the process environment.
func Load() Config {
    if err := godotenv.Load(); err != nil {
        log.Println("[config] no .env file found, relying on OS environment variables")
    }

    return Config{
        DB: DBConfig{
            User:     getenv("DB_USER", "postgres"),
            Password: getenv("DB_PASSWORD", "postgres"),
            Host:     getenv("DB_HOST", "localhost"),
            Port:     getenv("DB_PORT", "5432"),
            Name:     getenv("DB_NAME", "glowdesk"),
        },
        Redis: RedisConfig{
            Addr:     getenv("REDIS_ADDR", "localhost:6379"),
            Password: getenv("REDIS_PASSWORD", ""),
            DB:       getint("REDIS_DB", 0),
        },
        AMQP: AMQPConfig{
            URL:   getenv("AMQP_URL", ""),
            Queue: getenv("AMQP_EVENT_QUEUE", "message_events"),
        },
        SMS: SMSConfig{
            ProviderURL: getenv("SMS_PROVIDER_URL", ""),
            AccountSID:  getenv("SMS_ACCOUNT_SID", ""),
            AuthToken:   getenv("SMS_AUTH_TOKEN", ""),
            From:        getenv("SMS_FROM", ""),
        },
        Pipeline: PipelineConfig{
            BatchSize:         getint("DISPATCH_BATCH_SIZE", 50),
            MaxRetries:        getint("DISPATCH_MAX_RETRIES", 3),
            ProcessingTimeout: time.Duration(getint("PROCESSING_TIMEOUT_MINUTES", 15)) * time.Minute,
            ExpandSchedule:    getenv("EXPAND_SCHEDULE", "0 6 * * *"),
            DispatchSchedule:  getenv("DISPATCH_SCHEDULE", "* * * * *"),
        },
        Server: ServerConfig{
            Port: getenv("PORT", "8080"),
        },
    }
}

func getenv(key, fallback string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return fallback
}

func getint(key string, fallback int) int {
    v := os.Getenv(key)
    if v == "" {
        return fallback
    }
    n, err := strconv.Atoi(v)
    if err != nil {
        log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
        return fallback
    }
    return n
}
