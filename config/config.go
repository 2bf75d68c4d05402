package config

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var loadEnv sync.Once

// Config returns the value of an environment variable, loading .env on first use.
func Config(key string) string {
	loadEnv.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Printf("no .env file loaded: %v", err)
		}
	})
	return os.Getenv(key)
}

// Settings holds the typed gateway configuration.
type Settings struct {
	ServerPort string

	PostgresDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RabbitMQURL string
	EventLogDir string

	AccessKey        string
	HandshakeTimeout time.Duration
	SocketDebug      bool

	PushProvider  string
	PushHTTPURL   string
	PushHTTPToken string
	PushTimeout   time.Duration
	PushWorkers   int
	PushQueueSize int
	PreviewLength int

	IdentityCacheTTL time.Duration
	CasbinModel      string
	ShutdownTimeout  time.Duration
}

// Load reads Settings from the environment, falling back to defaults for tunables.
func Load() Settings {
	return Settings{
		ServerPort: withDefault(Config("SERVER_PORT"), "3000"),

		PostgresDSN: "host=" + Config("POSTGRES_HOST") +
			" port=" + withDefault(Config("POSTGRES_PORT"), "5432") +
			" user=" + Config("POSTGRES_USER") +
			" password=" + Config("POSTGRES_PASSWORD") +
			" dbname=" + Config("POSTGRES_DB") +
			" sslmode=disable",

		RedisAddr:     withDefault(Config("REDIS_HOST"), "localhost") + ":" + withDefault(Config("REDIS_PORT"), "6379"),
		RedisPassword: Config("REDIS_PASSWORD"),
		RedisDB:       intValue("REDIS_DB", 0),

		RabbitMQURL: "amqp://" + Config("RABBITMQ_USER") + ":" + Config("RABBITMQ_PASSWORD") +
			"@" + withDefault(Config("RABBITMQ_HOST"), "localhost") + ":" + withDefault(Config("RABBITMQ_PORT"), "5672") + "/",
		EventLogDir: Config("EVENT_LOG_DIR"),

		AccessKey:        Config("JWT_ACCESS_KEY"),
		HandshakeTimeout: durationValue("HANDSHAKE_TIMEOUT", 3*time.Second),
		SocketDebug:      Config("SOCKET_DEBUG") == "true",

		PushProvider:  withDefault(Config("PUSH_PROVIDER"), "log"),
		PushHTTPURL:   withDefault(Config("PUSH_HTTP_URL"), "https://exp.host/--/api/v2/push/send"),
		PushHTTPToken: Config("PUSH_HTTP_TOKEN"),
		PushTimeout:   durationValue("PUSH_TIMEOUT", 5*time.Second),
		PushWorkers:   intValue("PUSH_WORKERS", 4),
		PushQueueSize: intValue("PUSH_QUEUE_SIZE", 256),
		PreviewLength: intValue("PREVIEW_LENGTH", 50),

		IdentityCacheTTL: durationValue("IDENTITY_CACHE_TTL", 10*time.Minute),
		CasbinModel:      Config("CASBIN_MODEL"),
		ShutdownTimeout:  durationValue("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func withDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func intValue(key string, fallback int) int {
	raw := Config(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, raw, fallback)
		return fallback
	}
	return n
}

// durationValue accepts Go duration strings ("3s") or plain milliseconds ("3000").
func durationValue(key string, fallback time.Duration) time.Duration {
	raw := Config(key)
	if raw == "" {
		return fallback
	}
	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("invalid %s=%q, using %s", key, raw, fallback)
		return fallback
	}
	return d
}
