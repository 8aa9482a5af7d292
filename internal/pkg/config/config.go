package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// -----------------------------------------------------------------------------
// Environment variable configuration guidelines:
// - required: Values that differ between environments (port, DB connection, etc.), security settings
// - default: Values common across all environments (timezone, timeout, etc.), standard settings
// -----------------------------------------------------------------------------

// Storage backends accepted by QUEUE_BACKEND and STORE_BACKEND.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMongo    = "mongo"
	BackendMemory   = "memory"
)

type Config struct {
	Server ServerConfig
	DB     DBConfig
	Redis  RedisConfig
	Mongo  MongoConfig
	CORS   CORSConfig
	Cookie CookieConfig
	Log    LogConfig
	JWT    JWTConfig
	Queue  QueueConfig
	Store  StoreConfig
	Mail   MailConfig
}

type ServerConfig struct {
	Port string `envconfig:"PORT" required:"true"`
}

type DBConfig struct {
	Host           string `envconfig:"DB_HOST" default:"localhost"`
	Port           string `envconfig:"DB_PORT" default:"5432"`
	User           string `envconfig:"DB_USER" default:"postgres"`
	Password       string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName         string `envconfig:"DB_NAME" default:"scheduled_mailer"`
	SSLMode        string `envconfig:"DB_SSL_MODE" default:"disable"`
	TimeZone       string `envconfig:"DB_TIMEZONE" default:"UTC"`
	MigrationsAuto bool   `envconfig:"DB_MIGRATIONS_AUTO" default:"true"`
	MigrationTable string `envconfig:"DB_MIGRATIONS_TABLE" default:"schema_migrations"`
}

type RedisConfig struct {
	URL            string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	KeyPrefix      string        `envconfig:"REDIS_KEY_PREFIX" default:"mailer"`
	ConnectTimeout time.Duration `envconfig:"REDIS_CONNECT_TIMEOUT" default:"5s"`
}

type MongoConfig struct {
	URI            string        `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	Database       string        `envconfig:"MONGO_DATABASE" default:"scheduled_mailer"`
	Collection     string        `envconfig:"MONGO_COLLECTION" default:"emails"`
	ConnectTimeout time.Duration `envconfig:"MONGO_CONNECT_TIMEOUT" default:"10s"`
}

type CORSConfig struct {
	AllowOrigins     []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
	AllowMethods     []string      `envconfig:"CORS_ALLOW_METHODS" default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowHeaders     []string      `envconfig:"CORS_ALLOW_HEADERS" default:"Origin,Content-Type,Accept,Authorization"`
	ExposeHeaders    []string      `envconfig:"CORS_EXPOSE_HEADERS" default:"Content-Length"`
	AllowCredentials bool          `envconfig:"CORS_ALLOW_CREDENTIALS" default:"true"`
	MaxAge           time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

type CookieConfig struct {
	Domain   string `envconfig:"COOKIE_DOMAIN" default:""`
	Secure   bool   `envconfig:"COOKIE_SECURE" default:"false"`
	SameSite string `envconfig:"COOKIE_SAME_SITE" default:"Lax"`
}

type LogConfig struct {
	Level          string `envconfig:"LOG_LEVEL" default:"info"`
	TimeZone       string `envconfig:"LOG_TIMEZONE" default:"UTC"`
	TimeFormat     string `envconfig:"LOG_TIME_FORMAT" default:"2006-01-02 15:04:05.000"`
	TimeZoneOffset int    `envconfig:"LOG_TIMEZONE_OFFSET" default:"0"`
}

type JWTConfig struct {
	Secret   string `envconfig:"JWT_SECRET" required:"true"`
	Duration string `envconfig:"JWT_DURATION" default:"168h"`
}

// QueueConfig controls admission backend and the dispatch loop.
type QueueConfig struct {
	Backend           string        `envconfig:"QUEUE_BACKEND" default:"postgres"` // postgres | redis | memory
	WorkerConcurrency int           `envconfig:"WORKER_CONCURRENCY" default:"5"`
	PollInterval      time.Duration `envconfig:"QUEUE_POLL_INTERVAL" default:"500ms"`
	LeaseDuration     time.Duration `envconfig:"QUEUE_LEASE_DURATION" default:"2m"`
	RateLimitMax      int           `envconfig:"RATE_LIMIT_MAX" default:"1"`
	RateLimitInterval time.Duration `envconfig:"RATE_LIMIT_INTERVAL" default:"2s"`
	RetryBase         time.Duration `envconfig:"RETRY_BASE_DELAY" default:"1s"`
	MaxAttempts       int           `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	AttemptTimeout    time.Duration `envconfig:"ATTEMPT_TIMEOUT" default:"30s"`
	ReconcileInterval time.Duration `envconfig:"RECONCILE_INTERVAL" default:"1m"`
}

type StoreConfig struct {
	Backend string `envconfig:"STORE_BACKEND" default:"postgres"` // postgres | mongo | memory
}

type MailConfig struct {
	Transport string `envconfig:"MAIL_TRANSPORT" default:"log"` // smtp | postmark | log
	From      string `envconfig:"MAIL_FROM" default:"no-reply@localhost"`

	SMTPHost     string `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser     string `envconfig:"SMTP_USER"`
	SMTPPassword string `envconfig:"SMTP_PASS"`
	SMTPSSL      bool   `envconfig:"SMTP_SSL" default:"false"`

	DKIMDomain   string `envconfig:"DKIM_DOMAIN"`
	DKIMSelector string `envconfig:"DKIM_SELECTOR"`
	DKIMKeyPath  string `envconfig:"DKIM_KEY_PATH"`

	PostmarkServerToken  string `envconfig:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `envconfig:"POSTMARK_ACCOUNT_TOKEN"`
	PostmarkStream       string `envconfig:"POSTMARK_MESSAGE_STREAM" default:"outbound"`
}

func (c *DBConfig) BuildDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&timezone=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode, c.TimeZone,
	)
}

func LoadConfig() (Config, error) {
	// .env is optional; real environment variables take precedence
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}
	return cfg, nil
}

func NewTestConfig() Config {
	return Config{
		Server: ServerConfig{
			Port: "8889", // Test port
		},
		DB: DBConfig{
			Host:           "localhost",
			Port:           "15433", // Test DB port
			User:           "test",
			Password:       "test",
			DBName:         "test_db",
			SSLMode:        "disable",
			TimeZone:       "UTC",
			MigrationTable: "schema_migrations",
		},
		Cookie: CookieConfig{SameSite: "Lax"},
		Log: LogConfig{
			Level:      "error", // Error level only for tests
			TimeZone:   "UTC",
			TimeFormat: "2006-01-02 15:04:05.000",
		},
		JWT: JWTConfig{
			Secret:   "test-secret",
			Duration: "1h",
		},
		Queue: QueueConfig{
			Backend:           BackendMemory,
			WorkerConcurrency: 5,
			PollInterval:      50 * time.Millisecond,
			LeaseDuration:     time.Minute,
			RateLimitMax:      1,
			RateLimitInterval: 2 * time.Second,
			RetryBase:         time.Second,
			MaxAttempts:       3,
			AttemptTimeout:    5 * time.Second,
		},
		Store: StoreConfig{Backend: BackendMemory},
		Mail:  MailConfig{Transport: "log", From: "no-reply@example.com"},
	}
}
