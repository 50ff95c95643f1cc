package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	WhatsApp  WhatsAppConfig
	Questions QuestionsConfig
	State     StateConfig
	Delivery  DeliveryConfig
	Log       LogConfig
}

type ServerConfig struct {
	Address string
}

type DatabaseConfig struct {
	PostgresURL string
}

// RedisConfig selects the shared conversation store. When disabled the
// process keeps conversation state in memory.
type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
}

type WhatsAppConfig struct {
	APIURL        string
	Token         string
	PhoneNumberID string
	VerifyToken   string
	ContentMax    int
}

type QuestionsConfig struct {
	Path string
}

// StateConfig bounds how long an idle conversation keeps its step, in
// memory or in Redis. Zero keeps it forever.
type StateConfig struct {
	TTL time.Duration
}

type DeliveryConfig struct {
	Interval    time.Duration
	Concurrency int
	Location    *time.Location
}

type LogConfig struct {
	Level  string
	Format string
}

func LoadAll() (*Config, error) {
	var errs []error

	str := func(key string) string {
		v, err := requireEnv(key)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	num := func(key string, def int) int {
		v, err := getEnvInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	cfg := &Config{
		Server: ServerConfig{
			Address: getEnv("SERVER_ADDRESS", ":8080"),
		},
		Database: DatabaseConfig{
			PostgresURL: str("POSTGRES_URL"),
		},
		WhatsApp: WhatsAppConfig{
			APIURL:        strings.TrimRight(getEnv("WHATSAPP_API_URL", "https://graph.facebook.com/v18.0"), "/"),
			Token:         str("WHATSAPP_TOKEN"),
			PhoneNumberID: str("WHATSAPP_PHONE_NUMBER_ID"),
			VerifyToken:   str("WHATSAPP_VERIFY_TOKEN"),
			ContentMax:    num("CONTENT_MAX", 4096),
		},
		Questions: QuestionsConfig{
			Path: getEnv("QUESTIONS_PATH", "questions"),
		},
		State: StateConfig{
			TTL: time.Duration(num("STATE_TTL_SECONDS", 30*24*3600)) * time.Second,
		},
		Delivery: DeliveryConfig{
			Interval:    time.Duration(num("DELIVERY_INTERVAL_SECONDS", 300)) * time.Second,
			Concurrency: num("DELIVERY_CONCURRENCY", 4),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
	}

	redisCfg, err := loadRedisConfig()
	if err != nil {
		errs = append(errs, err)
	}
	cfg.Redis = redisCfg

	tz := getEnv("TIMEZONE", "America/Lima")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err))
		loc = time.UTC
	}
	cfg.Delivery.Location = loc

	if err := joinErrors(errs); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadRedisConfig() (RedisConfig, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return RedisConfig{Enabled: false}, nil
	}

	db, err := getEnvInt("REDIS_DB", 0)
	return RedisConfig{
		Enabled:  true,
		Address:  addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	}, err
}

func validate(cfg *Config) error {
	var errs []error
	if cfg.WhatsApp.ContentMax <= 0 {
		errs = append(errs, errors.New("CONTENT_MAX must be > 0"))
	}
	if cfg.Delivery.Interval <= 0 {
		errs = append(errs, errors.New("DELIVERY_INTERVAL_SECONDS must be > 0"))
	}
	if cfg.Delivery.Concurrency <= 0 {
		errs = append(errs, errors.New("DELIVERY_CONCURRENCY must be > 0"))
	}
	if cfg.State.TTL < 0 {
		errs = append(errs, errors.New("STATE_TTL_SECONDS must be >= 0"))
	}
	switch cfg.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or text, got %q", cfg.Log.Format))
	}
	return joinErrors(errs)
}

func requireEnv(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("missing required env var: %s", key)
	}
	return val, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("invalid int for env %s: %s", key, v)
	}
	return i, nil
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
