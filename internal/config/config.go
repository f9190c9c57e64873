// Package config предоставляет структуры и функцию для парсинга и загрузки конфига.
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек сервиса.
type Config struct {
	Env                     string `yaml:"env" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Gate                    `yaml:"gate"`
	EntitlementBackend      `yaml:"entitlement_backend"`
	Scheduler               `yaml:"scheduler"`
	RabbitMQURL             string        `yaml:"rabbitmq_url"`
	RabbitMQMaxRetries      int           `yaml:"rabbitmq_max_retries" env-default:"5"`
	RabbitMQRetryDelay      time.Duration `yaml:"rabbitmq_retry_delay" env-default:"3s"`
	WebhookSecret           string        `yaml:"webhook_secret" env:"WEBHOOK_SECRET"`
}

// HTTPServer структура для настройки сервера.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
}

// JWTToken структура для работы с jwt-токеном.
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// Gate настраивает шлюз доступа. Enabled заменяет жёстко зашитый флаг
// исходной системы: значение задаётся при старте процесса, по умолчанию
// проверка включена. Бюджеты времени соответствуют наблюдаемому поведению:
// общий бюджет оценки, бюджет запроса статуса и бюджет запроса размера команды.
type Gate struct {
	Enabled          bool          `yaml:"enabled" env-default:"true"`
	EvaluationBudget time.Duration `yaml:"evaluation_budget" env-default:"5s"`
	StatusTimeout    time.Duration `yaml:"status_timeout" env-default:"3s"`
	TeamSizeTimeout  time.Duration `yaml:"team_size_timeout" env-default:"2s"`
	OutcomeCacheTTL  time.Duration `yaml:"outcome_cache_ttl" env-default:"10m"`
}

// EntitlementBackend настраивает клиента внешнего биллингового бэкенда.
type EntitlementBackend struct {
	BaseURL     string `yaml:"base_url"`
	BearerToken string `yaml:"bearer_token" env:"ENTITLEMENT_BEARER_TOKEN"`
}

// Scheduler настраивает пакетную обработку истечения пробных периодов.
type Scheduler struct {
	TrialExpirationInterval time.Duration `yaml:"trial_expiration_interval" env-default:"24h"`
}

// MustLoad загружает конфиг по пути из CONFIG_PATH и завершает процесс при ошибке.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}
