package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port                  string        `yaml:"port"`
	DBDSN                 string        `yaml:"db_dsn"`
	LogFile               string        `yaml:"log_file"`
	APIBaseURL            string        `yaml:"api_base_url"`
	APITimeout            time.Duration `yaml:"api_timeout"`
	StoreBackend          string        `yaml:"store_backend"` // sqlite | redis
	RedisURL              string        `yaml:"redis_url"`
	SlotTTL               time.Duration `yaml:"slot_ttl"`
	TokenSecret           string        `yaml:"token_secret"`
	TemplatesDir          string        `yaml:"templates_dir"`
	ToastDuration         time.Duration `yaml:"toast_duration"`
	RegisterRedirectDelay time.Duration `yaml:"register_redirect_delay"`
}

func Defaults() Config {
	return Config{
		Port:                  "8081",
		DBDSN:                 "shopfront.db", // sqlite file in project root
		LogFile:               "./shopfront.log",
		APIBaseURL:            "http://localhost:8080/api/v1",
		APITimeout:            10 * time.Second,
		StoreBackend:          "sqlite",
		SlotTTL:               30 * 24 * time.Hour,
		TemplatesDir:          "./web/templates",
		ToastDuration:         3 * time.Second,
		RegisterRedirectDelay: 3 * time.Second,
	}
}

func Load() Config {
	cfg := Defaults()

	// Optional YAML file first, env wins over it.
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			log.Printf("[warn] could not read config file %s: %v", path, err)
		}
	}

	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				log.Printf("[warn] %s=%q is not a duration, keeping %s", key, v, *dst)
				return
			}
			*dst = d
		}
	}
	str("PORT", &cfg.Port)
	str("DB_DSN", &cfg.DBDSN)
	str("LOG_FILE", &cfg.LogFile)
	str("API_BASE_URL", &cfg.APIBaseURL)
	str("STORE_BACKEND", &cfg.StoreBackend)
	str("REDIS_URL", &cfg.RedisURL)
	str("TOKEN_SECRET", &cfg.TokenSecret)
	str("TEMPLATES_DIR", &cfg.TemplatesDir)
	dur("API_TIMEOUT", &cfg.APITimeout)
	dur("SLOT_TTL", &cfg.SlotTTL)
	dur("TOAST_DURATION", &cfg.ToastDuration)
	dur("REGISTER_REDIRECT_DELAY", &cfg.RegisterRedirectDelay)

	if cfg.TokenSecret == "" {
		log.Printf("[warn] TOKEN_SECRET not set; bearer tokens are sealed with a development key")
		cfg.TokenSecret = "shopfront-dev-secret"
	}

	log.Printf("[config] PORT=%s DB_DSN=%s STORE_BACKEND=%s API_BASE_URL=%s LOG_FILE=%s",
		cfg.Port, cfg.DBDSN, cfg.StoreBackend, cfg.APIBaseURL, cfg.LogFile)
	return cfg
}

func (c *Config) overlayFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, c)
}
