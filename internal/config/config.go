package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort           string
	GRPCPort             string
	DBPath               string
	JWTSecret            string
	JWTExpirationMinutes int
	LogFilePath          string
	LogLevel             string
	RandomAPIURL         string
	RandomAPIKey         string
	RandomTimeout        time.Duration
	InitialBalance       int64
	RateLimitRPS         float64
	RateLimitBurst       int
	CostsFile            string
}

var AppConfig *Config

const (
	defaultServerPort     = "8080"
	defaultDBPath         = "data/arithmetic.db"
	defaultJWTSecret      = "change-me"
	defaultRandomAPIURL   = "https://api.random.org/json-rpc/4/invoke"
	defaultInitialBalance = 100
)

// InitConfig загружает конфигурацию и завершает процесс при ошибке
func InitConfig(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	AppConfig = cfg
}

// Load читает .env (если он есть) и переменные окружения
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); err == nil {
		if err := godotenv.Load(configPath); err != nil {
			return nil, fmt.Errorf("error loading %s: %w", configPath, err)
		}
	} else {
		log.Printf("%s not found, using environment only", configPath)
	}

	cfg := &Config{
		ServerPort:   getEnv("SERVER_PORT", defaultServerPort),
		DBPath:       getEnv("DB_PATH", defaultDBPath),
		JWTSecret:    getEnv("JWT_SECRET", defaultJWTSecret),
		LogFilePath:  os.Getenv("LOG_FILE_PATH"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		RandomAPIURL: getEnv("RANDOM_API_URL", defaultRandomAPIURL),
		RandomAPIKey: os.Getenv("RANDOM_API_KEY"),
		CostsFile:    os.Getenv("COSTS_FILE"),
	}

	var err error
	if cfg.JWTExpirationMinutes, err = getInt("JWT_EXPIRATION_MINUTES", 20); err != nil {
		return nil, err
	}
	timeoutMs, err := getInt("RANDOM_TIMEOUT_MS", 5000)
	if err != nil {
		return nil, err
	}
	cfg.RandomTimeout = time.Duration(timeoutMs) * time.Millisecond

	balance, err := getInt("INITIAL_BALANCE", defaultInitialBalance)
	if err != nil {
		return nil, err
	}
	if balance < 0 {
		return nil, fmt.Errorf("INITIAL_BALANCE must not be negative")
	}
	cfg.InitialBalance = int64(balance)

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		cfg.RateLimitRPS, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("RATE_LIMIT_RPS not a number: %w", err)
		}
	} else {
		cfg.RateLimitRPS = 10
	}
	if cfg.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", 20); err != nil {
		return nil, err
	}

	// gRPC по умолчанию слушает порт HTTP + 1
	if v := os.Getenv("GRPC_PORT"); v != "" {
		cfg.GRPCPort = v
	} else {
		httpPort, err := strconv.Atoi(cfg.ServerPort)
		if err != nil {
			return nil, fmt.Errorf("SERVER_PORT not a number: %w", err)
		}
		cfg.GRPCPort = strconv.Itoa(httpPort + 1)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s not a number: %w", key, err)
	}
	return n, nil
}
