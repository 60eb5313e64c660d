package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Common
	Env      string
	LogLevel string
	// API
	Port        string
	Storage     string
	DatabaseURL string
	// Pipeline
	Source          string
	WorkbookPath    string
	WorkbookURL     string
	TerminalBaseURL string
	TerminalToken   string
	StartDate       string
	EndDate         string
	OutputDir       string
	// Worker
	MetricsPort     string
	WorkerPoll      time.Duration
	WorkerBatchSize int
	RequestTimeout  time.Duration
	// Redis (idempotency, statistics cache)
	IdempotencyBackend string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	RedisTTL           time.Duration
	StatsCacheTTL      time.Duration
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func msDef(key string, def int) time.Duration {
	return time.Duration(atoiDef(getEnv(key, strconv.Itoa(def)), def)) * time.Millisecond
}

// Load reads environment variables and applies defaults.
func Load() Config {
	return Config{
		Env:                getEnv("ENV", "local"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Port:               getEnv("PORT", "8080"),
		Storage:            getEnv("STORAGE", "pg"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		Source:             getEnv("SOURCE", "spreadsheet"),
		WorkbookPath:       getEnv("WORKBOOK_PATH", "./data_manual/CIP_2025.xlsx"),
		WorkbookURL:        getEnv("WORKBOOK_URL", "https://raw.githubusercontent.com/Kunj121/CIP/main/data_manual/CIP_2025.xlsx"),
		TerminalBaseURL:    getEnv("TERMINAL_BASE_URL", "http://localhost:8194"),
		TerminalToken:      getEnv("TERMINAL_TOKEN", ""),
		StartDate:          getEnv("START_DATE", "2010-01-01"),
		EndDate:            getEnv("END_DATE", "2025-03-01"),
		OutputDir:          getEnv("OUTPUT_DIR", "./_output"),
		MetricsPort:        getEnv("METRICS_PORT", "9091"),
		WorkerPoll:         msDef("WORKER_POLL_MS", 1000),
		WorkerBatchSize:    atoiDef(getEnv("WORKER_BATCH_LIMIT", "1"), 1),
		RequestTimeout:     msDef("REQUEST_TIMEOUT_MS", 30000),
		IdempotencyBackend: getEnv("IDEMPOTENCY_BACKEND", "redis"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            atoiDef(getEnv("REDIS_DB", "0"), 0),
		RedisTTL:           msDef("IDEMPOTENCY_TTL_MS", 86400000),
		StatsCacheTTL:      msDef("STATS_CACHE_TTL_MS", 3600000),
	}
}
