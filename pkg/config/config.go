package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Core engine sections
	Gate       GateConfig
	Capital    CapitalConfig
	Strategy   StrategyConfig
	Tournament TournamentConfig
	Orders     OrdersConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL     string
	Enabled bool

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// GateConfig holds pre-trade risk gate thresholds
type GateConfig struct {
	MaxQuoteStaleness  time.Duration // 시세 최대 허용 지연
	MaxBrokerStaleness time.Duration
	MaxSpreadBps       float64
	MaxNotionalPct     float64 // 계좌 대비 단일 주문 최대 비중
	MaxOpenPositions   int
	MaxDailyVaR        float64 // equity 대비 일일 VaR 한도
	MaxCorrelationPct  float64 // 상관 버킷당 최대 익스포저
	MaxStrategyDD      float64
	MaxStrategyHeat    float64
	MinQty             float64
	DefaultVolatility  float64
	RejectionHistory   int
	AllowOffHours      bool
	DisableBreakers    bool // 비운영 환경 전용
}

// CapitalConfig holds capital allocator global limits
type CapitalConfig struct {
	MaxPerExperimentLow    float64
	MaxPerExperimentMedium float64
	MaxPerExperimentHigh   float64
	MaxConcurrent          int
	MaxTotalDrawdown       float64
	EmergencyStopLoss      float64 // 풀 총액 대비 미실현 손실 한도
	TransactionHistory     int
}

// StrategyConfig holds strategy allocator thresholds
type StrategyConfig struct {
	MinTrades       int
	MinSharpe       float64
	MaxDrawdown     float64
	MaxActive       int
	MinAllocation   float64
	MaxAllocation   float64
	TotalRiskBudget float64
	HistorySize     int
}

// TournamentConfig holds tournament cycle configuration
type TournamentConfig struct {
	CycleInterval   time.Duration
	FeedbackEnabled bool
}

// OrdersConfig holds order execution guard configuration
type OrdersConfig struct {
	RatePerSecond  float64
	Burst          int
	KillSwitch     bool
	IdempotencyTTL time.Duration
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			Enabled:         getEnvAsBool("DB_ENABLED", false),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Gate: GateConfig{
			MaxQuoteStaleness:  getEnvAsDuration("GATE_MAX_QUOTE_STALENESS", "10s"),
			MaxBrokerStaleness: getEnvAsDuration("GATE_MAX_BROKER_STALENESS", "30s"),
			MaxSpreadBps:       getEnvAsFloat("GATE_MAX_SPREAD_BPS", 50),
			MaxNotionalPct:     getEnvAsFloat("GATE_MAX_NOTIONAL_PCT", 0.10),
			MaxOpenPositions:   getEnvAsInt("GATE_MAX_OPEN_POSITIONS", 20),
			MaxDailyVaR:        getEnvAsFloat("GATE_MAX_DAILY_VAR", 0.03),
			MaxCorrelationPct:  getEnvAsFloat("GATE_MAX_CORRELATION_PCT", 0.30),
			MaxStrategyDD:      getEnvAsFloat("GATE_MAX_STRATEGY_DD", 0.10),
			MaxStrategyHeat:    getEnvAsFloat("GATE_MAX_STRATEGY_HEAT", 0.80),
			MinQty:             getEnvAsFloat("GATE_MIN_QTY", 1),
			DefaultVolatility:  getEnvAsFloat("GATE_DEFAULT_VOLATILITY", 0.20),
			RejectionHistory:   getEnvAsInt("GATE_REJECTION_HISTORY", 100),
			AllowOffHours:      getEnvAsBool("GATE_ALLOW_OFF_HOURS", false),
			DisableBreakers:    getEnvAsBool("GATE_DISABLE_BREAKERS", false),
		},

		Capital: CapitalConfig{
			MaxPerExperimentLow:    getEnvAsFloat("CAPITAL_MAX_PER_EXPERIMENT_LOW", 1000),
			MaxPerExperimentMedium: getEnvAsFloat("CAPITAL_MAX_PER_EXPERIMENT_MEDIUM", 5000),
			MaxPerExperimentHigh:   getEnvAsFloat("CAPITAL_MAX_PER_EXPERIMENT_HIGH", 10000),
			MaxConcurrent:          getEnvAsInt("CAPITAL_MAX_CONCURRENT", 10),
			MaxTotalDrawdown:       getEnvAsFloat("CAPITAL_MAX_TOTAL_DRAWDOWN", 0.20),
			EmergencyStopLoss:      getEnvAsFloat("CAPITAL_EMERGENCY_STOP_LOSS", 0.05),
			TransactionHistory:     getEnvAsInt("CAPITAL_TRANSACTION_HISTORY", 1000),
		},

		Strategy: StrategyConfig{
			MinTrades:       getEnvAsInt("STRATEGY_MIN_TRADES", 20),
			MinSharpe:       getEnvAsFloat("STRATEGY_MIN_SHARPE", 0.5),
			MaxDrawdown:     getEnvAsFloat("STRATEGY_MAX_DRAWDOWN", 0.25),
			MaxActive:       getEnvAsInt("STRATEGY_MAX_ACTIVE", 10),
			MinAllocation:   getEnvAsFloat("STRATEGY_MIN_ALLOCATION", 0.02),
			MaxAllocation:   getEnvAsFloat("STRATEGY_MAX_ALLOCATION", 0.30),
			TotalRiskBudget: getEnvAsFloat("STRATEGY_TOTAL_RISK_BUDGET", 0.50),
			HistorySize:     getEnvAsInt("STRATEGY_HISTORY_SIZE", 100),
		},

		Tournament: TournamentConfig{
			CycleInterval:   getEnvAsDuration("TOURNAMENT_CYCLE_INTERVAL", "15m"),
			FeedbackEnabled: getEnvAsBool("TOURNAMENT_FEEDBACK_ENABLED", true),
		},

		Orders: OrdersConfig{
			RatePerSecond:  getEnvAsFloat("ORDERS_RATE_PER_SECOND", 5),
			Burst:          getEnvAsInt("ORDERS_BURST", 10),
			KillSwitch:     getEnvAsBool("ORDERS_KILL_SWITCH", false),
			IdempotencyTTL: getEnvAsDuration("ORDERS_IDEMPOTENCY_TTL", "24h"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	// Persistence is optional, but an enabled DB needs a URL
	if c.Database.Enabled && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required when DB_ENABLED=true")
	}

	// Safety breakers may only be disabled outside production
	if c.Gate.DisableBreakers && c.Env == "production" {
		return fmt.Errorf("GATE_DISABLE_BREAKERS is not allowed in production")
	}

	if c.Strategy.MinAllocation > c.Strategy.MaxAllocation {
		return fmt.Errorf("STRATEGY_MIN_ALLOCATION must be <= STRATEGY_MAX_ALLOCATION")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
