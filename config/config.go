// Package config loads environment-driven configuration and opens the
// Postgres connection shared by every worker process.
package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"outreachengine/models"
)

var (
	DB        *gorm.DB
	AppConfig Config
	envLoaded bool
)

// RedisConfig wires the job queue, warmup dedup sets, and daily-reset CAS
// key.
type RedisConfig struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// Config is the process-wide configuration loaded once at startup.
type Config struct {
	Environment    string `json:"environment"`
	EncryptionKey  string `json:"-"`
	ServerPort     string `json:"server_port"`
	DBHost         string `json:"db_host"`
	DBPort         string `json:"db_port"`
	DBUser         string `json:"db_user"`
	DBPassword     string `json:"-"`
	DBName         string `json:"db_name"`
	DBSSLMode      string `json:"db_ssl_mode"`
	DBMaxIdleConns int    `json:"db_max_idle_conns"`
	DBMaxOpenConns int    `json:"db_max_open_conns"`

	Redis RedisConfig `json:"redis"`

	WarmupNetworkFromEmail string `json:"warmup_network_from_email"`
	TrackingBaseURL        string `json:"tracking_base_url"`

	SchedulerIntervalSeconds   int `json:"scheduler_interval_seconds"`
	WarmupIntervalSeconds      int `json:"warmup_interval_seconds"`
	HealthMonitorIntervalSeconds int `json:"health_monitor_interval_seconds"`
	DailyResetIntervalSeconds int `json:"daily_reset_interval_seconds"`
	ShutdownGraceSeconds       int `json:"shutdown_grace_seconds"`
}

func init() {
	// Try to load .env file, but don't fail if it doesn't exist.
	_ = godotenv.Load()
	envLoaded = true
}

// LoadConfig populates AppConfig from the environment, failing fast on
// missing secrets.
func LoadConfig() error {
	AppConfig = Config{
		Environment:    getEnv("ENVIRONMENT", "development"),
		EncryptionKey:  getEnv("ENCRYPTION_KEY", ""),
		ServerPort:     getEnv("SERVER_PORT", "5000"),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "outreachengine"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),

		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},

		WarmupNetworkFromEmail: getEnv("WARMUP_NETWORK_FROM_EMAIL", "network-warmup@outreachengine.local"),
		TrackingBaseURL:        getEnv("TRACKING_BASE_URL", "http://localhost:5000"),

		SchedulerIntervalSeconds:     getEnvAsInt("SCHEDULER_INTERVAL_SECONDS", 300),
		WarmupIntervalSeconds:        getEnvAsInt("WARMUP_INTERVAL_SECONDS", 1800),
		HealthMonitorIntervalSeconds: getEnvAsInt("HEALTH_MONITOR_INTERVAL_SECONDS", 900),
		DailyResetIntervalSeconds:    getEnvAsInt("DAILY_RESET_INTERVAL_SECONDS", 60),
		ShutdownGraceSeconds:         getEnvAsInt("SHUTDOWN_GRACE_SECONDS", 30),
	}

	if AppConfig.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if AppConfig.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required")
	}

	logConfig()
	return nil
}

// ConnectDB opens the Postgres connection, tunes the pool, and runs
// AutoMigrate over every model this core owns.
func ConnectDB() error {
	log.Println("Attempting to connect to database...")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBUser,
		AppConfig.DBPassword,
		AppConfig.DBName,
		AppConfig.DBSSLMode,
	)
	log.Println("Using connection string:", maskPassword(dsn))

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get DB instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(AppConfig.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(AppConfig.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	log.Println("successfully connected to the database")
	log.Println("starting database migration...")
	if err := migrateDB(DB); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	log.Println("database migration completed")
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if !envLoaded && fallback == "" {
		log.Printf("environment variable %s not found and no fallback provided", key)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var value int
	if _, err := fmt.Sscanf(valueStr, "%d", &value); err != nil {
		return fallback
	}
	return value
}

func maskPassword(dsn string) string {
	const passwordMarker = "password="
	startIdx := strings.Index(dsn, passwordMarker)
	if startIdx == -1 {
		return dsn
	}
	startIdx += len(passwordMarker)
	endIdx := strings.IndexAny(dsn[startIdx:], " ")
	if endIdx == -1 {
		return dsn[:startIdx] + "*****"
	}
	return dsn[:startIdx] + "*****" + dsn[startIdx+endIdx:]
}

func logConfig() {
	log.Println("loaded configuration:")
	log.Printf("environment: %s", AppConfig.Environment)
	log.Printf("server port: %s", AppConfig.ServerPort)
	log.Printf("database: %s@%s:%s/%s",
		AppConfig.DBUser,
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBName)
	log.Printf("redis: %s", AppConfig.Redis.Address)
}

func migrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Team{},
		&models.TeamMember{},
		&models.LeadList{},
		&models.Lead{},
		&models.Campaign{},
		&models.CampaignInbox{},
		&models.SequenceStep{},
		&models.SequenceVariant{},
		&models.Inbox{},
		&models.WarmupState{},
		&models.NetworkMailbox{},
		&models.Email{},
		&models.Reply{},
		&models.SuppressionEntry{},
		&models.EmailEvent{},
		&models.InboxEvent{},
	)
}
