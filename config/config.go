package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is built once at startup and passed explicitly to every component.
// Nothing reads the environment after Load returns.
type Config struct {
	// Target site.
	BaseURL     string
	UserDataDir string
	MediaRoot   string

	// Timing.
	ActionDelay time.Duration
	FastMode    bool

	// Browser.
	Headless    bool
	NavTimeout  time.Duration
	StepTimeout time.Duration

	// Collaborating API.
	APIBaseURL string
	APIKey     string

	// Worker loop.
	CheckInterval time.Duration

	// Logging.
	Verbose bool

	// Optional local results archive.
	DBConfig DatabaseConfig
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// Load reads .env (if present) and the environment into a Config.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		BaseURL:       strings.TrimRight(getEnv("MARKTPLAATS_BASE_URL", "https://www.marktplaats.nl"), "/"),
		UserDataDir:   getEnv("USER_DATA_DIR", "./user_data"),
		MediaRoot:     getEnv("MEDIA_ROOT", "./public/media"),
		ActionDelay:   time.Duration(getEnvInt("ACTION_DELAY_MS", 200)) * time.Millisecond,
		FastMode:      getEnvBool("FAST_MODE", false),
		Headless:      getEnvBool("HEADLESS", false),
		NavTimeout:    time.Duration(getEnvInt("NAV_TIMEOUT_MS", 60000)) * time.Millisecond,
		StepTimeout:   time.Duration(getEnvInt("STEP_TIMEOUT_MS", 45000)) * time.Millisecond,
		APIBaseURL:    strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:3000"), "/"),
		APIKey:        getEnv("INTERNAL_API_KEY", ""),
		CheckInterval: time.Duration(getEnvInt("CHECK_INTERVAL", 300)) * time.Second,
		Verbose:       getEnvBool("VERBOSE", false),
	}

	host := getEnv("RESULTS_DB_HOST", "")
	cfg.DBConfig = DatabaseConfig{
		Enabled:  host != "",
		Host:     host,
		Port:     getEnvInt("RESULTS_DB_PORT", 5432),
		User:     getEnv("RESULTS_DB_USER", "postgres"),
		Password: getEnv("RESULTS_DB_PASSWORD", "postgres"),
		DBName:   getEnv("RESULTS_DB_NAME", "marktplaats_poster"),
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid %s value %q, using default %d", key, value, fallback)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Invalid %s value %q, using default %v", key, value, fallback)
		return fallback
	}
	return b
}
