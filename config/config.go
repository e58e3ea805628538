package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultThumbnailsSubDir = "thumbnails"
	DefaultGoogleTokenURL   = "https://oauth2.googleapis.com/token"
)

const (
	defaultThumbnailQueueSize    = 200
	defaultNumThumbnailWorkers   = 4
	defaultThumbnailMaxSize      = 600
	defaultSyncConcurrency       = 4
	defaultAdminSessionTTLHours  = 24
	defaultTokenSafetyMarginSecs = 300
	defaultMaxRequestBodyMB      = 32
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreDriverSQLite = "sqlite"
	StoreDriverValkey = "valkey"
	StoreDriverMemory = "memory"
)

type Config struct {
	Port string

	// record store
	StoreDriver    string
	DatabasePath   string
	ValkeyAddr     string
	ValkeyPassword string

	// google drive
	DriveFolderID     string // root folder whose children are the gallery folders
	GoogleClientEmail string
	GooglePrivateKey  string // PEM, literal "\n" sequences already expanded
	GoogleTokenURL    string
	DriveAPIEndpoint  string // empty uses the library default
	TokenSafetyMargin time.Duration

	// admin
	AdminPassword     string
	AdminPasswordHash string // bcrypt; takes precedence over AdminPassword
	AdminSessionTTL   time.Duration

	SyncConcurrency int

	// media storage configuration
	MediaStoragePath string // root for generated assets
	ThumbnailsPath   string // full-calculated path for thumbnails
	ThumbnailMaxSize int

	// worker settings
	ThumbnailQueueSize  int
	NumThumbnailWorkers int

	CORSAllowedOrigins  []string
	PublicBaseURL       string // used to build /photo URLs; empty derives it from the request
	MaxRequestBodyBytes int64  // JSON bodies, restore uploads included
	LogFile             string
}

// fileConfig mirrors the optional TOML file. Every value is a default that the
// matching environment variable overrides.
type fileConfig struct {
	Port               string   `toml:"port"`
	StoreDriver        string   `toml:"store_driver"`
	DatabasePath       string   `toml:"database_path"`
	ValkeyAddr         string   `toml:"valkey_addr"`
	DriveFolderID      string   `toml:"drive_folder_id"`
	GoogleClientEmail  string   `toml:"google_client_email"`
	GoogleTokenURL     string   `toml:"google_token_url"`
	DriveAPIEndpoint   string   `toml:"drive_api_endpoint"`
	MediaStoragePath   string   `toml:"media_storage_path"`
	ThumbnailMaxSize   int      `toml:"thumbnail_max_size"`
	MaxRequestBodyMB   int      `toml:"max_request_body_mb"`
	SyncConcurrency    int      `toml:"sync_concurrency"`
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
	PublicBaseURL      string   `toml:"public_base_url"`
	LogFile            string   `toml:"log_file"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Port:               "8080",
		StoreDriver:        StoreDriverSQLite,
		DatabasePath:       "gallery.db",
		ValkeyAddr:         "127.0.0.1:6379",
		GoogleTokenURL:     DefaultGoogleTokenURL,
		MediaStoragePath:   filepath.Join(".", "media_storage"),
		ThumbnailMaxSize:   defaultThumbnailMaxSize,
		MaxRequestBodyMB:   defaultMaxRequestBodyMB,
		SyncConcurrency:    defaultSyncConcurrency,
		CORSAllowedOrigins: []string{"*"},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// LoadConfig reads the optional TOML file named by CONFIG_FILE, then applies
// environment overrides.
func LoadConfig() (Config, error) {
	defaults := defaultFileConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, &defaults); err != nil {
			return Config{}, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
		log.Printf("Loaded config file %s", path)
	}

	driver := strings.ToLower(getEnvOrDefault("STORE_DRIVER", defaults.StoreDriver))
	switch driver {
	case StoreDriverSQLite, StoreDriverValkey, StoreDriverMemory:
	default:
		return Config{}, fmt.Errorf("unknown STORE_DRIVER '%s'", driver)
	}

	mediaStorage := getEnvOrDefault("MEDIA_STORAGE_PATH", defaults.MediaStoragePath)
	absMediaStorage, err := filepath.Abs(mediaStorage)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for media storage '%s': %w", mediaStorage, err)
	}
	thumbSubDir := getEnvOrDefault("THUMBNAILS_SUBDIR", DefaultThumbnailsSubDir)

	cfg := Config{
		Port:              getEnvOrDefault("PORT", defaults.Port),
		StoreDriver:       driver,
		DatabasePath:      getEnvOrDefault("DATABASE_PATH", defaults.DatabasePath),
		ValkeyAddr:        getEnvOrDefault("VALKEY_ADDR", defaults.ValkeyAddr),
		ValkeyPassword:    os.Getenv("VALKEY_PASSWORD"),
		DriveFolderID:     getEnvOrDefault("DRIVE_FOLDER_ID", defaults.DriveFolderID),
		GoogleClientEmail: getEnvOrDefault("GOOGLE_CLIENT_EMAIL", defaults.GoogleClientEmail),
		// keys pasted into a single-line env var carry escaped newlines
		GooglePrivateKey:    strings.ReplaceAll(os.Getenv("GOOGLE_PRIVATE_KEY"), `\n`, "\n"),
		GoogleTokenURL:      getEnvOrDefault("GOOGLE_TOKEN_URL", defaults.GoogleTokenURL),
		DriveAPIEndpoint:    getEnvOrDefault("DRIVE_API_ENDPOINT", defaults.DriveAPIEndpoint),
		TokenSafetyMargin:   time.Duration(getEnvIntOrDefault("TOKEN_SAFETY_MARGIN_SECONDS", defaultTokenSafetyMarginSecs)) * time.Second,
		AdminPassword:       os.Getenv("ADMIN_PASSWORD"),
		AdminPasswordHash:   os.Getenv("ADMIN_PASSWORD_HASH"),
		AdminSessionTTL:     time.Duration(getEnvIntOrDefault("ADMIN_SESSION_TTL_HOURS", defaultAdminSessionTTLHours)) * time.Hour,
		SyncConcurrency:     getEnvIntOrDefault("SYNC_CONCURRENCY", defaults.SyncConcurrency),
		MediaStoragePath:    absMediaStorage,
		ThumbnailsPath:      filepath.Join(absMediaStorage, thumbSubDir),
		ThumbnailMaxSize:    getEnvIntOrDefault("THUMBNAIL_MAX_SIZE", defaults.ThumbnailMaxSize),
		ThumbnailQueueSize:  getEnvIntOrDefault("THUMBNAIL_QUEUE_SIZE", defaultThumbnailQueueSize),
		NumThumbnailWorkers: getEnvIntOrDefault("NUM_THUMBNAIL_WORKERS", defaultNumThumbnailWorkers),
		CORSAllowedOrigins:  getEnvListOrDefault("CORS_ALLOWED_ORIGINS", defaults.CORSAllowedOrigins),
		PublicBaseURL:       strings.TrimRight(getEnvOrDefault("PUBLIC_BASE_URL", defaults.PublicBaseURL), "/"),
		LogFile:             getEnvOrDefault("LOG_FILE", defaults.LogFile),
		MaxRequestBodyBytes: int64(getEnvIntOrDefault("MAX_REQUEST_BODY_MB", defaults.MaxRequestBodyMB)) << 20,
	}

	if cfg.AdminPassword == "" && cfg.AdminPasswordHash == "" {
		log.Printf("Warning: neither ADMIN_PASSWORD nor ADMIN_PASSWORD_HASH is set, admin login is disabled")
	}

	return cfg, nil
}

// DriveConfigured reports whether enough Google credentials are present to
// talk to Drive.
func (c Config) DriveConfigured() bool {
	return c.DriveFolderID != "" && c.GoogleClientEmail != "" && c.GooglePrivateKey != ""
}
