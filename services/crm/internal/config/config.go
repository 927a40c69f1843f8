package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file. CRM_CONFIG overrides it.
var ConfigPath = "config.yaml"

// EnvPath is the dotenv file loaded before anything else when present.
var EnvPath = ".env"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port                    string   `yaml:"port"`
	LogLevel                string   `yaml:"logLevel"`
	Environment             string   `yaml:"environment"`
	DatabaseDriver          string   `yaml:"databaseDriver"`
	DatabaseURL             string   `yaml:"databaseURL"`
	JWTSecret               string   `yaml:"jwtSecret"`
	JWTTTL                  string   `yaml:"jwtTTL"`
	JWTIssuer               string   `yaml:"jwtIssuer"`
	JWTAudience             string   `yaml:"jwtAudience"`
	JWTLeeway               string   `yaml:"jwtLeeway"`
	RedisAddr               string   `yaml:"redisAddr"`
	RedisPassword           string   `yaml:"redisPassword"`
	LoginRateLimitPerMinute int      `yaml:"loginRateLimitPerMinute"`
	TrustedProxyCIDRs       []string `yaml:"trustedProxyCidrs"`
	CORSOrigins             []string `yaml:"corsOrigins"`
	StorageBackend          string   `yaml:"storageBackend"`
	UploadDir               string   `yaml:"uploadDir"`
	MinioEndpoint           string   `yaml:"minioEndpoint"`
	MinioAccessKey          string   `yaml:"minioAccessKey"`
	MinioSecretKey          string   `yaml:"minioSecretKey"`
	MinioBucket             string   `yaml:"minioBucket"`
	MinioUseSSL             bool     `yaml:"minioUseSSL"`
	MaxUploadBytes          int64    `yaml:"maxUploadBytes"`
	MaxFilesPerUpload       int      `yaml:"maxFilesPerUpload"`
	AllowedExtensions       []string `yaml:"allowedExtensions"`
	AllowedContentTypes     []string `yaml:"allowedContentTypes"`
	EventStream             string   `yaml:"eventStream"`
	BootstrapAdminEmail     string   `yaml:"bootstrapAdminEmail"`
	BootstrapAdminPassword  string   `yaml:"bootstrapAdminPassword"`
	BootstrapAdminName      string   `yaml:"bootstrapAdminName"`
}

// Load reads .env, then the YAML file, then CRM_* overrides. A missing YAML
// file is not an error; everything can come from the environment.
func Load(path string) (FileConfig, error) {
	if err := godotenv.Load(EnvPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return FileConfig{}, fmt.Errorf("load env file: %w", err)
	}
	cfg := defaults()
	if path == "" {
		path = os.Getenv("CRM_CONFIG")
	}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}
	applyEnv(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func defaults() FileConfig {
	return FileConfig{
		Port:                    "5000",
		LogLevel:                "info",
		Environment:             "development",
		DatabaseDriver:          "sqlite",
		DatabaseURL:             "patorama.db",
		JWTTTL:                  "24h",
		JWTLeeway:               "30s",
		LoginRateLimitPerMinute: 10,
		StorageBackend:          "disk",
		UploadDir:               "uploads",
		MaxUploadBytes:          100 << 20,
		MaxFilesPerUpload:       10,
		EventStream:             "patorama:events",
	}
}

func applyEnv(cfg *FileConfig) {
	setString(&cfg.Port, "CRM_PORT")
	setString(&cfg.LogLevel, "CRM_LOG_LEVEL")
	setString(&cfg.Environment, "CRM_ENVIRONMENT")
	setString(&cfg.DatabaseDriver, "CRM_DATABASE_DRIVER")
	setString(&cfg.DatabaseURL, "CRM_DATABASE_URL")
	setString(&cfg.JWTSecret, "CRM_JWT_SECRET")
	setString(&cfg.JWTTTL, "CRM_JWT_TTL")
	setString(&cfg.JWTIssuer, "JWT_ISSUER")
	setString(&cfg.JWTAudience, "JWT_AUDIENCE")
	setString(&cfg.JWTLeeway, "JWT_LEEWAY")
	setString(&cfg.RedisAddr, "REDIS_ADDR")
	setString(&cfg.RedisPassword, "REDIS_PASSWORD")
	if v := os.Getenv("CRM_LOGIN_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.LoginRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("CRM_TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
	if v := os.Getenv("CRM_CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitCSV(v)
	}
	setString(&cfg.StorageBackend, "CRM_STORAGE_BACKEND")
	setString(&cfg.UploadDir, "CRM_UPLOAD_DIR")
	setString(&cfg.MinioEndpoint, "MINIO_ENDPOINT")
	setString(&cfg.MinioAccessKey, "MINIO_ACCESS_KEY")
	setString(&cfg.MinioSecretKey, "MINIO_SECRET_KEY")
	setString(&cfg.MinioBucket, "MINIO_BUCKET")
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.MinioUseSSL = b
		}
	}
	if v := os.Getenv("CRM_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("CRM_MAX_FILES_PER_UPLOAD"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.MaxFilesPerUpload = n
		}
	}
	if v := os.Getenv("CRM_ALLOWED_EXTENSIONS"); v != "" {
		cfg.AllowedExtensions = splitCSV(v)
	}
	if v := os.Getenv("CRM_ALLOWED_CONTENT_TYPES"); v != "" {
		cfg.AllowedContentTypes = splitCSV(v)
	}
	setString(&cfg.EventStream, "CRM_EVENT_STREAM")
	setString(&cfg.BootstrapAdminEmail, "CRM_BOOTSTRAP_ADMIN_EMAIL")
	setString(&cfg.BootstrapAdminPassword, "CRM_BOOTSTRAP_ADMIN_PASSWORD")
	setString(&cfg.BootstrapAdminName, "CRM_BOOTSTRAP_ADMIN_NAME")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = strings.TrimSpace(v)
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml or CRM_PORT)")
	}
	switch cfg.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: databaseDriver must be postgres or sqlite, got %q", cfg.DatabaseDriver)
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or CRM_DATABASE_URL)")
	}
	if len(cfg.JWTSecret) < 32 {
		return errors.New("config: jwtSecret must be at least 32 bytes (set in config.yaml or CRM_JWT_SECRET)")
	}
	if _, err := ParseDuration("jwtTTL", cfg.JWTTTL); err != nil {
		return err
	}
	if _, err := ParseJWTLeeway(cfg.JWTLeeway); err != nil {
		return err
	}
	if cfg.LoginRateLimitPerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	switch cfg.StorageBackend {
	case "disk":
		if strings.TrimSpace(cfg.UploadDir) == "" {
			return errors.New("config: uploadDir is required for disk storage")
		}
	case "minio":
		if cfg.MinioEndpoint == "" || cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" || cfg.MinioBucket == "" {
			return errors.New("config: minioEndpoint, minioAccessKey, minioSecretKey and minioBucket are required for minio storage")
		}
	default:
		return fmt.Errorf("config: storageBackend must be disk or minio, got %q", cfg.StorageBackend)
	}
	if cfg.MaxUploadBytes <= 0 {
		return errors.New("config: maxUploadBytes must be > 0")
	}
	if cfg.MaxFilesPerUpload <= 0 {
		return errors.New("config: maxFilesPerUpload must be > 0")
	}
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// ParseDuration parses a required positive duration setting.
func ParseDuration(name, value string) (time.Duration, error) {
	dur, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", name, err)
	}
	if dur <= 0 {
		return 0, fmt.Errorf("invalid %s duration: must be > 0", name)
	}
	return dur, nil
}

// ParseJWTLeeway parses optional JWT leeway duration string.
func ParseJWTLeeway(leewayStr string) (time.Duration, error) {
	if leewayStr == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(leewayStr)
	if err != nil {
		return 0, fmt.Errorf("invalid jwtLeeway duration: %w", err)
	}
	return dur, nil
}
