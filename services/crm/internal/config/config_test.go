package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const secret = "0123456789abcdef0123456789abcdef"

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func useEnvFile(t *testing.T, path string) {
	t.Helper()
	prev := EnvPath
	EnvPath = path
	t.Cleanup(func() { EnvPath = prev })
}

func TestLoadAppliesDefaultsYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	useEnvFile(t, filepath.Join(dir, "missing.env"))
	path := writeFile(t, dir, "config.yaml", `
port: "8080"
jwtSecret: "`+secret+`"
corsOrigins: ["https://app.example.com"]
maxFilesPerUpload: 5
`)
	t.Setenv("CRM_DATABASE_URL", "file.db")
	t.Setenv("CRM_ALLOWED_EXTENSIONS", ".jpg, .png ,")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" || cfg.DatabaseURL != "file.db" || cfg.DatabaseDriver != "sqlite" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.MaxFilesPerUpload != 5 || cfg.MaxUploadBytes != 100<<20 {
		t.Fatalf("upload limits = %d / %d", cfg.MaxFilesPerUpload, cfg.MaxUploadBytes)
	}
	if len(cfg.AllowedExtensions) != 2 || cfg.AllowedExtensions[1] != ".png" {
		t.Fatalf("allowed extensions = %v", cfg.AllowedExtensions)
	}
	if len(cfg.CORSOrigins) != 1 {
		t.Fatalf("cors origins = %v", cfg.CORSOrigins)
	}
}

func TestLoadReadsDotEnvWithoutYAML(t *testing.T) {
	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", "CRM_JWT_SECRET="+secret+"\nCRM_PORT=9000\n")
	useEnvFile(t, envFile)
	// godotenv never overrides variables that are already set.
	t.Setenv("CRM_JWT_SECRET", "")
	t.Setenv("CRM_PORT", "")
	os.Unsetenv("CRM_JWT_SECRET")
	os.Unsetenv("CRM_PORT")

	cfg, err := Load(filepath.Join(dir, "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9000" || cfg.JWTSecret != secret {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestValidateConfigRejectsBadValues(t *testing.T) {
	base := defaults()
	base.JWTSecret = secret

	if err := validateConfig(base); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	cases := map[string]func(c *FileConfig){
		"short secret":  func(c *FileConfig) { c.JWTSecret = "short" },
		"driver":        func(c *FileConfig) { c.DatabaseDriver = "mysql" },
		"ttl":           func(c *FileConfig) { c.JWTTTL = "forever" },
		"leeway":        func(c *FileConfig) { c.JWTLeeway = "abc" },
		"rate":          func(c *FileConfig) { c.LoginRateLimitPerMinute = -1 },
		"backend":       func(c *FileConfig) { c.StorageBackend = "s3" },
		"minio missing": func(c *FileConfig) { c.StorageBackend = "minio" },
		"files":         func(c *FileConfig) { c.MaxFilesPerUpload = 0 },
	}
	for name, mutate := range cases {
		cfg := base
		mutate(&cfg)
		if err := validateConfig(cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestParseDurations(t *testing.T) {
	d, err := ParseDuration("jwtTTL", "2h")
	if err != nil || d != 2*time.Hour {
		t.Fatalf("ParseDuration = %v, %v", d, err)
	}
	if _, err := ParseDuration("jwtTTL", "0s"); err == nil {
		t.Fatalf("expected error for zero duration")
	}
	d, err = ParseJWTLeeway("")
	if err != nil || d != 0 {
		t.Fatalf("ParseJWTLeeway = %v, %v", d, err)
	}
}
