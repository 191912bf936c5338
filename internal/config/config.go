package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the settings of both binaries: the dashboard (session client,
// route guard, token store) and the mock backend.
// All values come from env (or a .env file loaded by the binary).
type Config struct {
	App     AppConfig
	API     APIConfig
	Store   StoreConfig
	DB      DBConfig
	Redis   RedisConfig
	Auth    AuthConfig
	MockAPI MockAPIConfig
}

type AppConfig struct {
	Env  string
	Port int
}

// APIConfig points the dashboard at the academic backend.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration

	// LogoutPath is notified best-effort on logout. Empty disables it.
	LogoutPath string
}

type StoreBackend string

const (
	StoreMemory   StoreBackend = "memory"
	StoreRedis    StoreBackend = "redis"
	StorePostgres StoreBackend = "postgres"
)

// StoreConfig selects where the session survives restarts.
type StoreConfig struct {
	Backend   StoreBackend
	Namespace string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// AuthConfig is the mock backend's token settings.
type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type MockAPIConfig struct {
	Port int
}

const (
	defaultAppPort      = 3000
	defaultMockAPIPort  = 5000
	defaultAPITimeout   = 15 * time.Second
	defaultNamespace    = "portal"
	logoutPathDisabled  = "off"
	defaultPostgresPort = 5432
	defaultRedisPort    = 6379
)

// LoadDashboard reads env and validates the dashboard settings.
func LoadDashboard() (Config, error) {
	c, err := read()
	if err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadMockAPI reads env and validates the mock backend settings.
func LoadMockAPI() (Config, error) {
	c, err := read()
	if err != nil {
		return Config{}, err
	}
	if err := c.ValidateMockAPI(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func read() (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}

	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	c.App.Port, parseErrs = optionalInt(parseErrs, "APP_PORT", defaultAppPort)

	c.API.BaseURL = strings.TrimSpace(os.Getenv("API_BASE_URL"))
	c.API.Timeout, parseErrs = optionalDuration(parseErrs, "API_TIMEOUT")
	c.API.LogoutPath = strings.TrimSpace(os.Getenv("API_LOGOUT_PATH"))
	if c.API.LogoutPath == "" {
		c.API.LogoutPath = "/api/auth/logout"
	} else if strings.EqualFold(c.API.LogoutPath, logoutPathDisabled) {
		c.API.LogoutPath = ""
	}

	c.Store.Backend = StoreBackend(strings.ToLower(strings.TrimSpace(os.Getenv("TOKEN_STORE"))))
	c.Store.Namespace = strings.TrimSpace(os.Getenv("TOKEN_STORE_NAMESPACE"))

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	c.DB.Port, parseErrs = optionalInt(parseErrs, "DB_PORT", defaultPostgresPort)
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	c.Redis.Port, parseErrs = optionalInt(parseErrs, "REDIS_PORT", defaultRedisPort)
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")
	c.Redis.DB, parseErrs = optionalInt(parseErrs, "REDIS_DB", 0)

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in ValidateMockAPI().
	c.Auth.AccessTokenTTL, parseErrs = optionalDuration(parseErrs, "JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL, parseErrs = optionalDuration(parseErrs, "JWT_REFRESH_TTL")

	c.MockAPI.Port, parseErrs = optionalInt(parseErrs, "MOCKAPI_PORT", defaultMockAPIPort)

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the dashboard settings and fills defaults.
func (c *Config) Validate() error {
	errs := c.validateApp(c.App.Port, "APP_PORT")

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("API_BASE_URL is required"))
	} else if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("API_BASE_URL must be an absolute http(s) URL, got %q", c.API.BaseURL))
	} else if c.IsProduction() && u.Scheme != "https" {
		errs = append(errs, errors.New("API_BASE_URL must use https in production"))
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = defaultAPITimeout
	}
	if c.API.LogoutPath != "" && !strings.HasPrefix(c.API.LogoutPath, "/") {
		errs = append(errs, fmt.Errorf("API_LOGOUT_PATH must start with /, got %q", c.API.LogoutPath))
	}

	if c.Store.Namespace == "" {
		c.Store.Namespace = defaultNamespace
	}
	switch c.Store.Backend {
	case "":
		if c.IsProduction() {
			errs = append(errs, errors.New("TOKEN_STORE is required in production"))
		} else {
			// Local-friendly default; production must pick a durable store.
			c.Store.Backend = StoreMemory
		}
	case StoreMemory:
		if c.IsProduction() {
			errs = append(errs, errors.New("TOKEN_STORE=memory is not allowed in production"))
		}
	case StoreRedis:
		errs = append(errs, c.validateRedis()...)
	case StorePostgres:
		errs = append(errs, c.validateDB()...)
	default:
		errs = append(errs, fmt.Errorf("TOKEN_STORE must be one of memory, redis, postgres, got %q", c.Store.Backend))
	}

	return joinErrors(errs)
}

// ValidateMockAPI checks the mock backend settings and fills defaults.
func (c *Config) ValidateMockAPI() error {
	errs := c.validateApp(c.MockAPI.Port, "MOCKAPI_PORT")

	if c.IsProduction() {
		errs = append(errs, errors.New("the mock backend must not run with APP_ENV=production"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Auth.AccessTokenTTL <= 0 {
		// Default: short-lived access tokens so refresh is exercised.
		c.Auth.AccessTokenTTL = 5 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	return joinErrors(errs)
}

func (c *Config) validateApp(port int, portKey string) []error {
	var errs []error
	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if port <= 0 || port > 65535 {
		errs = append(errs, fmt.Errorf("%s must be a valid port, got %d", portKey, port))
	}
	return errs
}

func (c *Config) validateDB() []error {
	var errs []error
	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.DB.SSLMode == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}
	return errs
}

func (c *Config) validateRedis() []error {
	var errs []error
	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, fmt.Errorf("REDIS_DB must be >= 0, got %d", c.Redis.DB))
	}
	return errs
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) MockAPIAddr() string {
	return fmt.Sprintf(":%d", c.MockAPI.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func optionalInt(errs []error, key string, def int) (int, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, errs
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s must be an integer, got %q", key, v))
	}
	return n, errs
}

func optionalDuration(errs []error, key string) (time.Duration, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, errs
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s must be a duration like 15m, got %q", key, v))
	}
	return d, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
