package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/andrewpaige1/quizwhiz-api/auth"
	"github.com/andrewpaige1/quizwhiz-api/logger"
	"github.com/joho/godotenv"
	"github.com/op/go-logging"
	"github.com/pelletier/go-toml/v2"
)

// Config is the process configuration, read once at startup.
type Config struct {
	IsDevelopment bool
	Port          string
	LogLevel      logging.Level

	DBDriver string
	DBURL    string

	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	CORSAllowedOrigins []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	TokenFlushSchedule string

	StaffOnlyUserList       bool
	EnforceLessonVisibility bool

	AdminUsername string
	AdminPassword string
	AdminEmail    string
}

// LoadDotEnv reads a .env file outside production. A missing file is only
// reported.
func LoadDotEnv() {
	if os.Getenv("APP_ENV") == "production" {
		return
	}
	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: .env file not found, environment variables might not be loaded: %v\n", err)
	}
}

// Load builds the Config from the optional TOML file named by CONFIG_FILE,
// with non-empty environment variables taking precedence over file values.
func Load() (*Config, error) {
	file := map[string]string{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		var err error
		if file, err = readFile(path); err != nil {
			return nil, err
		}
	}
	get := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		if v, ok := file[strings.ToLower(key)]; ok {
			return v
		}
		return fallback
	}

	p := parser{get: get}
	cfg := &Config{
		IsDevelopment: get("APP_ENV", "development") != "production",
		Port:          get("PORT", "8080"),
		LogLevel:      p.level("LOG_LEVEL", "info"),

		DBDriver: strings.ToLower(get("DB_DRIVER", "postgres")),
		DBURL:    get("DB_URL", ""),

		JWTSecret:       get("JWT_SECRET_KEY", ""),
		JWTIssuer:       get("JWT_ISSUER", "quizwhiz"),
		JWTAudience:     get("JWT_AUDIENCE", "quizwhiz-api"),
		AccessTokenTTL:  p.duration("ACCESS_TOKEN_TTL", "5m"),
		RefreshTokenTTL: p.duration("REFRESH_TOKEN_TTL", "24h"),

		CORSAllowedOrigins: splitList(get("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),

		RedisAddr:     get("REDIS_ADDR", ""),
		RedisPassword: get("REDIS_PASSWORD", ""),
		RedisDB:       p.integer("REDIS_DB", "0"),

		TokenFlushSchedule: get("TOKEN_FLUSH_SCHEDULE", "@every 1h"),

		StaffOnlyUserList:       p.boolean("STAFF_ONLY_USER_LIST", "false"),
		EnforceLessonVisibility: p.boolean("ENFORCE_LESSON_VISIBILITY", "false"),

		AdminUsername: get("ADMIN_USERNAME", ""),
		AdminPassword: get("ADMIN_PASSWORD", ""),
		AdminEmail:    get("ADMIN_EMAIL", ""),
	}
	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET_KEY not set")
	}
	switch c.DBDriver {
	case "postgres":
		if c.DBURL == "" {
			return errors.New("config: DB_URL not set")
		}
	case "sqlite":
		if c.DBURL == "" {
			c.DBURL = "quizwhiz.db"
		}
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.DBDriver)
	}
	return nil
}

// TokenConfig returns the signing parameters for auth.NewManager.
func (c *Config) TokenConfig() auth.Config {
	return auth.Config{
		Secret:     []byte(c.JWTSecret),
		Issuer:     c.JWTIssuer,
		Audience:   c.JWTAudience,
		AccessTTL:  c.AccessTokenTTL,
		RefreshTTL: c.RefreshTokenTTL,
	}
}

// readFile flattens a TOML document of scalar keys into strings.
func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var raw map[string]interface{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	values := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case []interface{}:
			items := make([]string, 0, len(v))
			for _, item := range v {
				items = append(items, fmt.Sprint(item))
			}
			values[strings.ToLower(key)] = strings.Join(items, ",")
		default:
			values[strings.ToLower(key)] = fmt.Sprint(v)
		}
	}
	return values, nil
}

// parser records the first conversion error so Load can report it once.
type parser struct {
	get func(key, fallback string) string
	err error
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("config: invalid %s %q: %w", key, value, err)
	}
}

func (p *parser) duration(key, fallback string) time.Duration {
	value := p.get(key, fallback)
	d, err := time.ParseDuration(value)
	if err != nil {
		p.fail(key, value, err)
	}
	return d
}

func (p *parser) boolean(key, fallback string) bool {
	value := p.get(key, fallback)
	b, err := strconv.ParseBool(value)
	if err != nil {
		p.fail(key, value, err)
	}
	return b
}

func (p *parser) integer(key, fallback string) int {
	value := p.get(key, fallback)
	n, err := strconv.Atoi(value)
	if err != nil {
		p.fail(key, value, err)
	}
	return n
}

func (p *parser) level(key, fallback string) logging.Level {
	value := p.get(key, fallback)
	lvl, err := logger.ParseLevel(value)
	if err != nil {
		p.fail(key, value, err)
	}
	return lvl
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
